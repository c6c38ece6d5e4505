package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrInvalidProduct       = errors.New("invalid product")
	ErrInvalidProductStatus = errors.New("invalid product status")
)

const importBatchSize = 100

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	Price       float64
	Quantity    int
	Status      model.ProductStatus
	Images      []string
}

func (in ProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case in.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case in.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	case in.Status != "" && !in.Status.Valid():
		return ErrInvalidProductStatus
	}
	return nil
}

func (in ProductInput) apply(p *model.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.Quantity = in.Quantity
	p.Images = in.Images
	if in.Status != "" {
		p.Status = in.Status
	}
	if p.Status == "" {
		p.Status = model.ProductStatusActive
	}
}

type ProductService interface {
	ListAll(ctx context.Context) ([]model.Product, error)
	ListActive(ctx context.Context) ([]model.Product, error)
	GetByID(ctx context.Context, id uint) (*model.Product, error)
	Create(ctx context.Context, input ProductInput) (*model.Product, error)
	Update(ctx context.Context, id uint, input ProductInput) (*model.Product, error)
	SetStatus(ctx context.Context, id uint, status model.ProductStatus) error
	Delete(ctx context.Context, id uint) error
	Import(ctx context.Context, inputs []ProductInput) (int, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) ListAll(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.FindAll(ctx)
}

func (s *productService) ListActive(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.FindActive(ctx)
}

func (s *productService) GetByID(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, input ProductInput) (*model.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	product := &model.Product{}
	input.apply(product)
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return product, nil
}

func (s *productService) Update(ctx context.Context, id uint, input ProductInput) (*model.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	input.apply(product)
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": product.ID,
	})
	return product, nil
}

func (s *productService) SetStatus(ctx context.Context, id uint, status model.ProductStatus) error {
	if !status.Valid() {
		return ErrInvalidProductStatus
	}

	rows, err := s.productRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProductNotFound
	}

	logger.Info("Product status changed", map[string]interface{}{
		"product_id": id,
		"status":     status,
	})
	return nil
}

// Delete soft-deletes; carts and checkouts keep resolving the product.
func (s *productService) Delete(ctx context.Context, id uint) error {
	rows, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProductNotFound
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// Import validates every row before inserting any of them.
func (s *productService) Import(ctx context.Context, inputs []ProductInput) (int, error) {
	products := make([]model.Product, 0, len(inputs))
	for i, input := range inputs {
		if err := input.validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		var p model.Product
		input.apply(&p)
		products = append(products, p)
	}

	if err := s.productRepo.CreateBatch(ctx, products, importBatchSize); err != nil {
		return 0, err
	}

	logger.Info("Products imported", map[string]interface{}{
		"count": len(products),
	})
	return len(products), nil
}
