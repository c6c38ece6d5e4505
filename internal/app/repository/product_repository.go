package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	CreateBatch(ctx context.Context, products []model.Product, batchSize int) error
	FindAll(ctx context.Context) ([]model.Product, error)
	FindActive(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateStatus(ctx context.Context, id uint, status model.ProductStatus) (int64, error)
	Delete(ctx context.Context, id uint) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":     product.Name,
		"price":    product.Price,
		"category": product.Category,
	})

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (r *productRepository) CreateBatch(ctx context.Context, products []model.Product, batchSize int) error {
	if len(products) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(products, batchSize).Error; err != nil {
		logger.Error("Failed to create product batch in database", err, map[string]interface{}{
			"count": len(products),
		})
		return err
	}
	return nil
}

func (r *productRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&products).Error; err != nil {
		logger.Error("Failed to find products in database", err)
		return nil, err
	}

	logger.Debug("Products found in database", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) FindActive(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).
		Where("status = ?", model.ProductStatusActive).
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		logger.Error("Failed to find active products in database", err)
		return nil, err
	}
	return products, nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		logger.Debug("Product not loaded by ID", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}

	logger.Debug("Product updated in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (r *productRepository) UpdateStatus(ctx context.Context, id uint, status model.ProductStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		logger.Error("Failed to update product status in database", result.Error, map[string]interface{}{
			"product_id": id,
			"status":     status,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete soft-deletes the product.
func (r *productRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete product from database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return 0, result.Error
	}

	logger.Debug("Product deleted from database", map[string]interface{}{
		"product_id": id,
		"rows":       result.RowsAffected,
	})
	return result.RowsAffected, nil
}
