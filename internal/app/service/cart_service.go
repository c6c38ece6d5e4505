package service

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrCartItemNotFound   = errors.New("item not found in cart")
	ErrInvalidQuantity    = errors.New("quantity must be between 1 and 10")
	ErrQuantityLimit      = errors.New("cannot hold more than 10 of a product in the cart")
	ErrProductUnavailable = errors.New("product is not available")
)

func validQuantity(q int) bool {
	return q >= model.MinCartQuantity && q <= model.MaxCartQuantity
}

type CartService interface {
	// GetCart returns nil without error when the user has no cart.
	GetCart(ctx context.Context, userID uint) (*model.Cart, error)
	AddItem(ctx context.Context, userID, productID uint, quantity int) (*model.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) (*model.Cart, error)
	// RemoveItem returns nil once the last line is gone and the cart record deleted.
	RemoveItem(ctx context.Context, userID, productID uint) (*model.Cart, error)
	ClearCart(ctx context.Context, userID uint) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID uint) (*model.Cart, error) {
	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})
	return s.refresh(ctx, userID)
}

// refresh reloads the cart and stores the total recomputed from current product prices.
func (s *cartService) refresh(ctx context.Context, userID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	total := cart.ComputeTotal()
	if total != cart.TotalPrice {
		if err := s.cartRepo.UpdateTotal(ctx, cart.ID, total); err != nil {
			return nil, err
		}
		cart.TotalPrice = total
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*model.Cart, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if !validQuantity(quantity) {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if product.Status != model.ProductStatusActive {
		return nil, ErrProductUnavailable
	}

	if err := s.cartRepo.AddQuantity(ctx, userID, productID, quantity, model.MaxCartQuantity); err != nil {
		if errors.Is(err, repository.ErrQuantityLimit) {
			logger.Warn("Cannot add to cart: line limit reached", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrQuantityLimit
		}
		logger.Error("Failed to add item to cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	return s.refresh(ctx, userID)
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) (*model.Cart, error) {
	if !validQuantity(quantity) {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	rows, err := s.cartRepo.SetQuantity(ctx, cart.ID, productID, quantity)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrCartItemNotFound
	}

	logger.Info("Cart item quantity updated", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})
	return s.refresh(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	rows, err := s.cartRepo.DeleteItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrCartItemNotFound
	}

	remaining, err := s.cartRepo.CountItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if remaining == 0 {
		if err := s.cartRepo.Delete(ctx, cart.ID); err != nil {
			return nil, err
		}
		logger.Info("Cart emptied and removed", map[string]interface{}{
			"user_id": userID,
			"cart_id": cart.ID,
		})
		return nil, nil
	}

	return s.refresh(ctx, userID)
}

func (s *cartService) ClearCart(ctx context.Context, userID uint) error {
	if err := s.cartRepo.DeleteByUserID(ctx, userID); err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}
