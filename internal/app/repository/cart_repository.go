package repository

import (
	"context"
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// ErrQuantityLimit is returned when an increment would push a line past the allowed maximum.
var ErrQuantityLimit = errors.New("cart line quantity limit exceeded")

type CartRepository interface {
	FindByUserID(ctx context.Context, userID uint) (*model.Cart, error)
	AddQuantity(ctx context.Context, userID, productID uint, quantity, max int) error
	SetQuantity(ctx context.Context, cartID, productID uint, quantity int) (int64, error)
	DeleteItem(ctx context.Context, cartID, productID uint) (int64, error)
	CountItems(ctx context.Context, cartID uint) (int64, error)
	UpdateTotal(ctx context.Context, cartID uint, total float64) error
	Delete(ctx context.Context, cartID uint) error
	DeleteByUserID(ctx context.Context, userID uint) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// withDeletedProducts lets lines keep resolving products that were soft-deleted after being added.
func withDeletedProducts(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uint) (*model.Cart, error) {
	logger.Debug("Finding cart by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product", withDeletedProducts).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find cart by user ID in database", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, err
	}

	logger.Debug("Cart found in database", map[string]interface{}{
		"user_id": userID,
		"cart_id": cart.ID,
		"lines":   len(cart.Items),
	})
	return &cart, nil
}

// AddQuantity creates the cart when missing, then either increments the existing line with a
// guarded update or appends a new line. Concurrent adds for the same line cannot lose updates.
func (r *cartRepository) AddQuantity(ctx context.Context, userID, productID uint, quantity, max int) error {
	logger.Debug("Adding quantity to cart line in database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart := model.Cart{UserID: userID}
		if err := tx.Where("user_id = ?", userID).FirstOrCreate(&cart).Error; err != nil {
			return err
		}

		result := tx.Model(&model.CartItem{}).
			Where("cart_id = ? AND product_id = ? AND quantity + ? <= ?", cart.ID, productID, quantity, max).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var existing int64
		if err := tx.Model(&model.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 || quantity > max {
			return ErrQuantityLimit
		}

		return tx.Create(&model.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
		}).Error
	})
	if err != nil && !errors.Is(err, ErrQuantityLimit) {
		logger.Error("Failed to add quantity to cart line in database", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
	}
	return err
}

func (r *cartRepository) SetQuantity(ctx context.Context, cartID, productID uint, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", quantity)
	if result.Error != nil {
		logger.Error("Failed to set cart line quantity in database", result.Error, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
			"quantity":   quantity,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, cartID, productID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart line from database", result.Error, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return 0, result.Error
	}

	logger.Debug("Cart line deleted from database", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"rows":       result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *cartRepository) CountItems(ctx context.Context, cartID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CartItem{}).Where("cart_id = ?", cartID).Count(&count).Error
	return count, err
}

func (r *cartRepository) UpdateTotal(ctx context.Context, cartID uint, total float64) error {
	err := r.db.WithContext(ctx).Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("total_price", total).Error
	if err != nil {
		logger.Error("Failed to update cart total in database", err, map[string]interface{}{
			"cart_id": cartID,
			"total":   total,
		})
	}
	return err
}

// Delete removes the cart and its lines.
func (r *cartRepository) Delete(ctx context.Context, cartID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Cart{}, cartID).Error
	})
	if err != nil {
		logger.Error("Failed to delete cart from database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}

	logger.Debug("Cart deleted from database", map[string]interface{}{
		"cart_id": cartID,
	})
	return nil
}

func (r *cartRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	var cart model.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.Delete(ctx, cart.ID)
}
