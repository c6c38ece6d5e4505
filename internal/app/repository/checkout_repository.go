package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type CheckoutRepository interface {
	Create(ctx context.Context, checkout *model.Checkout) error
	FindByID(ctx context.Context, id uint) (*model.Checkout, error)
	FindAll(ctx context.Context) ([]model.Checkout, error)
	FindByUserID(ctx context.Context, userID uint) ([]model.Checkout, error)
	FindIDsByProductID(ctx context.Context, productID uint) ([]uint, error)
	UpdateStatus(ctx context.Context, id uint, status model.CheckoutStatus) error
	Delete(ctx context.Context, id uint) (int64, error)
	CountByStatus(ctx context.Context) (map[model.CheckoutStatus]int64, error)
}

type checkoutRepository struct {
	db *gorm.DB
}

func NewCheckoutRepository(db *gorm.DB) CheckoutRepository {
	return &checkoutRepository{db: db}
}

// Create inserts the checkout together with its lines.
func (r *checkoutRepository) Create(ctx context.Context, checkout *model.Checkout) error {
	logger.Debug("Creating checkout in database", map[string]interface{}{
		"user_id":     checkout.UserID,
		"total_price": checkout.TotalPrice,
		"lines":       len(checkout.Items),
	})

	if err := r.db.WithContext(ctx).Omit("User").Create(checkout).Error; err != nil {
		logger.Error("Failed to create checkout in database", err, map[string]interface{}{
			"user_id": checkout.UserID,
		})
		return err
	}

	logger.Debug("Checkout created in database", map[string]interface{}{
		"checkout_id": checkout.ID,
		"user_id":     checkout.UserID,
	})
	return nil
}

func (r *checkoutRepository) FindByID(ctx context.Context, id uint) (*model.Checkout, error) {
	var checkout model.Checkout
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items.Product", withDeletedProducts).
		First(&checkout, id).Error
	if err != nil {
		logger.Debug("Checkout not loaded by ID", map[string]interface{}{
			"checkout_id": id,
			"error":       err.Error(),
		})
		return nil, err
	}
	return &checkout, nil
}

func (r *checkoutRepository) FindAll(ctx context.Context) ([]model.Checkout, error) {
	var checkouts []model.Checkout
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items.Product", withDeletedProducts).
		Order("created_at DESC, id DESC").
		Find(&checkouts).Error
	if err != nil {
		logger.Error("Failed to find checkouts in database", err)
		return nil, err
	}

	logger.Debug("Checkouts found in database", map[string]interface{}{
		"count": len(checkouts),
	})
	return checkouts, nil
}

func (r *checkoutRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Checkout, error) {
	var checkouts []model.Checkout
	err := r.db.WithContext(ctx).
		Preload("Items.Product", withDeletedProducts).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&checkouts).Error
	if err != nil {
		logger.Error("Failed to find checkouts by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return checkouts, nil
}

func (r *checkoutRepository) FindIDsByProductID(ctx context.Context, productID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.CheckoutItem{}).
		Where("product_id = ?", productID).
		Distinct("checkout_id").
		Pluck("checkout_id", &ids).Error
	if err != nil {
		logger.Error("Failed to find checkouts containing product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return ids, nil
}

func (r *checkoutRepository) UpdateStatus(ctx context.Context, id uint, status model.CheckoutStatus) error {
	err := r.db.WithContext(ctx).Model(&model.Checkout{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		logger.Error("Failed to update checkout status in database", err, map[string]interface{}{
			"checkout_id": id,
			"status":      status,
		})
		return err
	}

	logger.Debug("Checkout status updated in database", map[string]interface{}{
		"checkout_id": id,
		"status":      status,
	})
	return nil
}

// Delete hard-deletes the checkout and its lines. Feedback attached to it is left alone.
func (r *checkoutRepository) Delete(ctx context.Context, id uint) (int64, error) {
	var rows int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("checkout_id = ?", id).Delete(&model.CheckoutItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Checkout{}, id)
		rows = result.RowsAffected
		return result.Error
	})
	if err != nil {
		logger.Error("Failed to delete checkout from database", err, map[string]interface{}{
			"checkout_id": id,
		})
		return 0, err
	}
	return rows, nil
}

func (r *checkoutRepository) CountByStatus(ctx context.Context) (map[model.CheckoutStatus]int64, error) {
	var rows []struct {
		Status model.CheckoutStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Checkout{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to count checkouts by status", err)
		return nil, err
	}

	counts := make(map[model.CheckoutStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
