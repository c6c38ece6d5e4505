package repository

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *model.Feedback) error
	FindByID(ctx context.Context, id uint) (*model.Feedback, error)
	FindByOrderID(ctx context.Context, orderID uint) (*model.Feedback, error)
	FindByUserID(ctx context.Context, userID uint) ([]model.Feedback, error)
	FindByOrderIDs(ctx context.Context, orderIDs []uint) ([]model.Feedback, error)
	FindAll(ctx context.Context) ([]model.Feedback, error)
	FindAllNewestFirst(ctx context.Context) ([]model.Feedback, error)
	Update(ctx context.Context, feedback *model.Feedback) error
	Delete(ctx context.Context, id uint) (int64, error)
	Summary(ctx context.Context) (*model.RatingSummary, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *model.Feedback) error {
	logger.Debug("Creating feedback in database", map[string]interface{}{
		"user_id":  feedback.UserID,
		"order_id": feedback.OrderID,
		"rating":   feedback.Rating,
	})

	if err := r.db.WithContext(ctx).Omit("User", "Order").Create(feedback).Error; err != nil {
		logger.Error("Failed to create feedback in database", err, map[string]interface{}{
			"user_id": feedback.UserID,
		})
		return err
	}

	logger.Debug("Feedback created in database", map[string]interface{}{
		"feedback_id": feedback.ID,
	})
	return nil
}

func (r *feedbackRepository) FindByID(ctx context.Context, id uint) (*model.Feedback, error) {
	var feedback model.Feedback
	if err := r.db.WithContext(ctx).Preload("User").First(&feedback, id).Error; err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepository) FindByOrderID(ctx context.Context, orderID uint) (*model.Feedback, error) {
	var feedback model.Feedback
	if err := r.db.WithContext(ctx).Preload("User").Where("order_id = ?", orderID).First(&feedback).Error; err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Feedback, error) {
	var feedbacks []model.Feedback
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&feedbacks).Error
	if err != nil {
		logger.Error("Failed to find feedback by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return feedbacks, nil
}

func (r *feedbackRepository) FindByOrderIDs(ctx context.Context, orderIDs []uint) ([]model.Feedback, error) {
	var feedbacks []model.Feedback
	if len(orderIDs) == 0 {
		return feedbacks, nil
	}
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Order").
		Where("order_id IN ?", orderIDs).
		Order("created_at DESC, id DESC").
		Find(&feedbacks).Error
	if err != nil {
		logger.Error("Failed to find feedback by order IDs in database", err, map[string]interface{}{
			"orders": len(orderIDs),
		})
		return nil, err
	}
	return feedbacks, nil
}

// FindAll resolves the author and the order for the moderation view.
func (r *feedbackRepository) FindAll(ctx context.Context) ([]model.Feedback, error) {
	var feedbacks []model.Feedback
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Order").
		Order("id ASC").
		Find(&feedbacks).Error
	if err != nil {
		logger.Error("Failed to find feedback in database", err)
		return nil, err
	}

	logger.Debug("Feedback found in database", map[string]interface{}{
		"count": len(feedbacks),
	})
	return feedbacks, nil
}

func (r *feedbackRepository) FindAllNewestFirst(ctx context.Context) ([]model.Feedback, error) {
	var feedbacks []model.Feedback
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&feedbacks).Error
	if err != nil {
		logger.Error("Failed to list feedback in database", err)
		return nil, err
	}
	return feedbacks, nil
}

func (r *feedbackRepository) Update(ctx context.Context, feedback *model.Feedback) error {
	err := r.db.WithContext(ctx).Model(feedback).
		Select("Rating", "Comment", "UpdatedAt").
		Updates(feedback).Error
	if err != nil {
		logger.Error("Failed to update feedback in database", err, map[string]interface{}{
			"feedback_id": feedback.ID,
		})
		return err
	}

	logger.Debug("Feedback updated in database", map[string]interface{}{
		"feedback_id": feedback.ID,
		"rating":      feedback.Rating,
	})
	return nil
}

func (r *feedbackRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&model.Feedback{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete feedback from database", result.Error, map[string]interface{}{
			"feedback_id": id,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Summary averages the ratings over every feedback; an empty table yields zeros.
func (r *feedbackRepository) Summary(ctx context.Context) (*model.RatingSummary, error) {
	var summary model.RatingSummary
	err := r.db.WithContext(ctx).Model(&model.Feedback{}).
		Select("COALESCE(AVG(rating), 0) AS average_rating, COUNT(*) AS total_feedbacks").
		Scan(&summary).Error
	if err != nil {
		logger.Error("Failed to aggregate feedback ratings", err)
		return nil, err
	}
	return &summary, nil
}
