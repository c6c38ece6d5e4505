package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/metrics"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrFeedbackTextRequired    = errors.New("feedback and user are required")
	ErrFeedbackFieldsRequired  = errors.New("feedback and rating are required")
	ErrCommentRequired         = errors.New("comment is required")
	ErrInvalidRating           = errors.New("rating must be between 1 and 5")
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderNotDelivered       = errors.New("feedback can only be submitted for delivered orders")
	ErrFeedbackExists          = errors.New("feedback already exists for this order")
	ErrFeedbackNotFound        = errors.New("feedback not found")
	ErrOrderFeedbackNotFound   = errors.New("feedback not found for this order")
	ErrUserFeedbackNotFound    = errors.New("no feedback found for this user")
	ErrProductOrdersNotFound   = errors.New("no orders found for this product")
	ErrFeedbackEditForbidden   = errors.New("only the author can edit this feedback")
	ErrFeedbackDeleteForbidden = errors.New("only the author can delete this feedback")
	ErrFeedbackAdminRequired   = errors.New("feedback moderation requires an employee")
	ErrFeedbackUserRequired    = errors.New("feedback must be written by a shopper")
)

const (
	ratingSummaryKey = "feedback:rating_summary"
	ratingSummaryTTL = time.Minute
)

// RatingCache caches the aggregate rating between feedback mutations.
type RatingCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// resolveRating applies the default for an omitted rating and checks the range otherwise.
func resolveRating(rating *int) (int, error) {
	if rating == nil {
		return model.DefaultRating, nil
	}
	if !model.ValidRating(*rating) {
		return 0, ErrInvalidRating
	}
	return *rating, nil
}

type FeedbackService interface {
	SubmitForOrder(ctx context.Context, orderID, userID uint, text string, rating *int) (*model.Feedback, error)
	GetByOrder(ctx context.Context, orderID uint) (*model.Feedback, error)
	GetByUser(ctx context.Context, userID uint) ([]model.Feedback, error)
	GetByProduct(ctx context.Context, productID uint) ([]model.Feedback, error)
	GetAll(ctx context.Context) ([]model.Feedback, error)
	ListAllSimple(ctx context.Context) ([]model.Feedback, error)
	GetByID(ctx context.Context, id uint) (*model.Feedback, error)
	Update(ctx context.Context, orderID uint, text string, rating *int, requester Identity) (*model.Feedback, error)
	AddGeneral(ctx context.Context, requester Identity, rating *int, comment string) (*model.Feedback, error)
	Edit(ctx context.Context, id uint, rating *int, comment string, requester Identity) (*model.Feedback, error)
	Delete(ctx context.Context, id uint, requester Identity) error
	DeleteByOrder(ctx context.Context, orderID uint, requester Identity) error
	DeleteAdmin(ctx context.Context, id uint, requester Identity) (*model.Feedback, error)
	AverageRating(ctx context.Context) (*model.RatingSummary, error)
}

type feedbackService struct {
	feedbackRepo    repository.FeedbackRepository
	checkoutRepo    repository.CheckoutRepository
	userRepo        repository.UserRepository
	checkoutService CheckoutService
	cache           RatingCache
}

// NewFeedbackService builds the feedback service. cache may be nil.
func NewFeedbackService(
	feedbackRepo repository.FeedbackRepository,
	checkoutRepo repository.CheckoutRepository,
	userRepo repository.UserRepository,
	checkoutService CheckoutService,
	cache RatingCache,
) FeedbackService {
	return &feedbackService{
		feedbackRepo:    feedbackRepo,
		checkoutRepo:    checkoutRepo,
		userRepo:        userRepo,
		checkoutService: checkoutService,
		cache:           cache,
	}
}

func (s *feedbackService) SubmitForOrder(ctx context.Context, orderID, userID uint, text string, rating *int) (*model.Feedback, error) {
	logger.Info("Submitting order feedback", map[string]interface{}{
		"order_id": orderID,
		"user_id":  userID,
	})

	text = strings.TrimSpace(text)
	if text == "" || userID == 0 {
		return nil, ErrFeedbackTextRequired
	}
	value, err := resolveRating(rating)
	if err != nil {
		return nil, err
	}

	order, err := s.checkoutService.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrCheckoutNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !s.checkoutService.CanReceiveFeedback(order) {
		logger.Warn("Feedback rejected: order not delivered", map[string]interface{}{
			"order_id": orderID,
			"status":   order.Status,
		})
		return nil, ErrOrderNotDelivered
	}

	existing, err := s.feedbackRepo.FindByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrFeedbackExists
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	feedback := &model.Feedback{
		UserID:   user.ID,
		UserName: user.Name,
		OrderID:  &orderID,
		Rating:   value,
		Comment:  text,
	}
	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		// a concurrent submit for the same order won the unique index
		if apperrors.IsDuplicateKey(err) {
			return nil, ErrFeedbackExists
		}
		return nil, err
	}
	metrics.FeedbackSubmitted.WithLabelValues("order").Inc()
	s.invalidateSummary(ctx)

	logger.Info("Order feedback submitted", map[string]interface{}{
		"feedback_id": feedback.ID,
		"order_id":    orderID,
	})
	return feedback, nil
}

func (s *feedbackService) GetByOrder(ctx context.Context, orderID uint) (*model.Feedback, error) {
	feedback, err := s.feedbackRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderFeedbackNotFound
		}
		return nil, err
	}
	return feedback, nil
}

func (s *feedbackService) GetByUser(ctx context.Context, userID uint) ([]model.Feedback, error) {
	feedbacks, err := s.feedbackRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(feedbacks) == 0 {
		return nil, ErrUserFeedbackNotFound
	}
	return feedbacks, nil
}

// GetByProduct finds the checkouts containing the product, then the feedback on those checkouts.
func (s *feedbackService) GetByProduct(ctx context.Context, productID uint) ([]model.Feedback, error) {
	orderIDs, err := s.checkoutRepo.FindIDsByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(orderIDs) == 0 {
		return nil, ErrProductOrdersNotFound
	}
	return s.feedbackRepo.FindByOrderIDs(ctx, orderIDs)
}

func (s *feedbackService) GetAll(ctx context.Context) ([]model.Feedback, error) {
	return s.feedbackRepo.FindAll(ctx)
}

func (s *feedbackService) ListAllSimple(ctx context.Context) ([]model.Feedback, error) {
	return s.feedbackRepo.FindAllNewestFirst(ctx)
}

func (s *feedbackService) GetByID(ctx context.Context, id uint) (*model.Feedback, error) {
	feedback, err := s.feedbackRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	return feedback, nil
}

// Update rewrites the feedback attached to an order. Both text and rating must be supplied.
func (s *feedbackService) Update(ctx context.Context, orderID uint, text string, rating *int, requester Identity) (*model.Feedback, error) {
	text = strings.TrimSpace(text)
	if text == "" || rating == nil {
		return nil, ErrFeedbackFieldsRequired
	}
	if !model.ValidRating(*rating) {
		return nil, ErrInvalidRating
	}

	feedback, err := s.feedbackRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	if !CapabilityFor(requester, feedback.UserID).IsOwner {
		return nil, ErrFeedbackEditForbidden
	}

	feedback.Comment = text
	feedback.Rating = *rating
	if err := s.feedbackRepo.Update(ctx, feedback); err != nil {
		return nil, err
	}
	s.invalidateSummary(ctx)
	return feedback, nil
}

func (s *feedbackService) AddGeneral(ctx context.Context, requester Identity, rating *int, comment string) (*model.Feedback, error) {
	if !requester.IsUser() {
		return nil, ErrFeedbackUserRequired
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, ErrCommentRequired
	}
	value, err := resolveRating(rating)
	if err != nil {
		return nil, err
	}

	feedback := &model.Feedback{
		UserID:   requester.ID,
		UserName: requester.Name,
		Rating:   value,
		Comment:  comment,
	}
	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return nil, err
	}
	metrics.FeedbackSubmitted.WithLabelValues("general").Inc()
	s.invalidateSummary(ctx)

	logger.Info("Feedback added", map[string]interface{}{
		"feedback_id": feedback.ID,
		"user_id":     requester.ID,
	})
	return feedback, nil
}

func (s *feedbackService) Edit(ctx context.Context, id uint, rating *int, comment string, requester Identity) (*model.Feedback, error) {
	feedback, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CapabilityFor(requester, feedback.UserID).IsOwner {
		logger.Warn("Feedback edit forbidden", map[string]interface{}{
			"feedback_id":  id,
			"requester_id": requester.ID,
		})
		return nil, ErrFeedbackEditForbidden
	}

	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, ErrCommentRequired
	}
	if rating != nil {
		if !model.ValidRating(*rating) {
			return nil, ErrInvalidRating
		}
		feedback.Rating = *rating
	}
	feedback.Comment = comment

	if err := s.feedbackRepo.Update(ctx, feedback); err != nil {
		return nil, err
	}
	s.invalidateSummary(ctx)
	return feedback, nil
}

func (s *feedbackService) Delete(ctx context.Context, id uint, requester Identity) error {
	feedback, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteOwned(ctx, feedback, requester)
}

func (s *feedbackService) DeleteByOrder(ctx context.Context, orderID uint, requester Identity) error {
	feedback, err := s.GetByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return s.deleteOwned(ctx, feedback, requester)
}

func (s *feedbackService) deleteOwned(ctx context.Context, feedback *model.Feedback, requester Identity) error {
	if !CapabilityFor(requester, feedback.UserID).IsOwner {
		logger.Warn("Feedback delete forbidden", map[string]interface{}{
			"feedback_id":  feedback.ID,
			"requester_id": requester.ID,
		})
		return ErrFeedbackDeleteForbidden
	}
	return s.remove(ctx, feedback.ID)
}

// DeleteAdmin removes any feedback; only employees hold the capability.
func (s *feedbackService) DeleteAdmin(ctx context.Context, id uint, requester Identity) (*model.Feedback, error) {
	feedback, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CapabilityFor(requester, feedback.UserID).IsAdmin {
		return nil, ErrFeedbackAdminRequired
	}
	if err := s.remove(ctx, id); err != nil {
		return nil, err
	}

	logger.Info("Feedback removed by moderator", map[string]interface{}{
		"feedback_id": id,
		"employee_id": requester.ID,
	})
	return feedback, nil
}

func (s *feedbackService) remove(ctx context.Context, id uint) error {
	rows, err := s.feedbackRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrFeedbackNotFound
	}
	s.invalidateSummary(ctx)
	return nil
}

func (s *feedbackService) AverageRating(ctx context.Context) (*model.RatingSummary, error) {
	if s.cache != nil {
		var cached model.RatingSummary
		hit, err := s.cache.GetJSON(ctx, ratingSummaryKey, &cached)
		if err != nil {
			logger.Warn("Rating cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if hit {
			metrics.CacheHits.WithLabelValues("rating_summary").Inc()
			return &cached, nil
		}
		metrics.CacheMisses.WithLabelValues("rating_summary").Inc()
	}

	summary, err := s.feedbackRepo.Summary(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, ratingSummaryKey, summary, ratingSummaryTTL); err != nil {
			logger.Warn("Rating cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return summary, nil
}

func (s *feedbackService) invalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, ratingSummaryKey); err != nil {
		logger.Warn("Rating cache invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
