package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/metrics"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCheckoutNotFound  = errors.New("checkout not found")
	ErrInvalidCheckout   = errors.New("invalid checkout")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrIllegalTransition = errors.New("status transition not allowed")
	ErrInvalidReceipt    = errors.New("invalid receipt")
)

const receiptFolder = "receipts"

type CheckoutItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// ReceiptUpload is an optional proof-of-payment file attached to a checkout.
type ReceiptUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type CreateCheckoutInput struct {
	Address     string
	PhoneNumber string
	Email       string
	Items       []CheckoutItemInput
	TotalPrice  float64
	Receipt     *ReceiptUpload
}

func (in CreateCheckoutInput) validate() error {
	switch {
	case strings.TrimSpace(in.Address) == "":
		return fmt.Errorf("%w: address is required", ErrInvalidCheckout)
	case strings.TrimSpace(in.PhoneNumber) == "":
		return fmt.Errorf("%w: phone number is required", ErrInvalidCheckout)
	case strings.TrimSpace(in.Email) == "":
		return fmt.Errorf("%w: email is required", ErrInvalidCheckout)
	case len(in.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", ErrInvalidCheckout)
	case in.TotalPrice < 0:
		return fmt.Errorf("%w: total price must not be negative", ErrInvalidCheckout)
	}
	for _, item := range in.Items {
		if item.ProductID == 0 || item.Quantity < 1 {
			return fmt.Errorf("%w: every item needs a product and a quantity of at least 1", ErrInvalidCheckout)
		}
	}
	return nil
}

// CheckoutEventPublisher receives lifecycle events for live dashboards.
type CheckoutEventPublisher interface {
	PublishCheckoutEvent(event model.CheckoutEvent)
}

type CheckoutOptions struct {
	ClearCartOnCheckout bool
	StrictTransitions   bool
}

type CheckoutService interface {
	CreateCheckout(ctx context.Context, userID uint, input CreateCheckoutInput) (*model.Checkout, error)
	UpdateStatus(ctx context.Context, checkoutID uint, status model.CheckoutStatus) (*model.Checkout, error)
	GetByID(ctx context.Context, checkoutID uint) (*model.Checkout, error)
	ListAll(ctx context.Context) ([]model.Checkout, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Checkout, error)
	DeleteCheckout(ctx context.Context, checkoutID uint) error
	Stats(ctx context.Context) (*model.CheckoutStats, error)
	CanReceiveFeedback(checkout *model.Checkout) bool
}

type checkoutService struct {
	checkoutRepo repository.CheckoutRepository
	productRepo  repository.ProductRepository
	cartService  CartService
	files        storage.Storage
	events       CheckoutEventPublisher
	opts         CheckoutOptions
}

// NewCheckoutService wires the order lifecycle. files and events may be nil; receipts are then
// rejected and no events are published.
func NewCheckoutService(
	checkoutRepo repository.CheckoutRepository,
	productRepo repository.ProductRepository,
	cartService CartService,
	files storage.Storage,
	events CheckoutEventPublisher,
	opts CheckoutOptions,
) CheckoutService {
	return &checkoutService{
		checkoutRepo: checkoutRepo,
		productRepo:  productRepo,
		cartService:  cartService,
		files:        files,
		events:       events,
		opts:         opts,
	}
}

func (s *checkoutService) publish(event model.CheckoutEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = time.Now()
	s.events.PublishCheckoutEvent(event)
}

// mergeItems folds repeated products into one line, keeping first-seen order.
func mergeItems(items []CheckoutItemInput) []model.CheckoutItem {
	index := make(map[uint]int, len(items))
	lines := make([]model.CheckoutItem, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, model.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func (s *checkoutService) CreateCheckout(ctx context.Context, userID uint, input CreateCheckoutInput) (*model.Checkout, error) {
	logger.Info("Creating checkout", map[string]interface{}{
		"user_id":     userID,
		"items":       len(input.Items),
		"total_price": input.TotalPrice,
	})

	if err := input.validate(); err != nil {
		return nil, err
	}

	lines := mergeItems(input.Items)
	for _, line := range lines {
		if _, err := s.productRepo.FindByID(ctx, line.ProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
	}

	checkout := &model.Checkout{
		UserID:      userID,
		Address:     strings.TrimSpace(input.Address),
		Email:       strings.TrimSpace(input.Email),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		TotalPrice:  input.TotalPrice,
		Status:      model.CheckoutStatusPending,
		Items:       lines,
	}

	if input.Receipt != nil {
		if err := s.storeReceipt(ctx, checkout, input.Receipt); err != nil {
			return nil, err
		}
	}

	if err := s.checkoutRepo.Create(ctx, checkout); err != nil {
		logger.Error("Failed to create checkout", err, map[string]interface{}{
			"user_id": userID,
		})
		s.discardReceipt(ctx, checkout)
		return nil, err
	}
	metrics.CheckoutsCreated.Inc()

	// the checkout stands even if the cart cannot be cleared
	if s.opts.ClearCartOnCheckout {
		if err := s.cartService.ClearCart(ctx, userID); err != nil {
			logger.Warn("Checkout created but cart was not cleared", map[string]interface{}{
				"user_id":     userID,
				"checkout_id": checkout.ID,
				"error":       err.Error(),
			})
		}
	}

	s.publish(model.CheckoutEvent{
		Type:       model.CheckoutEventCreated,
		CheckoutID: checkout.ID,
		UserID:     userID,
		Status:     checkout.Status,
		TotalPrice: checkout.TotalPrice,
	})

	logger.Info("Checkout created", map[string]interface{}{
		"checkout_id": checkout.ID,
		"user_id":     userID,
	})
	return s.GetByID(ctx, checkout.ID)
}

func (s *checkoutService) storeReceipt(ctx context.Context, checkout *model.Checkout, receipt *ReceiptUpload) error {
	if s.files == nil {
		return fmt.Errorf("%w: uploads are not enabled", ErrInvalidReceipt)
	}
	if err := storage.ValidateFileSize(receipt.Size, storage.MaxReceiptSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	if err := storage.ValidateContentType(receipt.ContentType, storage.ReceiptContentTypes); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}

	key := storage.NewKey(receiptFolder, receipt.Filename)
	url, err := s.files.Put(ctx, key, receipt.Body, receipt.Size, receipt.ContentType)
	if err != nil {
		return err
	}
	checkout.ReceiptKey = key
	checkout.ReceiptURL = url
	return nil
}

func (s *checkoutService) discardReceipt(ctx context.Context, checkout *model.Checkout) {
	if s.files == nil || checkout.ReceiptKey == "" {
		return
	}
	if err := s.files.Delete(ctx, checkout.ReceiptKey); err != nil {
		logger.Warn("Failed to remove receipt", map[string]interface{}{
			"key":   checkout.ReceiptKey,
			"error": err.Error(),
		})
	}
}

func (s *checkoutService) UpdateStatus(ctx context.Context, checkoutID uint, status model.CheckoutStatus) (*model.Checkout, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	checkout, err := s.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	previous := checkout.Status
	if previous == status {
		return checkout, nil
	}

	if s.opts.StrictTransitions && !previous.CanTransitionTo(status) {
		metrics.CheckoutTransitionsRejected.WithLabelValues(string(previous), string(status)).Inc()
		logger.Warn("Checkout status transition rejected", map[string]interface{}{
			"checkout_id": checkoutID,
			"from":        previous,
			"to":          status,
		})
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, previous, status)
	}

	if err := s.checkoutRepo.UpdateStatus(ctx, checkoutID, status); err != nil {
		return nil, err
	}
	checkout.Status = status
	metrics.CheckoutTransitions.WithLabelValues(string(previous), string(status)).Inc()

	s.publish(model.CheckoutEvent{
		Type:           model.CheckoutEventStatusChanged,
		CheckoutID:     checkoutID,
		UserID:         checkout.UserID,
		Status:         status,
		PreviousStatus: previous,
	})

	logger.Info("Checkout status updated", map[string]interface{}{
		"checkout_id": checkoutID,
		"from":        previous,
		"to":          status,
	})
	return checkout, nil
}

func (s *checkoutService) GetByID(ctx context.Context, checkoutID uint) (*model.Checkout, error) {
	checkout, err := s.checkoutRepo.FindByID(ctx, checkoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckoutNotFound
		}
		logger.Error("Failed to fetch checkout", err, map[string]interface{}{
			"checkout_id": checkoutID,
		})
		return nil, err
	}
	return checkout, nil
}

func (s *checkoutService) ListAll(ctx context.Context) ([]model.Checkout, error) {
	return s.checkoutRepo.FindAll(ctx)
}

func (s *checkoutService) ListByUser(ctx context.Context, userID uint) ([]model.Checkout, error) {
	return s.checkoutRepo.FindByUserID(ctx, userID)
}

// DeleteCheckout removes the checkout and its lines. Feedback attached to it is kept.
func (s *checkoutService) DeleteCheckout(ctx context.Context, checkoutID uint) error {
	checkout, err := s.GetByID(ctx, checkoutID)
	if err != nil {
		return err
	}

	rows, err := s.checkoutRepo.Delete(ctx, checkoutID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCheckoutNotFound
	}
	s.discardReceipt(ctx, checkout)

	s.publish(model.CheckoutEvent{
		Type:       model.CheckoutEventDeleted,
		CheckoutID: checkoutID,
		UserID:     checkout.UserID,
	})

	logger.Info("Checkout deleted", map[string]interface{}{
		"checkout_id": checkoutID,
	})
	return nil
}

func (s *checkoutService) Stats(ctx context.Context) (*model.CheckoutStats, error) {
	counts, err := s.checkoutRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.CheckoutStats{ByStatus: make(map[model.CheckoutStatus]int64, len(model.CheckoutStatuses))}
	for _, status := range model.CheckoutStatuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

func (s *checkoutService) CanReceiveFeedback(checkout *model.Checkout) bool {
	return checkout != nil && checkout.AcceptsFeedback()
}
