package model

import (
	"time"
)

type CheckoutStatus string

const (
	CheckoutStatusPending    CheckoutStatus = "Pending"
	CheckoutStatusProcessing CheckoutStatus = "Processing"
	CheckoutStatusShipped    CheckoutStatus = "Shipped"
	CheckoutStatusDelivered  CheckoutStatus = "Delivered"
	CheckoutStatusCancelled  CheckoutStatus = "Cancelled"
)

// CheckoutStatuses lists every status in lifecycle order.
var CheckoutStatuses = []CheckoutStatus{
	CheckoutStatusPending,
	CheckoutStatusProcessing,
	CheckoutStatusShipped,
	CheckoutStatusDelivered,
	CheckoutStatusCancelled,
}

// checkoutTransitions holds the forward edges; Delivered and Cancelled are terminal.
var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusPending:    {CheckoutStatusProcessing, CheckoutStatusCancelled},
	CheckoutStatusProcessing: {CheckoutStatusShipped, CheckoutStatusCancelled},
	CheckoutStatusShipped:    {CheckoutStatusDelivered, CheckoutStatusCancelled},
}

func (s CheckoutStatus) Valid() bool {
	for _, known := range CheckoutStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next may follow s. Re-applying the current status is allowed.
func (s CheckoutStatus) CanTransitionTo(next CheckoutStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range checkoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Checkout struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Address     string         `gorm:"type:text;not null" json:"address"`
	Email       string         `gorm:"not null" json:"email"`
	PhoneNumber string         `gorm:"not null" json:"phone_number"`
	TotalPrice  float64        `gorm:"not null" json:"total_price"` // as submitted by the client
	Status      CheckoutStatus `gorm:"type:varchar(20);default:'Pending';index" json:"status"`
	ReceiptURL  string         `json:"receipt_url,omitempty"`
	ReceiptKey  string         `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	User  *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []CheckoutItem `gorm:"foreignKey:CheckoutID" json:"items"`
}

func (Checkout) TableName() string {
	return "checkouts"
}

// AcceptsFeedback reports whether order-scoped feedback may be attached.
func (c *Checkout) AcceptsFeedback() bool {
	return c.Status == CheckoutStatusDelivered
}

// CheckoutItem references a product; its price is read from the product, not stored.
type CheckoutItem struct {
	ID         uint `gorm:"primarykey" json:"id"`
	CheckoutID uint `gorm:"not null;index" json:"-"`
	ProductID  uint `gorm:"not null;index" json:"product_id"`
	Quantity   int  `gorm:"not null" json:"quantity"`

	Product Product `gorm:"foreignKey:ProductID" json:"product"`
}

func (CheckoutItem) TableName() string {
	return "checkout_items"
}

// CheckoutStats counts checkouts per status for the employee dashboard.
type CheckoutStats struct {
	Total    int64                    `json:"total"`
	ByStatus map[CheckoutStatus]int64 `json:"by_status"`
}

const (
	CheckoutEventCreated       = "checkout.created"
	CheckoutEventStatusChanged = "checkout.status_changed"
	CheckoutEventDeleted       = "checkout.deleted"
)

// CheckoutEvent is pushed to connected employee dashboards.
type CheckoutEvent struct {
	Type           string         `json:"type"`
	CheckoutID     uint           `json:"checkout_id"`
	UserID         uint           `json:"user_id,omitempty"`
	Status         CheckoutStatus `json:"status,omitempty"`
	PreviousStatus CheckoutStatus `json:"previous_status,omitempty"`
	TotalPrice     float64        `json:"total_price,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
