package model

import "time"

const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 5
)

// Feedback is a rating and comment left by a user, optionally tied to one delivered checkout.
type Feedback struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	UserName  string    `gorm:"not null" json:"user_name"`
	OrderID   *uint     `gorm:"uniqueIndex" json:"order_id,omitempty"`
	Rating    int       `gorm:"not null;default:5" json:"rating"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User  *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Order *Checkout `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// RatingSummary is the aggregate over all feedback.
type RatingSummary struct {
	AverageRating  float64 `json:"average_rating"`
	TotalFeedbacks int64   `json:"total_feedbacks"`
}
