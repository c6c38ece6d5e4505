package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

func (s ProductStatus) Valid() bool {
	return s == ProductStatusActive || s == ProductStatusInactive
}

type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"type:varchar(100);index" json:"category"`
	Price       float64        `gorm:"not null;default:0" json:"price"`
	Quantity    int            `gorm:"not null;default:0" json:"quantity"` // stock count
	Status      ProductStatus  `gorm:"type:varchar(20);default:'active';index" json:"status"`
	Images      pq.StringArray `gorm:"type:text" json:"images"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"` // soft delete keeps cart and checkout references resolvable
}

func (Product) TableName() string {
	return "products"
}
