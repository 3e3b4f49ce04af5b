package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product belongs to exactly one merchant. The merchant's product list is not
// duplicated on the merchant row; products are queried by merchant_id.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"type:varchar(100);not null"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Category    string          `json:"category" gorm:"type:varchar(50);not null"`
	ImageURL    string          `json:"image_url" gorm:"type:varchar(255)"`
	MerchantID  uint            `json:"merchant_id" gorm:"index;not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}
