package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User represents an end user who earns cashback on purchases
type User struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Username  string          `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	FirstName string          `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName  string          `json:"last_name" gorm:"type:varchar(100);not null"`
	Email     string          `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password  string          `json:"-" gorm:"type:varchar(255);not null"`
	Cashback  decimal.Decimal `json:"cashback" gorm:"type:decimal(12,2);default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`
}
