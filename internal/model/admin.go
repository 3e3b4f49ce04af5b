package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Admin represents the administrator account. Balance is the float of
// uncollected transaction value, maintained transactionally by the ledger
// and settlement operations.
type Admin struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"type:varchar(100);not null"`
	Email     string          `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password  string          `json:"-" gorm:"type:varchar(255);not null"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:decimal(12,2);default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`
}
