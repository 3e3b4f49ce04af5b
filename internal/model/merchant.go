package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Merchant represents a business enrolled in the cashback program.
// Its balance accumulates funds moved from the admin float by settlement.
type Merchant struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Name           string          `json:"name" gorm:"type:varchar(100);not null"`
	StoreName      string          `json:"store_name" gorm:"type:varchar(100);not null"`
	Email          string          `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	CNPJ           string          `json:"cnpj" gorm:"type:varchar(20);uniqueIndex;not null"`
	Password       string          `json:"-" gorm:"type:varchar(255);not null"`
	CashbackRate   decimal.Decimal `json:"cashback_rate" gorm:"type:decimal(5,2);not null"`
	CashbackExpiry time.Time       `json:"cashback_expiry" gorm:"not null"`
	Balance        decimal.Decimal `json:"balance" gorm:"type:decimal(12,2);default:0"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}
