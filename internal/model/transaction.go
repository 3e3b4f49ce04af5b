package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale lifecycle of the purchase itself (cart -> checkout).
const (
	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
)

// Lifecycle of admin-to-merchant fund settlement, independent of the sale status.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Transaction is the ledger entity recording a purchase intent. Amounts are
// snapshots taken at creation time: a later price or rate change never touches
// existing rows. Ledger rows are hard-deleted, so references may dangle; list
// operations substitute a placeholder product projection for orphaned rows.
type Transaction struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	ProductID          uint            `json:"product_id" gorm:"index;not null"`
	UserID             uint            `json:"user_id" gorm:"index;not null"`
	MerchantID         uint            `json:"merchant_id" gorm:"index;not null"`
	PurchaseAmount     decimal.Decimal `json:"purchase_amount" gorm:"type:decimal(12,2);not null"`
	CashbackAmount     decimal.Decimal `json:"cashback_amount" gorm:"type:decimal(12,2);not null"`
	TotalValue         decimal.Decimal `json:"total_value" gorm:"type:decimal(12,2);not null"`
	SaleStatus         string          `json:"sale_status" gorm:"type:varchar(20);not null;default:'pending'"`
	AdminPaymentStatus string          `json:"admin_payment_status" gorm:"type:varchar(20);not null;default:'pending'"`
	PurchasedAt        time.Time       `json:"purchased_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ValidSaleStatus reports whether s is one of the two sale statuses.
func ValidSaleStatus(s string) bool {
	return s == SaleStatusPending || s == SaleStatusCompleted
}
