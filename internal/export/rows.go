package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aik0o1/cashback-system/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlaceholderProductName is substituted when a transaction's product has been
// removed from the catalog.
const PlaceholderProductName = "Removed Product"

// Filter narrows the exported transaction set. Zero values mean "no filter".
type Filter struct {
	SaleStatus    string
	PaymentStatus string
	MerchantID    uint
	UserID        uint
	ProductName   string
	From          time.Time
	To            time.Time
}

// Row is one flattened transaction joined with its product, user and merchant
// projections. Credentials are never part of a row.
type Row struct {
	TransactionID  uint            `json:"transaction_id"`
	ProductName    string          `json:"product_name"`
	ProductPrice   decimal.Decimal `json:"product_price"`
	UserName       string          `json:"user_name"`
	UserEmail      string          `json:"user_email"`
	MerchantName   string          `json:"merchant_name"`
	CashbackRate   decimal.Decimal `json:"cashback_rate"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	CashbackAmount decimal.Decimal `json:"cashback_amount"`
	SaleStatus     string          `json:"sale_status"`
	PaymentStatus  string          `json:"payment_status"`
	PurchasedAt    time.Time       `json:"purchased_at"`
}

// BuildRows loads the transactions matching the filter and joins the related
// projections. Orphaned transactions degrade to a placeholder product with the
// snapshotted purchase amount as its price.
func BuildRows(db *gorm.DB, filter Filter) ([]Row, error) {
	query := db.Model(&model.Transaction{})

	if filter.SaleStatus != "" {
		query = query.Where("sale_status = ?", filter.SaleStatus)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("admin_payment_status = ?", filter.PaymentStatus)
	}
	if filter.MerchantID != 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if !filter.From.IsZero() {
		query = query.Where("purchased_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("purchased_at <= ?", filter.To)
	}

	var transactions []model.Transaction
	if err := query.Order("purchased_at DESC").Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	products := make(map[uint]model.Product)
	users := make(map[uint]model.User)
	merchants := make(map[uint]model.Merchant)

	for _, trx := range transactions {
		if _, ok := products[trx.ProductID]; !ok {
			var product model.Product
			if err := db.First(&product, trx.ProductID).Error; err == nil {
				products[trx.ProductID] = product
			}
		}
		if _, ok := users[trx.UserID]; !ok {
			var user model.User
			if err := db.First(&user, trx.UserID).Error; err == nil {
				users[trx.UserID] = user
			}
		}
		if _, ok := merchants[trx.MerchantID]; !ok {
			var merchant model.Merchant
			if err := db.First(&merchant, trx.MerchantID).Error; err == nil {
				merchants[trx.MerchantID] = merchant
			}
		}
	}

	rows := make([]Row, 0, len(transactions))
	for _, trx := range transactions {
		row := Row{
			TransactionID:  trx.ID,
			ProductName:    PlaceholderProductName,
			ProductPrice:   trx.PurchaseAmount,
			PurchaseAmount: trx.PurchaseAmount,
			CashbackAmount: trx.CashbackAmount,
			SaleStatus:     trx.SaleStatus,
			PaymentStatus:  trx.AdminPaymentStatus,
			PurchasedAt:    trx.PurchasedAt,
		}

		if product, ok := products[trx.ProductID]; ok {
			row.ProductName = product.Name
			row.ProductPrice = product.Price
		}
		if user, ok := users[trx.UserID]; ok {
			row.UserName = strings.TrimSpace(user.FirstName + " " + user.LastName)
			row.UserEmail = user.Email
		}
		if merchant, ok := merchants[trx.MerchantID]; ok {
			row.MerchantName = merchant.Name
			row.CashbackRate = merchant.CashbackRate
		}

		if filter.ProductName != "" &&
			!strings.Contains(strings.ToLower(row.ProductName), strings.ToLower(filter.ProductName)) {
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}
