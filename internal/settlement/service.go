package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aik0o1/cashback-system/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service moves transaction value from the admin float to merchant balances
// and drives the bulk checkout of a user's pending transactions. Every balance
// mutation runs inside a single database transaction, so either all writes of
// an operation commit or none do.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SettleOne marks a transaction as paid and moves its total value from the
// admin balance to the merchant balance. Settling an already-paid transaction
// fails with ErrAlreadySettled and credits nothing.
func (s *Service) SettleOne(ctx context.Context, transactionID uint) (*model.Transaction, error) {
	var settled model.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trx model.Transaction
		if err := tx.First(&trx, transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("load transaction: %w", err)
		}

		if trx.AdminPaymentStatus == model.PaymentStatusPaid {
			return ErrAlreadySettled
		}

		var merchant model.Merchant
		if err := tx.First(&merchant, trx.MerchantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMerchantNotFound
			}
			return fmt.Errorf("load merchant: %w", err)
		}

		var admin model.Admin
		if err := tx.Order("id").First(&admin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAdminNotFound
			}
			return fmt.Errorf("load admin: %w", err)
		}

		// Compare-and-swap on the payment status. A concurrent settle of the
		// same transaction loses the race here and rolls back untouched.
		res := tx.Model(&model.Transaction{}).
			Where("id = ? AND admin_payment_status = ?", trx.ID, model.PaymentStatusPending).
			Update("admin_payment_status", model.PaymentStatusPaid)
		if res.Error != nil {
			return fmt.Errorf("flip payment status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadySettled
		}

		// Relative writes: concurrent settlements of other rows may move the
		// same balances between our read and our commit.
		if err := tx.Model(&admin).
			Update("balance", gorm.Expr("balance - ?", trx.TotalValue)).Error; err != nil {
			return fmt.Errorf("debit admin balance: %w", err)
		}

		if err := tx.Model(&merchant).
			Update("balance", gorm.Expr("balance + ?", trx.TotalValue)).Error; err != nil {
			return fmt.Errorf("credit merchant balance: %w", err)
		}

		settled = trx
		settled.AdminPaymentStatus = model.PaymentStatusPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &settled, nil
}

// BatchFailure describes one item of a batch that could not be processed.
type BatchFailure struct {
	TransactionID uint   `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// BatchResult reports the per-item outcome of a batch operation.
type BatchResult struct {
	Succeeded []uint         `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// SettleBatch settles each transaction in its own atomic unit. A failing item
// is recorded and processing continues with the remaining ids.
func (s *Service) SettleBatch(ctx context.Context, transactionIDs []uint) BatchResult {
	result := BatchResult{Succeeded: []uint{}, Failed: []BatchFailure{}}

	for _, id := range transactionIDs {
		if _, err := s.SettleOne(ctx, id); err != nil {
			result.Failed = append(result.Failed, BatchFailure{TransactionID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	return result
}

// CheckoutItem identifies one pending transaction by its (product, merchant)
// pair within the checking-out user's cart.
type CheckoutItem struct {
	ProductID  uint `json:"product_id"`
	MerchantID uint `json:"merchant_id"`
}

// CheckoutFailure describes a cart item with no matching pending transaction.
type CheckoutFailure struct {
	ProductID  uint   `json:"product_id"`
	MerchantID uint   `json:"merchant_id"`
	Reason     string `json:"reason"`
}

// CheckoutResult reports the per-item outcome of a bulk checkout.
type CheckoutResult struct {
	Succeeded []uint            `json:"succeeded"`
	Failed    []CheckoutFailure `json:"failed"`
}

// Checkout flips the user's pending transactions matching each item to
// completed and credits the cashback amount to the user, one atomic unit per
// item. Items with no matching pending transaction are reported in Failed and
// processing continues; completed items stay completed.
func (s *Service) Checkout(ctx context.Context, userID uint, items []CheckoutItem) (CheckoutResult, error) {
	result := CheckoutResult{Succeeded: []uint{}, Failed: []CheckoutFailure{}}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, ErrUserNotFound
		}
		return result, fmt.Errorf("load user: %w", err)
	}

	for _, item := range items {
		id, err := s.checkoutOne(ctx, userID, item)
		if err != nil {
			result.Failed = append(result.Failed, CheckoutFailure{
				ProductID:  item.ProductID,
				MerchantID: item.MerchantID,
				Reason:     err.Error(),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	return result, nil
}

func (s *Service) checkoutOne(ctx context.Context, userID uint, item CheckoutItem) (uint, error) {
	var completedID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trx model.Transaction
		err := tx.Where(
			"product_id = ? AND user_id = ? AND merchant_id = ? AND sale_status = ?",
			item.ProductID, userID, item.MerchantID, model.SaleStatusPending,
		).First(&trx).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoPendingTransaction
			}
			return fmt.Errorf("find pending transaction: %w", err)
		}

		res := tx.Model(&model.Transaction{}).
			Where("id = ? AND sale_status = ?", trx.ID, model.SaleStatusPending).
			Update("sale_status", model.SaleStatusCompleted)
		if res.Error != nil {
			return fmt.Errorf("complete transaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNoPendingTransaction
		}

		// The buyer's cashback accrues when the purchase completes, in the
		// same unit as the status flip.
		if err := tx.Model(&model.User{}).Where("id = ?", userID).
			Update("cashback", gorm.Expr("cashback + ?", trx.CashbackAmount)).Error; err != nil {
			return fmt.Errorf("credit user cashback: %w", err)
		}

		completedID = trx.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	return completedID, nil
}

// FloatReport compares the persisted admin balance against the value derived
// from the ledger. The persisted balance is canonical; the derived sum exists
// as a reconciliation check.
type FloatReport struct {
	StoredBalance  decimal.Decimal `json:"stored_balance"`
	DerivedBalance decimal.Decimal `json:"derived_balance"`
	Drift          bool            `json:"drift"`
}

// Float computes the admin float report.
func (s *Service) Float(ctx context.Context) (FloatReport, error) {
	var admin model.Admin
	if err := s.db.WithContext(ctx).Order("id").First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return FloatReport{}, ErrAdminNotFound
		}
		return FloatReport{}, fmt.Errorf("load admin: %w", err)
	}

	var unpaid []model.Transaction
	if err := s.db.WithContext(ctx).
		Where("admin_payment_status <> ?", model.PaymentStatusPaid).
		Find(&unpaid).Error; err != nil {
		return FloatReport{}, fmt.Errorf("load unpaid transactions: %w", err)
	}

	derived := decimal.Zero
	for _, trx := range unpaid {
		derived = derived.Add(trx.TotalValue)
	}

	return FloatReport{
		StoredBalance:  admin.Balance,
		DerivedBalance: derived,
		Drift:          !admin.Balance.Equal(derived),
	}, nil
}
