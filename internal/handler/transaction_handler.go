package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Aik0o1/cashback-system/internal/export"
	"github.com/Aik0o1/cashback-system/internal/middleware"
	"github.com/Aik0o1/cashback-system/internal/model"
	"github.com/Aik0o1/cashback-system/internal/settlement"
	"github.com/Aik0o1/cashback-system/pkg/database"
	"github.com/Aik0o1/cashback-system/pkg/jwtutil"
	"github.com/Aik0o1/cashback-system/pkg/logger"
	"github.com/Aik0o1/cashback-system/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// CreateTransactionRequest defines the payload for a purchase intent
type CreateTransactionRequest struct {
	ProductID  uint `json:"product_id"`
	UserID     uint `json:"user_id"`
	MerchantID uint `json:"merchant_id"`
}

// CreateTransaction records a purchase intent. The purchase amount snapshots
// the product price and the cashback amount is computed from the merchant's
// current rate. The admin float grows by the transaction value in the same
// database transaction.
func CreateTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.TransactionCounter.WithLabelValues("create").Inc()

	var req CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if !requesterOwnsUser(c, req.UserID) {
		log.Warn("Transaction create blocked",
			zap.Uint("target_user_id", req.UserID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot create transactions for another user"})
	}

	db := database.GetDB()

	var product model.Product
	if err := db.First(&product, req.ProductID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}

	var user model.User
	if err := db.First(&user, req.UserID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	var merchant model.Merchant
	if err := db.First(&merchant, req.MerchantID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	purchaseAmount := product.Price
	cashbackAmount := purchaseAmount.Mul(merchant.CashbackRate).Div(oneHundred)

	trx := model.Transaction{
		ProductID:          product.ID,
		UserID:             user.ID,
		MerchantID:         merchant.ID,
		PurchaseAmount:     purchaseAmount,
		CashbackAmount:     cashbackAmount,
		TotalValue:         purchaseAmount,
		SaleStatus:         model.SaleStatusPending,
		AdminPaymentStatus: model.PaymentStatusPending,
		PurchasedAt:        time.Now(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}

		// The stored admin float tracks the unsettled transaction value.
		var admin model.Admin
		if err := tx.Order("id").First(&admin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return tx.Model(&admin).
			Update("balance", gorm.Expr("balance + ?", trx.TotalValue)).Error
	})
	if err != nil {
		log.Error("Failed to create transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create transaction"})
	}

	log.Info("Transaction created",
		zap.Uint("transaction_id", trx.ID),
		zap.Uint("user_id", user.ID),
		zap.Uint("merchant_id", merchant.ID),
		zap.String("purchase_amount", purchaseAmount.StringFixed(2)),
		zap.String("cashback_amount", cashbackAmount.StringFixed(2)))
	return c.JSON(http.StatusCreated, trx)
}

// productView is the projection embedded in transaction listings. Orphaned
// transactions carry the placeholder with the snapshotted amount as price.
type productView struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
}

type accountView struct {
	Name string `json:"name"`
}

type merchantView struct {
	Name         string          `json:"name"`
	CashbackRate decimal.Decimal `json:"cashback_rate"`
}

type transactionView struct {
	model.Transaction
	Product  productView  `json:"product"`
	User     accountView  `json:"user"`
	Merchant merchantView `json:"merchant"`
}

func buildTransactionViews(db *gorm.DB, transactions []model.Transaction) []transactionView {
	views := make([]transactionView, 0, len(transactions))

	for _, trx := range transactions {
		view := transactionView{
			Transaction: trx,
			Product: productView{
				Name:  export.PlaceholderProductName,
				Price: trx.PurchaseAmount,
			},
		}

		var product model.Product
		if err := db.First(&product, trx.ProductID).Error; err == nil {
			view.Product = productView{Name: product.Name, Price: product.Price, ImageURL: product.ImageURL}
		}

		var user model.User
		if err := db.First(&user, trx.UserID).Error; err == nil {
			view.User = accountView{Name: user.FirstName + " " + user.LastName}
		}

		var merchant model.Merchant
		if err := db.First(&merchant, trx.MerchantID).Error; err == nil {
			view.Merchant = merchantView{Name: merchant.Name, CashbackRate: merchant.CashbackRate}
		}

		views = append(views, view)
	}

	return views
}

// ListTransactions returns every transaction, newest first
func ListTransactions(c echo.Context) error {
	db := database.GetDB()

	var transactions []model.Transaction
	if err := db.Order("purchased_at DESC").Find(&transactions).Error; err != nil {
		logger.FromContext(c).Error("Failed to list transactions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve transactions"})
	}

	return c.JSON(http.StatusOK, buildTransactionViews(db, transactions))
}

func listUserTransactionsByStatus(c echo.Context, saleStatus string) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if !requesterOwnsUser(c, uint(userID)) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "transactions belong to another user"})
	}

	db := database.GetDB()

	var transactions []model.Transaction
	err = db.Where("user_id = ? AND sale_status = ?", uint(userID), saleStatus).
		Order("purchased_at DESC").
		Find(&transactions).Error
	if err != nil {
		logger.FromContext(c).Error("Failed to list user transactions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve transactions"})
	}

	return c.JSON(http.StatusOK, buildTransactionViews(db, transactions))
}

// ListUserPendingTransactions returns a user's cart (pending transactions)
func ListUserPendingTransactions(c echo.Context) error {
	return listUserTransactionsByStatus(c, model.SaleStatusPending)
}

// ListUserCompletedTransactions returns a user's completed purchases
func ListUserCompletedTransactions(c echo.Context) error {
	return listUserTransactionsByStatus(c, model.SaleStatusCompleted)
}

// ListMerchantTransactions returns the authenticated merchant's transactions
func ListMerchantTransactions(c echo.Context) error {
	claims, ok := middleware.AccountFromContext(c)
	if !ok || claims.AccountKind != jwtutil.KindMerchant {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "merchant account required"})
	}

	db := database.GetDB()
	var transactions []model.Transaction
	err := db.Where("merchant_id = ?", claims.AccountID).
		Order("purchased_at DESC").
		Find(&transactions).Error
	if err != nil {
		logger.FromContext(c).Error("Failed to list merchant transactions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve transactions"})
	}

	return c.JSON(http.StatusOK, buildTransactionViews(db, transactions))
}

// UpdateTransactionStatus updates the sale status of a transaction owned by
// the authenticated merchant
func UpdateTransactionStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.TransactionCounter.WithLabelValues("status_update").Inc()

	claims, ok := middleware.AccountFromContext(c)
	if !ok || claims.AccountKind != jwtutil.KindMerchant {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "merchant account required"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if !model.ValidSaleStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be pending or completed"})
	}

	db := database.GetDB()
	var trx model.Transaction
	if err := db.First(&trx, c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}

	if trx.MerchantID != claims.AccountID {
		log.Warn("Transaction owned by another merchant",
			zap.Uint("transaction_id", trx.ID),
			zap.Uint("requester", claims.AccountID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "transaction belongs to another merchant"})
	}

	trx.SaleStatus = req.Status
	if err := db.Save(&trx).Error; err != nil {
		log.Error("Failed to update transaction status", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	log.Info("Transaction status updated",
		zap.Uint("transaction_id", trx.ID),
		zap.String("status", trx.SaleStatus))
	return c.JSON(http.StatusOK, trx)
}

// DeleteTransaction removes a ledger row unconditionally. Deleting an unpaid
// row shrinks the admin float by its value in the same database transaction.
func DeleteTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.TransactionCounter.WithLabelValues("delete").Inc()

	db := database.GetDB()
	var trx model.Transaction
	if err := db.First(&trx, c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&trx).Error; err != nil {
			return err
		}

		if trx.AdminPaymentStatus == model.PaymentStatusPaid {
			return nil
		}

		var admin model.Admin
		if err := tx.Order("id").First(&admin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return tx.Model(&admin).
			Update("balance", gorm.Expr("balance - ?", trx.TotalValue)).Error
	})
	if err != nil {
		log.Error("Failed to delete transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete transaction"})
	}

	log.Info("Transaction deleted", zap.Uint("transaction_id", trx.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "transaction deleted"})
}

// VerifyProductTransactions reports how many transactions reference a product
func VerifyProductTransactions(c echo.Context) error {
	var count int64
	if err := database.GetDB().Model(&model.Transaction{}).
		Where("product_id = ?", c.Param("id")).
		Count(&count).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to verify transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"has_transactions": count > 0,
		"count":            count,
	})
}

// CheckoutRequest defines the payload of a bulk checkout
type CheckoutRequest struct {
	UserID uint                      `json:"user_id"`
	Items  []settlement.CheckoutItem `json:"items"`
}

// Checkout flips the user's matching pending transactions to completed, one
// atomic unit per item, and reports the per-item outcome.
func Checkout(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.TransactionCounter.WithLabelValues("checkout").Inc()

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items are required"})
	}

	if !requesterOwnsUser(c, req.UserID) {
		log.Warn("Checkout blocked",
			zap.Uint("target_user_id", req.UserID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot check out another user's cart"})
	}

	svc := settlement.New(database.GetDB())
	result, err := svc.Checkout(c.Request().Context(), req.UserID, req.Items)
	if err != nil {
		if errors.Is(err, settlement.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error("Checkout failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
	}

	log.Info("Checkout processed",
		zap.Uint("user_id", req.UserID),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)))
	return c.JSON(http.StatusOK, result)
}
