package handler

import (
	"net/http"
	"testing"

	"github.com/Aik0o1/cashback-system/internal/export"
	"github.com/Aik0o1/cashback-system/internal/model"
	"github.com/Aik0o1/cashback-system/internal/settlement"
	"github.com/Aik0o1/cashback-system/pkg/jwtutil"
	"gorm.io/gorm"
)

func TestCreateTransaction(t *testing.T) {
	db := setupTest(t)
	seedAdmin(t, db, "0")
	merchant := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	user := seedUser(t, db, "joao", "joao@user.test")
	product := seedProduct(t, db, merchant.ID, "Caneca", "100")

	t.Run("snapshots price and computes cashback from the current rate", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "/transactions", map[string]uint{
			"product_id":  product.ID,
			"user_id":     user.ID,
			"merchant_id": merchant.ID,
		})
		asAccount(c, jwtutil.KindUser, user.ID)
		if err := CreateTransaction(c); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var trx model.Transaction
		decodeBody(t, rec, &trx)
		if !trx.PurchaseAmount.Equal(mustDecimal(t, "100")) {
			t.Errorf("expected purchase amount 100, got %s", trx.PurchaseAmount)
		}
		if !trx.CashbackAmount.Equal(mustDecimal(t, "10")) {
			t.Errorf("expected cashback 10, got %s", trx.CashbackAmount)
		}
		if trx.SaleStatus != model.SaleStatusPending {
			t.Errorf("expected sale status pending, got %s", trx.SaleStatus)
		}
		if trx.AdminPaymentStatus != model.PaymentStatusPending {
			t.Errorf("expected payment status pending, got %s", trx.AdminPaymentStatus)
		}
	})

	t.Run("grows the admin float", func(t *testing.T) {
		var admin model.Admin
		if err := db.Order("id").First(&admin).Error; err != nil {
			t.Fatalf("reload admin: %v", err)
		}
		if !admin.Balance.Equal(mustDecimal(t, "100")) {
			t.Errorf("expected admin balance 100, got %s", admin.Balance)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "/transactions", map[string]uint{
			"product_id":  999,
			"user_id":     user.ID,
			"merchant_id": merchant.ID,
		})
		asAccount(c, jwtutil.KindUser, user.ID)
		if err := CreateTransaction(c); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "/transactions", map[string]uint{
			"product_id":  product.ID,
			"user_id":     999,
			"merchant_id": merchant.ID,
		})
		asAccount(c, jwtutil.KindAdmin, 1)
		if err := CreateTransaction(c); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("another user's id is forbidden", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "/transactions", map[string]uint{
			"product_id":  product.ID,
			"user_id":     user.ID,
			"merchant_id": merchant.ID,
		})
		asAccount(c, jwtutil.KindUser, user.ID+1)
		if err := CreateTransaction(c); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestListTransactions_OrphanPlaceholder(t *testing.T) {
	db := setupTest(t)
	merchant := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	user := seedUser(t, db, "joao", "joao@user.test")
	product := seedProduct(t, db, merchant.ID, "Caneca", "100")
	seedLedgerRow(t, db, product.ID, user.ID, merchant.ID, "100", "10")

	// Orphan the transaction
	if err := db.Delete(&model.Product{}, product.ID).Error; err != nil {
		t.Fatalf("delete product: %v", err)
	}

	c, rec := jsonContext(t, http.MethodGet, "/transactions", nil)
	asAccount(c, jwtutil.KindAdmin, 1)
	if err := ListTransactions(c); err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var views []struct {
		Product struct {
			Name  string `json:"name"`
			Price string `json:"price"`
		} `json:"product"`
	}
	decodeBody(t, rec, &views)
	if len(views) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(views))
	}
	if views[0].Product.Name != export.PlaceholderProductName {
		t.Errorf("expected placeholder product, got %q", views[0].Product.Name)
	}
	if !mustDecimal(t, views[0].Product.Price).Equal(mustDecimal(t, "100")) {
		t.Errorf("expected snapshotted price 100, got %s", views[0].Product.Price)
	}
}

func TestListUserTransactions_SplitByStatus(t *testing.T) {
	db := setupTest(t)
	merchant := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	user := seedUser(t, db, "joao", "joao@user.test")
	product := seedProduct(t, db, merchant.ID, "Caneca", "100")
	pending := seedLedgerRow(t, db, product.ID, user.ID, merchant.ID, "100", "10")
	completed := seedLedgerRow(t, db, product.ID, user.ID, merchant.ID, "50", "10")
	if err := db.Model(&model.Transaction{}).Where("id = ?", completed.ID).
		Update("sale_status", model.SaleStatusCompleted).Error; err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	t.Run("pending", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodGet, "/transactions/user/1/pending", nil)
		pathContext(c, "id", "1")
		asAccount(c, jwtutil.KindUser, user.ID)
		if err := ListUserPendingTransactions(c); err != nil {
			t.Fatalf("ListUserPendingTransactions failed: %v", err)
		}
		var views []model.Transaction
		decodeBody(t, rec, &views)
		if len(views) != 1 || views[0].ID != pending.ID {
			t.Errorf("unexpected pending list: %+v", views)
		}
	})

	t.Run("completed", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodGet, "/transactions/user/1/completed", nil)
		pathContext(c, "id", "1")
		asAccount(c, jwtutil.KindUser, user.ID)
		if err := ListUserCompletedTransactions(c); err != nil {
			t.Fatalf("ListUserCompletedTransactions failed: %v", err)
		}
		var views []model.Transaction
		decodeBody(t, rec, &views)
		if len(views) != 1 || views[0].ID != completed.ID {
			t.Errorf("unexpected completed list: %+v", views)
		}
	})

	t.Run("admin may read any user's lists", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodGet, "/transactions/user/1/pending", nil)
		pathContext(c, "id", "1")
		asAccount(c, jwtutil.KindAdmin, 1)
		if err := ListUserPendingTransactions(c); err != nil {
			t.Fatalf("ListUserPendingTransactions failed: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("another user's cart is forbidden", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodGet, "/transactions/user/1/pending", nil)
		pathContext(c, "id", "1")
		asAccount(c, jwtutil.KindUser, user.ID+1)
		if err := ListUserPendingTransactions(c); err != nil {
			t.Fatalf("ListUserPendingTransactions failed: %v", err)
		}
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestUpdateTransactionStatus(t *testing.T) {
	db := setupTest(t)
	owner := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	intruder := seedMerchant(t, db, "ana@store.test", "98765432000188", "5")
	user := seedUser(t, db, "joao", "joao@user.test")
	product := seedProduct(t, db, owner.ID, "Caneca", "100")
	trx := seedLedgerRow(t, db, product.ID, user.ID, owner.ID, "100", "10")

	t.Run("owner completes the sale", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPut, "/transactions/1/status", map[string]string{
			"status": model.SaleStatusCompleted,
		})
		pathContext(c, "id", "1")
		asAccount(c, jwtutil.KindMerchant, owner.ID)
		if err := UpdateTransactionStatus(c); err != nil {
			t.Fatalf("UpdateTransactionStatus failed: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var reloaded model.Transaction
		if err := db.First(&reloaded, trx.ID).Error; err != nil {
			t.Fatalf("reload transaction: %v", err)
		}
		if reloaded.SaleStatus != model.SaleStatusCompleted {
			t.Errorf("sale status not updated: %s", reloaded.SaleStatus)
		}
		if reloaded.AdminPaymentStatus != model.PaymentStatusPending {
			t.Errorf("payment track changed by sale status update: %s", reloaded.AdminPaymentStatus)
		}
	})

	t.Run("another merchant is forbidden", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPut, "/transactions/1/status", map[string]string{
			"status": model.SaleStatusPending,
		})
		pathContext(c, "id", "1")
		asAccount(c, jwtutil.KindMerchant, intruder.ID)
		if err := UpdateTransactionStatus(c); err != nil {
			t.Fatalf("UpdateTransactionStatus failed: %v", err)
		}
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}

		var reloaded model.Transaction
		if err := db.First(&reloaded, trx.ID).Error; err != nil {
			t.Fatalf("reload transaction: %v", err)
		}
		if reloaded.SaleStatus != model.SaleStatusCompleted {
			t.Errorf("foreign merchant changed the status: %s", reloaded.SaleStatus)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPut, "/transactions/1/status", map[string]string{
			"status": "shipped",
		})
		pathContext(c, "id", "1")
		asAccount(c, jwtutil.KindMerchant, owner.ID)
		if err := UpdateTransactionStatus(c); err != nil {
			t.Fatalf("UpdateTransactionStatus failed: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing transaction", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPut, "/transactions/999/status", map[string]string{
			"status": model.SaleStatusCompleted,
		})
		pathContext(c, "id", "999")
		asAccount(c, jwtutil.KindMerchant, owner.ID)
		if err := UpdateTransactionStatus(c); err != nil {
			t.Fatalf("UpdateTransactionStatus failed: %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestDeleteTransaction_ShrinksFloat(t *testing.T) {
	db := setupTest(t)
	seedAdmin(t, db, "100")
	merchant := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	user := seedUser(t, db, "joao", "joao@user.test")
	product := seedProduct(t, db, merchant.ID, "Caneca", "100")
	trx := seedLedgerRow(t, db, product.ID, user.ID, merchant.ID, "100", "10")

	c, rec := jsonContext(t, http.MethodDelete, "/transactions/1", nil)
	pathContext(c, "id", "1")
	if err := DeleteTransaction(c); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var count int64
	db.Model(&model.Transaction{}).Where("id = ?", trx.ID).Count(&count)
	if count != 0 {
		t.Error("transaction still present after delete")
	}

	var admin model.Admin
	if err := db.Order("id").First(&admin).Error; err != nil {
		t.Fatalf("reload admin: %v", err)
	}
	if !admin.Balance.Equal(mustDecimal(t, "0")) {
		t.Errorf("expected admin balance 0 after deleting unpaid row, got %s", admin.Balance)
	}
}

func TestVerifyProductTransactions(t *testing.T) {
	db := setupTest(t)
	merchant := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	user := seedUser(t, db, "joao", "joao@user.test")
	product := seedProduct(t, db, merchant.ID, "Caneca", "100")
	seedLedgerRow(t, db, product.ID, user.ID, merchant.ID, "100", "10")

	c, rec := jsonContext(t, http.MethodGet, "/transactions/product/1/usage", nil)
	pathContext(c, "id", "1")
	if err := VerifyProductTransactions(c); err != nil {
		t.Fatalf("VerifyProductTransactions failed: %v", err)
	}

	var body struct {
		HasTransactions bool  `json:"has_transactions"`
		Count           int64 `json:"count"`
	}
	decodeBody(t, rec, &body)
	if !body.HasTransactions || body.Count != 1 {
		t.Errorf("unexpected usage report: %+v", body)
	}
}

func TestCheckoutHandler(t *testing.T) {
	db := setupTest(t)
	merchant := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	user := seedUser(t, db, "joao", "joao@user.test")
	product := seedProduct(t, db, merchant.ID, "Caneca", "100")
	seedLedgerRow(t, db, product.ID, user.ID, merchant.ID, "100", "10")

	t.Run("reports per-item outcome", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "/transactions/checkout", map[string]interface{}{
			"user_id": user.ID,
			"items": []map[string]uint{
				{"product_id": product.ID, "merchant_id": merchant.ID},
				{"product_id": 42, "merchant_id": merchant.ID},
			},
		})
		asAccount(c, jwtutil.KindUser, user.ID)
		if err := Checkout(c); err != nil {
			t.Fatalf("Checkout failed: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var result settlement.CheckoutResult
		decodeBody(t, rec, &result)
		if len(result.Succeeded) != 1 || len(result.Failed) != 1 {
			t.Errorf("unexpected checkout result: %+v", result)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "/transactions/checkout", map[string]interface{}{
			"user_id": 999,
			"items": []map[string]uint{
				{"product_id": product.ID, "merchant_id": merchant.ID},
			},
		})
		asAccount(c, jwtutil.KindAdmin, 1)
		if err := Checkout(c); err != nil {
			t.Fatalf("Checkout failed: %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("empty items", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "/transactions/checkout", map[string]interface{}{
			"user_id": user.ID,
			"items":   []map[string]uint{},
		})
		if err := Checkout(c); err != nil {
			t.Fatalf("Checkout failed: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCheckout_ForeignCartForbidden(t *testing.T) {
	db := setupTest(t)
	merchant := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	owner := seedUser(t, db, "joao", "joao@user.test")
	other := seedUser(t, db, "maria", "maria@user.test")
	product := seedProduct(t, db, merchant.ID, "Caneca", "100")
	trx := seedLedgerRow(t, db, product.ID, owner.ID, merchant.ID, "100", "10")

	c, rec := jsonContext(t, http.MethodPost, "/transactions/checkout", map[string]interface{}{
		"user_id": owner.ID,
		"items": []map[string]uint{
			{"product_id": product.ID, "merchant_id": merchant.ID},
		},
	})
	asAccount(c, jwtutil.KindUser, other.ID)
	if err := Checkout(c); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	// The cart is untouched
	var reloaded model.Transaction
	if err := db.First(&reloaded, trx.ID).Error; err != nil {
		t.Fatalf("reload transaction: %v", err)
	}
	if reloaded.SaleStatus != model.SaleStatusPending {
		t.Errorf("foreign account completed the sale: %s", reloaded.SaleStatus)
	}
}

func TestCreateTransaction_FloatWriteIsRelative(t *testing.T) {
	db := setupTest(t)
	admin := seedAdmin(t, db, "0")
	merchant := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	user := seedUser(t, db, "joao", "joao@user.test")
	product := seedProduct(t, db, merchant.ID, "Caneca", "100")

	// Emulate a concurrent float credit landing between the admin row read and
	// the balance write of the create.
	bumped := false
	if err := db.Callback().Query().After("gorm:query").Register("bump_admin_on_create", func(tx *gorm.DB) {
		if bumped || tx.Statement.Table != "admins" {
			return
		}
		bumped = true
		if err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE admins SET balance = balance + ?", mustDecimal(t, "50")).Error; err != nil {
			t.Errorf("interleaved update failed: %v", err)
		}
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer db.Callback().Query().Remove("bump_admin_on_create")

	c, rec := jsonContext(t, http.MethodPost, "/transactions", map[string]uint{
		"product_id":  product.ID,
		"user_id":     user.ID,
		"merchant_id": merchant.ID,
	})
	asAccount(c, jwtutil.KindUser, user.ID)
	if err := CreateTransaction(c); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var reloaded model.Admin
	if err := db.First(&reloaded, admin.ID).Error; err != nil {
		t.Fatalf("reload admin: %v", err)
	}
	if !reloaded.Balance.Equal(mustDecimal(t, "150")) {
		t.Errorf("interleaved credit lost: expected balance 150, got %s", reloaded.Balance)
	}
}

func TestDeleteTransaction_FloatWriteIsRelative(t *testing.T) {
	db := setupTest(t)
	admin := seedAdmin(t, db, "100")
	merchant := seedMerchant(t, db, "maria@store.test", "12345678000199", "10")
	user := seedUser(t, db, "joao", "joao@user.test")
	product := seedProduct(t, db, merchant.ID, "Caneca", "100")
	seedLedgerRow(t, db, product.ID, user.ID, merchant.ID, "100", "10")

	bumped := false
	if err := db.Callback().Query().After("gorm:query").Register("bump_admin_on_delete", func(tx *gorm.DB) {
		if bumped || tx.Statement.Table != "admins" {
			return
		}
		bumped = true
		if err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE admins SET balance = balance + ?", mustDecimal(t, "50")).Error; err != nil {
			t.Errorf("interleaved update failed: %v", err)
		}
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer db.Callback().Query().Remove("bump_admin_on_delete")

	c, rec := jsonContext(t, http.MethodDelete, "/transactions/1", nil)
	pathContext(c, "id", "1")
	if err := DeleteTransaction(c); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reloaded model.Admin
	if err := db.First(&reloaded, admin.ID).Error; err != nil {
		t.Fatalf("reload admin: %v", err)
	}
	if !reloaded.Balance.Equal(mustDecimal(t, "50")) {
		t.Errorf("interleaved credit lost: expected balance 50, got %s", reloaded.Balance)
	}
}
