package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Aik0o1/cashback-system/internal/model"
	"github.com/Aik0o1/cashback-system/pkg/config"
	"github.com/Aik0o1/cashback-system/pkg/database"
	"github.com/Aik0o1/cashback-system/pkg/jwtutil"
	"github.com/Aik0o1/cashback-system/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testPassword = "secret123"

func setupTest(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.User{},
		&model.Merchant{},
		&model.Admin{},
		&model.Product{},
		&model.Transaction{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	database.Set(db)
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	bs, err := storage.NewBlobStore(&config.StorageConfig{UploadDir: t.TempDir(), BaseURL: "/uploads"})
	if err != nil {
		t.Fatalf("failed to init blob store: %v", err)
	}
	SetBlobStore(bs)

	return db
}

func jsonContext(t *testing.T, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func multipartContext(t *testing.T, target string, fields map[string]string, imageName string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if imageName != "" {
		part, err := mw.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := part.Write([]byte("fake image bytes")); err != nil {
			t.Fatalf("failed to write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func asAccount(c echo.Context, kind string, accountID uint) {
	c.Set("account", &jwtutil.AccountClaims{
		Email:       "test@account.test",
		AccountID:   accountID,
		AccountKind: kind,
	})
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hashed)
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func seedUser(t *testing.T, db *gorm.DB, username, email string) model.User {
	t.Helper()
	user := model.User{
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  hashPassword(t, testPassword),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedMerchant(t *testing.T, db *gorm.DB, email, cnpj, rate string) model.Merchant {
	t.Helper()
	merchant := model.Merchant{
		Name:           "Maria",
		StoreName:      "Loja da Maria",
		Email:          email,
		CNPJ:           cnpj,
		Password:       hashPassword(t, testPassword),
		CashbackRate:   mustDecimal(t, rate),
		CashbackExpiry: time.Now().Add(30 * 24 * time.Hour),
	}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("seed merchant: %v", err)
	}
	return merchant
}

func seedAdmin(t *testing.T, db *gorm.DB, balance string) model.Admin {
	t.Helper()
	admin := model.Admin{
		Name:     "Admin",
		Email:    "admin@cashback.test",
		Password: hashPassword(t, testPassword),
		Balance:  mustDecimal(t, balance),
	}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return admin
}

func seedProduct(t *testing.T, db *gorm.DB, merchantID uint, name, price string) model.Product {
	t.Helper()
	product := model.Product{
		Name:        name,
		Description: "A product",
		Price:       mustDecimal(t, price),
		Category:    "general",
		ImageURL:    "/uploads/test.png",
		MerchantID:  merchantID,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedLedgerRow(t *testing.T, db *gorm.DB, productID, userID, merchantID uint, amount, rate string) model.Transaction {
	t.Helper()
	total := mustDecimal(t, amount)
	trx := model.Transaction{
		ProductID:          productID,
		UserID:             userID,
		MerchantID:         merchantID,
		PurchaseAmount:     total,
		CashbackAmount:     total.Mul(mustDecimal(t, rate)).Div(decimal.NewFromInt(100)),
		TotalValue:         total,
		SaleStatus:         model.SaleStatusPending,
		AdminPaymentStatus: model.PaymentStatusPending,
		PurchasedAt:        time.Now(),
	}
	if err := db.Create(&trx).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return trx
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rec, &body)
	return body["error"]
}

func pathContext(c echo.Context, name, value string) {
	c.SetParamNames(name)
	c.SetParamValues(value)
}
