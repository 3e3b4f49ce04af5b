package handler

import (
	"net/http"
	"time"

	"github.com/Aik0o1/cashback-system/internal/middleware"
	"github.com/Aik0o1/cashback-system/internal/model"
	"github.com/Aik0o1/cashback-system/pkg/database"
	"github.com/Aik0o1/cashback-system/pkg/jwtutil"
	"github.com/Aik0o1/cashback-system/pkg/logger"
	"github.com/Aik0o1/cashback-system/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterMerchantRequest defines the payload for merchant registration
type RegisterMerchantRequest struct {
	Name           string          `json:"name"`
	StoreName      string          `json:"store_name"`
	Email          string          `json:"email"`
	CNPJ           string          `json:"cnpj"`
	Password       string          `json:"password"`
	CashbackRate   decimal.Decimal `json:"cashback_rate"`
	CashbackExpiry time.Time       `json:"cashback_expiry"`
}

// RegisterMerchant creates a new merchant account and issues a session token
func RegisterMerchant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.WithLabelValues(jwtutil.KindMerchant).Inc()

	var req RegisterMerchantRequest
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" || req.StoreName == "" || req.Email == "" || req.CNPJ == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, store_name, email, cnpj and password are required"})
	}

	if req.CashbackRate.IsNegative() || req.CashbackRate.GreaterThan(decimal.NewFromInt(100)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cashback_rate must be between 0 and 100"})
	}

	if !req.CashbackExpiry.After(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cashback_expiry must be in the future"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := database.GetDB()

	var count int64
	db.Model(&model.Merchant{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("Merchant email already registered", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
	}

	db.Model(&model.Merchant{}).Where("cnpj = ?", req.CNPJ).Count(&count)
	if count > 0 {
		log.Warn("CNPJ already registered", zap.String("cnpj", req.CNPJ))
		prometheus.RecordAuthError("cnpj_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "cnpj already in use"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	merchant := model.Merchant{
		Name:           req.Name,
		StoreName:      req.StoreName,
		Email:          req.Email,
		CNPJ:           req.CNPJ,
		Password:       string(hashedPassword),
		CashbackRate:   req.CashbackRate,
		CashbackExpiry: req.CashbackExpiry,
	}

	if err := db.Create(&merchant).Error; err != nil {
		log.Error("Failed to create merchant", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	token, err := jwtutil.GenerateToken(merchant.Email, merchant.ID, jwtutil.KindMerchant)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.ActiveTokensGauge.Inc()

	log.Info("Merchant registered",
		zap.Uint("merchant_id", merchant.ID),
		zap.String("store_name", merchant.StoreName))
	return c.JSON(http.StatusCreated, echo.Map{
		"merchant": merchant,
		"token":    token,
	})
}

// LoginMerchant authenticates a merchant by email or CNPJ
func LoginMerchant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.WithLabelValues(jwtutil.KindMerchant).Inc()

	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var merchant model.Merchant
	result := database.GetDB().
		Where("email = ? OR cnpj = ?", req.Identifier, req.Identifier).
		First(&merchant)
	if result.Error != nil {
		log.Warn("Merchant not found", zap.String("identifier", req.Identifier))
		prometheus.RecordAuthError("merchant_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(merchant.Password), []byte(req.Password)); err != nil {
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := jwtutil.GenerateToken(merchant.Email, merchant.ID, jwtutil.KindMerchant)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.ActiveTokensGauge.Inc()

	log.Info("Merchant logged in", zap.Uint("merchant_id", merchant.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"merchant": merchant,
		"token":    token,
	})
}

// ListMerchants returns all merchants
func ListMerchants(c echo.Context) error {
	var merchants []model.Merchant
	if err := database.GetDB().Find(&merchants).Error; err != nil {
		logger.FromContext(c).Error("Failed to list merchants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve merchants"})
	}
	return c.JSON(http.StatusOK, merchants)
}

// GetMerchant returns a single merchant by ID
func GetMerchant(c echo.Context) error {
	var merchant model.Merchant
	if err := database.GetDB().First(&merchant, c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}
	return c.JSON(http.StatusOK, merchant)
}

// UpdateMerchantRequest carries the optional fields of a partial merchant
// update. Absent fields keep their stored value.
type UpdateMerchantRequest struct {
	Name           *string          `json:"name"`
	StoreName      *string          `json:"store_name"`
	Email          *string          `json:"email"`
	Password       *string          `json:"password"`
	CashbackRate   *decimal.Decimal `json:"cashback_rate"`
	CashbackExpiry *time.Time       `json:"cashback_expiry"`
}

// UpdateMerchant applies a merge-only partial update. A rate change affects
// only transactions created afterwards.
func UpdateMerchant(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req UpdateMerchantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	db := database.GetDB()
	var merchant model.Merchant
	if err := db.First(&merchant, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	if !requesterIsMerchant(c, merchant.ID) {
		log.Warn("Merchant update blocked",
			zap.Uint("merchant_id", merchant.ID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account belongs to another merchant"})
	}

	if req.Email != nil {
		var count int64
		db.Model(&model.Merchant{}).Where("email = ? AND id <> ?", *req.Email, merchant.ID).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
		}
		merchant.Email = *req.Email
	}
	if req.Name != nil {
		merchant.Name = *req.Name
	}
	if req.StoreName != nil {
		merchant.StoreName = *req.StoreName
	}
	if req.CashbackRate != nil {
		if req.CashbackRate.IsNegative() || req.CashbackRate.GreaterThan(decimal.NewFromInt(100)) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cashback_rate must be between 0 and 100"})
		}
		merchant.CashbackRate = *req.CashbackRate
	}
	if req.CashbackExpiry != nil {
		merchant.CashbackExpiry = *req.CashbackExpiry
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		merchant.Password = string(hashed)
	}

	if err := db.Save(&merchant).Error; err != nil {
		log.Error("Failed to update merchant", zap.String("merchant_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	log.Info("Merchant updated", zap.Uint("merchant_id", merchant.ID))
	return c.JSON(http.StatusOK, merchant)
}

// DeleteMerchant removes a merchant and cascades the delete to its products
func DeleteMerchant(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	db := database.GetDB()
	var merchant model.Merchant
	if err := db.First(&merchant, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("merchant_id = ?", merchant.ID).Delete(&model.Product{}).Error; err != nil {
			return err
		}
		return tx.Delete(&merchant).Error
	})
	if err != nil {
		log.Error("Failed to delete merchant", zap.String("merchant_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete merchant"})
	}

	log.Info("Merchant deleted with its products", zap.Uint("merchant_id", merchant.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "merchant deleted"})
}

// ListMerchantProducts returns the products owned by a merchant
func ListMerchantProducts(c echo.Context) error {
	var products []model.Product
	if err := database.GetDB().Where("merchant_id = ?", c.Param("id")).Find(&products).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}
	return c.JSON(http.StatusOK, products)
}

// requesterIsMerchant reports whether the authenticated account is the
// merchant with the given id, or an admin.
func requesterIsMerchant(c echo.Context, merchantID uint) bool {
	claims, ok := middleware.AccountFromContext(c)
	if !ok {
		return false
	}
	if claims.AccountKind == jwtutil.KindAdmin {
		return true
	}
	return claims.AccountKind == jwtutil.KindMerchant && claims.AccountID == merchantID
}
