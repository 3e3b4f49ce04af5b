package handler

import (
	"net/http"

	"github.com/Aik0o1/cashback-system/internal/model"
	"github.com/Aik0o1/cashback-system/pkg/database"
	"github.com/Aik0o1/cashback-system/pkg/jwtutil"
	"github.com/Aik0o1/cashback-system/pkg/logger"
	"github.com/Aik0o1/cashback-system/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterAdmin creates the administrator account
func RegisterAdmin(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.WithLabelValues(jwtutil.KindAdmin).Inc()

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and password are required"})
	}

	db := database.GetDB()
	var count int64
	db.Model(&model.Admin{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	admin := model.Admin{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Error("Failed to create admin", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	token, err := jwtutil.GenerateToken(admin.Email, admin.ID, jwtutil.KindAdmin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.ActiveTokensGauge.Inc()

	log.Info("Admin registered", zap.Uint("admin_id", admin.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"admin": admin,
		"token": token,
	})
}

// LoginAdmin authenticates the administrator
func LoginAdmin(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.WithLabelValues(jwtutil.KindAdmin).Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var admin model.Admin
	if err := database.GetDB().Where("email = ?", req.Email).First(&admin).Error; err != nil {
		prometheus.RecordAuthError("admin_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "admin not found"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := jwtutil.GenerateToken(admin.Email, admin.ID, jwtutil.KindAdmin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.ActiveTokensGauge.Inc()

	log.Info("Admin logged in", zap.Uint("admin_id", admin.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"admin": admin,
		"token": token,
	})
}
