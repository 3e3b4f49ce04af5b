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
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// requesterOwnsUser reports whether the authenticated account is the user with
// the given id, or an admin.
func requesterOwnsUser(c echo.Context, userID uint) bool {
	claims, ok := middleware.AccountFromContext(c)
	if !ok {
		return false
	}
	if claims.AccountKind == jwtutil.KindAdmin {
		return true
	}
	return claims.AccountKind == jwtutil.KindUser && claims.AccountID == userID
}

// RegisterUserRequest defines the payload for user registration
type RegisterUserRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RegisterUser creates a new user account and issues a session token
func RegisterUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.WithLabelValues(jwtutil.KindUser).Inc()

	var req RegisterUserRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Username == "" || req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, first_name, last_name, email and password are required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := database.GetDB()

	var count int64
	db.Model(&model.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		log.Warn("Username already taken", zap.String("username", req.Username))
		prometheus.RecordAuthError("username_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already in use"})
	}

	db.Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("Email already registered", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  string(hashedPassword),
	}

	if err := db.Create(&user).Error; err != nil {
		log.Error("Failed to create user", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, jwtutil.KindUser)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.ActiveTokensGauge.Inc()

	log.Info("User registered",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username))
	return c.JSON(http.StatusCreated, echo.Map{
		"user":  user,
		"token": token,
	})
}

// LoginUser authenticates a user by email or username
func LoginUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.WithLabelValues(jwtutil.KindUser).Inc()

	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().
		Where("email = ? OR username = ?", req.Identifier, req.Identifier).
		First(&user)
	if result.Error != nil {
		log.Warn("User not found", zap.String("identifier", req.Identifier))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("identifier", req.Identifier))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, jwtutil.KindUser)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.ActiveTokensGauge.Inc()

	log.Info("User logged in", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"user":  user,
		"token": token,
	})
}

// ValidateUserField checks whether a username or email is still available
func ValidateUserField(c echo.Context) error {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Field != "username" && req.Field != "email" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "field must be username or email"})
	}

	var count int64
	database.GetDB().Model(&model.User{}).Where(req.Field+" = ?", req.Value).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": req.Field + " already in use"})
	}

	return c.JSON(http.StatusOK, echo.Map{"available": true})
}

// ListUsers returns all registered users
func ListUsers(c echo.Context) error {
	var users []model.User
	if err := database.GetDB().Find(&users).Error; err != nil {
		logger.FromContext(c).Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve users"})
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser returns a single user by ID
func GetUser(c echo.Context) error {
	var user model.User
	if err := database.GetDB().First(&user, c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUserRequest carries the optional fields of a partial user update.
// Absent fields keep their stored value.
type UpdateUserRequest struct {
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
}

// UpdateUser applies a merge-only partial update to a user
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	db := database.GetDB()
	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if !requesterOwnsUser(c, user.ID) {
		log.Warn("Account update blocked",
			zap.Uint("user_id", user.ID))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account belongs to another user"})
	}

	if req.Username != nil {
		var count int64
		db.Model(&model.User{}).Where("username = ? AND id <> ?", *req.Username, user.ID).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already in use"})
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		var count int64
		db.Model(&model.User{}).Where("email = ? AND id <> ?", *req.Email, user.ID).Count(&count)
		if count > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already in use"})
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		user.Password = string(hashed)
	}

	if err := db.Save(&user).Error; err != nil {
		log.Error("Failed to update user", zap.String("user_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	log.Info("User updated", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user account
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	result := database.GetDB().Delete(&model.User{}, id)
	if result.Error != nil {
		log.Error("Failed to delete user", zap.String("user_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete user"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	log.Info("User deleted", zap.String("user_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}
