package middleware

import (
	"net/http"
	"strings"

	"github.com/Aik0o1/cashback-system/pkg/jwtutil"
	"github.com/Aik0o1/cashback-system/pkg/logger"
	"github.com/Aik0o1/cashback-system/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token from the Authorization header and
// stores the account claims in the request context.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Warn("Invalid or expired token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		c.Set("account", claims)
		log.Debug("Token validated",
			zap.Uint("account_id", claims.AccountID),
			zap.String("account_kind", claims.AccountKind))

		return next(c)
	}
}

// RequireKind gates a route group to the given account kinds
func RequireKind(kinds ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		allowed[kind] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("account").(*jwtutil.AccountClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			if !allowed[claims.AccountKind] {
				logger.FromContext(c).Warn("Account kind not allowed for route",
					zap.String("account_kind", claims.AccountKind),
					zap.String("path", c.Path()))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}

			return next(c)
		}
	}
}

// AccountFromContext returns the validated claims stored by AuthMiddleware
func AccountFromContext(c echo.Context) (*jwtutil.AccountClaims, bool) {
	claims, ok := c.Get("account").(*jwtutil.AccountClaims)
	return claims, ok
}
