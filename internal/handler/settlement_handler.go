package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Aik0o1/cashback-system/internal/settlement"
	"github.com/Aik0o1/cashback-system/pkg/database"
	"github.com/Aik0o1/cashback-system/pkg/logger"
	"github.com/Aik0o1/cashback-system/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func settleErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, settlement.ErrTransactionNotFound):
		prometheus.SettlementCounter.WithLabelValues("not_found").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	case errors.Is(err, settlement.ErrMerchantNotFound):
		prometheus.SettlementCounter.WithLabelValues("not_found").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	case errors.Is(err, settlement.ErrAdminNotFound):
		prometheus.SettlementCounter.WithLabelValues("not_found").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{"error": "admin account not found"})
	case errors.Is(err, settlement.ErrAlreadySettled):
		prometheus.SettlementCounter.WithLabelValues("already_settled").Inc()
		return c.JSON(http.StatusConflict, echo.Map{"error": "transaction already settled"})
	default:
		prometheus.SettlementCounter.WithLabelValues("error").Inc()
		logger.FromContext(c).Error("Settlement failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "settlement failed"})
	}
}

// SettleTransaction moves one transaction's value from the admin float to the
// merchant balance and flags it as paid
func SettleTransaction(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}

	svc := settlement.New(database.GetDB())
	trx, err := svc.SettleOne(c.Request().Context(), uint(id))
	if err != nil {
		return settleErrorResponse(c, err)
	}

	prometheus.SettlementCounter.WithLabelValues("settled").Inc()
	log.Info("Transaction settled",
		zap.Uint("transaction_id", trx.ID),
		zap.Uint("merchant_id", trx.MerchantID),
		zap.String("total_value", trx.TotalValue.StringFixed(2)))
	return c.JSON(http.StatusOK, trx)
}

// SettleBatch settles a list of transactions, reporting per-item outcomes
func SettleBatch(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		TransactionIDs []uint `json:"transaction_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if len(req.TransactionIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction_ids are required"})
	}

	svc := settlement.New(database.GetDB())
	result := svc.SettleBatch(c.Request().Context(), req.TransactionIDs)

	for range result.Succeeded {
		prometheus.SettlementCounter.WithLabelValues("settled").Inc()
	}

	log.Info("Settlement batch processed",
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)))
	return c.JSON(http.StatusOK, result)
}

// AdminFloat reports the stored admin balance next to the value derived from
// unpaid transactions
func AdminFloat(c echo.Context) error {
	svc := settlement.New(database.GetDB())
	report, err := svc.Float(c.Request().Context())
	if err != nil {
		if errors.Is(err, settlement.ErrAdminNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "admin account not found"})
		}
		logger.FromContext(c).Error("Failed to compute admin float", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute float"})
	}

	stored, _ := report.StoredBalance.Float64()
	prometheus.AdminFloatGauge.Set(stored)

	if report.Drift {
		logger.FromContext(c).Warn("Admin float drift detected",
			zap.String("stored", report.StoredBalance.StringFixed(2)),
			zap.String("derived", report.DerivedBalance.StringFixed(2)))
	}

	return c.JSON(http.StatusOK, report)
}
