package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/Aik0o1/cashback-system/internal/export"
	"github.com/Aik0o1/cashback-system/pkg/database"
	"github.com/Aik0o1/cashback-system/pkg/logger"
	"github.com/Aik0o1/cashback-system/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func exportFilterFromQuery(c echo.Context) export.Filter {
	filter := export.Filter{
		SaleStatus:    c.QueryParam("status"),
		PaymentStatus: c.QueryParam("payment_status"),
		ProductName:   c.QueryParam("product"),
	}

	if v := c.QueryParam("merchant_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			filter.MerchantID = uint(id)
		}
	}
	if v := c.QueryParam("user_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			filter.UserID = uint(id)
		}
	}
	if v := c.QueryParam("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = t
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			// Inclusive end of day
			filter.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}

	return filter
}

func exportRows(c echo.Context) ([]export.Row, bool, error) {
	rows, err := export.BuildRows(database.GetDB(), exportFilterFromQuery(c))
	if err != nil {
		logger.FromContext(c).Error("Failed to build export rows", zap.Error(err))
		return nil, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to export transactions"})
	}
	if len(rows) == 0 {
		return nil, false, c.JSON(http.StatusNotFound, echo.Map{"error": "no transactions found for export"})
	}
	return rows, true, nil
}

// ExportTransactionsCSV streams the filtered transactions as CSV
func ExportTransactionsCSV(c echo.Context) error {
	rows, ok, errResp := exportRows(c)
	if !ok {
		return errResp
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		logger.FromContext(c).Error("Failed to write CSV", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to export transactions"})
	}

	prometheus.ExportCounter.WithLabelValues("csv").Inc()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=transactions.csv`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

// ExportTransactionsXLSX streams the filtered transactions as a spreadsheet
func ExportTransactionsXLSX(c echo.Context) error {
	rows, ok, errResp := exportRows(c)
	if !ok {
		return errResp
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows); err != nil {
		logger.FromContext(c).Error("Failed to write XLSX", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to export transactions"})
	}

	prometheus.ExportCounter.WithLabelValues("xlsx").Inc()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=transactions.xlsx`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ExportTransactionsPDF streams the filtered transactions as a PDF report
func ExportTransactionsPDF(c echo.Context) error {
	rows, ok, errResp := exportRows(c)
	if !ok {
		return errResp
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, rows); err != nil {
		logger.FromContext(c).Error("Failed to write PDF", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to export transactions"})
	}

	prometheus.ExportCounter.WithLabelValues("pdf").Inc()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=transactions.pdf`)
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
