package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

var columns = []string{
	"Transaction ID",
	"Product Name",
	"Product Price",
	"Customer Name",
	"Merchant Name",
	"Cashback Rate (%)",
	"Purchase Amount",
	"Cashback Amount",
	"Sale Status",
	"Payment Status",
	"Purchase Date",
}

func (r Row) values() []string {
	return []string{
		strconv.FormatUint(uint64(r.TransactionID), 10),
		r.ProductName,
		r.ProductPrice.StringFixed(2),
		r.UserName,
		r.MerchantName,
		r.CashbackRate.String(),
		r.PurchaseAmount.StringFixed(2),
		r.CashbackAmount.StringFixed(2),
		r.SaleStatus,
		r.PaymentStatus,
		r.PurchasedAt.Format("2006-01-02 15:04:05"),
	}
}

// WriteCSV streams the rows as a CSV document.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.values()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the rows as a single-sheet spreadsheet.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Transactions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, row := range rows {
		values := row.values()
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write xlsx row: %w", err)
		}
	}

	return f.Write(w)
}

// WritePDF renders the rows as a landscape table.
func WritePDF(w io.Writer, rows []Row) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Cashback Transactions Report")
	pdf.Ln(12)

	widths := []float64{18, 36, 22, 34, 34, 20, 24, 24, 22, 22, 30}

	pdf.SetFont("Arial", "B", 8)
	for i, col := range columns {
		pdf.CellFormat(widths[i], 7, col, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range rows {
		for i, v := range row.values() {
			pdf.CellFormat(widths[i], 6, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
