// Package export renders store analytics as downloadable workbooks.
package export

import (
	"fmt"
	"io"

	"shop-analytics/internal/analytics"
	"shop-analytics/internal/models"

	"github.com/xuri/excelize/v2"
)

// Sheet names, in workbook order
const (
	SheetSummary     = "Summary"
	SheetTopProducts = "Top Products"
	SheetLowStock    = "Low Stock"
	SheetDailySales  = "Daily Sales"
)

// ContentType is the MIME type of the workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileName is the download name for a store's workbook
func FileName(st *models.Store) string {
	return fmt.Sprintf("%s-analytics.xlsx", st.ID)
}

// WriteSummary writes the summary of st as an XLSX workbook to w
func WriteSummary(w io.Writer, st *models.Store, s *analytics.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetTopProducts, SheetLowStock, SheetDailySales} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	sheets := []struct {
		name   string
		header []interface{}
		rows   [][]interface{}
	}{
		{SheetSummary, []interface{}{"Metric", "Value"}, summaryRows(st, s)},
		{SheetTopProducts, []interface{}{"Product", "Units Sold", "Revenue"}, topProductRows(s)},
		{SheetLowStock, []interface{}{"Product", "Inventory", "Reorder Threshold", "Daily Velocity", "Days of Stock"}, lowStockRows(s)},
		{SheetDailySales, []interface{}{"Date", "Orders", "Revenue"}, dailySalesRows(s)},
	}
	for _, sh := range sheets {
		if err := writeTable(f, sh.name, bold, sh.header, sh.rows); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, headerStyle int, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(st *models.Store, s *analytics.Summary) [][]interface{} {
	return [][]interface{}{
		{"Store", st.ShopName},
		{"Domain", st.ShopDomain},
		{"Total Orders", s.TotalOrders},
		{"Total Revenue", s.TotalRevenue},
		{"Average Order Value", s.AvgOrderValue},
		{"Total Customers", s.TotalCustomers},
		{"Total Products", s.TotalProducts},
	}
}

func topProductRows(s *analytics.Summary) [][]interface{} {
	rows := make([][]interface{}, 0, len(s.TopProducts))
	for _, p := range s.TopProducts {
		rows = append(rows, []interface{}{p.Title, p.QuantitySold, p.Revenue})
	}
	return rows
}

func lowStockRows(s *analytics.Summary) [][]interface{} {
	rows := make([][]interface{}, 0, len(s.LowStockProducts))
	for _, l := range s.LowStockProducts {
		var days interface{} = "n/a"
		if l.DaysOfStock != nil {
			days = *l.DaysOfStock
		}
		rows = append(rows, []interface{}{l.Title, l.Inventory, l.ReorderThreshold, l.DailyVelocity, days})
	}
	return rows
}

func dailySalesRows(s *analytics.Summary) [][]interface{} {
	rows := make([][]interface{}, 0, len(s.SalesByDay))
	for _, d := range s.SalesByDay {
		rows = append(rows, []interface{}{d.Date, d.Orders, d.Revenue})
	}
	return rows
}
