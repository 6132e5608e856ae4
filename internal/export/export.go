// Package export writes a user's ledger to an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/pipeline"
)

// Sheet names.
const (
	SheetTransactions = "Transactions"
	SheetMonthly      = "Monthly"
	SheetCategories   = "Categories"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Ledger is what goes into one workbook.
type Ledger struct {
	Transactions []model.Transaction
	Categories   []model.Category
	Months       int
	Now          time.Time
}

// Write renders the ledger as xlsx to w.
func Write(w io.Writer, l Ledger) error {
	f, err := build(l)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: writing workbook: %w", err)
	}
	return nil
}

// WriteFile renders the ledger to path.
func WriteFile(path string, l Ledger) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := Write(out, l); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func build(l Ledger) (*excelize.File, error) {
	if l.Now.IsZero() {
		l.Now = time.Now()
	}
	if l.Months <= 0 {
		l.Months = 12
	}

	f := excelize.NewFile()
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("export: style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("export: style: %w", err)
	}

	// The default sheet becomes the transactions sheet.
	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if err := transactionsSheet(f, l, money, bold); err != nil {
		return nil, err
	}
	if err := monthlySheet(f, l, money, bold); err != nil {
		return nil, err
	}
	if err := categoriesSheet(f, l, money, bold); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

func header(f *excelize.File, sheet string, bold int, cols ...string) error {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("export: %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	return f.SetCellStyle(sheet, "A1", last, bold)
}

func transactionsSheet(f *excelize.File, l Ledger, money, bold int) error {
	const sheet = SheetTransactions
	if err := header(f, sheet, bold, "Date", "Kind", "Description", "Merchant", "Category", "Amount", "Source"); err != nil {
		return err
	}
	names := make(map[string]string, len(l.Categories))
	for _, c := range l.Categories {
		names[c.ID] = c.Name
	}

	for i, t := range l.Transactions {
		cat := names[t.CategoryID]
		if cat == "" {
			cat = pipeline.Uncategorized
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			t.OccurredAt.Format("2006-01-02"),
			string(t.Kind),
			t.Description,
			t.Merchant,
			cat,
			t.Signed().InexactFloat64(),
			string(t.Source),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: transaction row %d: %w", i+2, err)
		}
	}
	if n := len(l.Transactions); n > 0 {
		last, _ := excelize.CoordinatesToCellName(6, n+1)
		if err := f.SetCellStyle(sheet, "F2", last, money); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	for col, width := range map[string]float64{"A": 12, "B": 9, "C": 32, "D": 22, "E": 16, "F": 12, "G": 9} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}

func monthlySheet(f *excelize.File, l Ledger, money, bold int) error {
	const sheet = SheetMonthly
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := header(f, sheet, bold, "Month", "Income", "Expense", "Net", "Savings rate"); err != nil {
		return err
	}
	months := pipeline.AggregateMonths(l.Transactions, l.Months, l.Now)
	for i, m := range months {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			m.Month,
			m.Income.InexactFloat64(),
			m.Expense.InexactFloat64(),
			m.Income.Sub(m.Expense).InexactFloat64(),
			pipeline.SavingsRate(m.Income, m.Expense),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: month row %d: %w", i+2, err)
		}
	}
	if n := len(months); n > 0 {
		last, _ := excelize.CoordinatesToCellName(4, n+1)
		if err := f.SetCellStyle(sheet, "B2", last, money); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		pct, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
		if err != nil {
			return fmt.Errorf("export: style: %w", err)
		}
		end, _ := excelize.CoordinatesToCellName(5, n+1)
		if err := f.SetCellStyle(sheet, "E2", end, pct); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return f.SetColWidth(sheet, "A", "E", 14)
}

func categoriesSheet(f *excelize.File, l Ledger, money, bold int) error {
	const sheet = SheetCategories
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := header(f, sheet, bold, "Category", "Expense", "Transactions", "Share %"); err != nil {
		return err
	}
	since := pipeline.StartOfMonth(l.Now).AddDate(0, -(l.Months - 1), 0)
	stats := pipeline.AggregateCategories(l.Transactions, l.Categories, since, time.Time{})
	for i, c := range stats {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{c.Category, c.Expense.InexactFloat64(), c.Count, c.SharePercent}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: category row %d: %w", i+2, err)
		}
	}
	if n := len(stats); n > 0 {
		last, _ := excelize.CoordinatesToCellName(2, n+1)
		if err := f.SetCellStyle(sheet, "B2", last, money); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return f.SetColWidth(sheet, "A", "D", 16)
}
