package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/theirongolddev/fintrack/internal/model"
)

func ledger() Ledger {
	now := time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)
	cats := []model.Category{{ID: "food", Name: "Food & Dining", Kind: model.Expense}}
	txs := []model.Transaction{
		{Kind: model.Income, Amount: decimal.NewFromInt(3000), Description: "Salary", OccurredAt: now.AddDate(0, 0, -15), Source: model.SourceBank},
		{Kind: model.Expense, Amount: decimal.RequireFromString("45.50"), Description: "Groceries", CategoryID: "food", OccurredAt: now.AddDate(0, 0, -2), Source: model.SourceManual},
		{Kind: model.Expense, Amount: decimal.NewFromInt(20), Description: "Parking", OccurredAt: now.AddDate(0, -1, 0), Source: model.SourceManual},
	}
	return Ledger{Transactions: txs, Categories: cats, Months: 3, Now: now}
}

func open(t *testing.T, l Ledger) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, l); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteSheets(t *testing.T) {
	f := open(t, ledger())
	want := []string{SheetTransactions, SheetMonthly, SheetCategories}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sheets = %v, want %v", got, want)
		}
	}
}

func TestTransactionsSheet(t *testing.T) {
	f := open(t, ledger())
	rows, err := f.GetRows(SheetTransactions)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][5] != "Amount" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[2][4] != "Food & Dining" {
		t.Fatalf("category = %q, want Food & Dining", rows[2][4])
	}
	if rows[3][4] != "Uncategorized" {
		t.Fatalf("category = %q, want Uncategorized", rows[3][4])
	}

	raw, err := f.GetCellValue(SheetTransactions, "F3", excelize.Options{RawCellValue: true})
	if err != nil || raw != "-45.5" {
		t.Fatalf("F3 = %q, %v; want -45.5", raw, err)
	}
}

func TestMonthlySheet(t *testing.T) {
	f := open(t, ledger())
	rows, err := f.GetRows(SheetMonthly, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want header + 3 months", len(rows))
	}
	last := rows[3]
	if last[0] != "2026-03" || last[1] != "3000" || last[2] != "45.5" {
		t.Fatalf("March row = %v", last)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	if err := WriteFile(path, Ledger{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, _ := f.GetRows(SheetTransactions)
	if len(rows) != 1 {
		t.Fatalf("empty ledger rows = %d, want header only", len(rows))
	}
}
