package cli

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in       string
		currency string
		want     string
	}{
		{"0", "USD", "$0.00"},
		{"1234.5", "USD", "$1,234.50"},
		{"1234567.891", "EUR", "€1,234,567.89"},
		{"-42", "USD", "-$42.00"},
		{"7.1", "CHF", "7.10 CHF"},
		{"3", "", "3.00"},
	}
	for _, tt := range tests {
		got := FormatMoney(decimal.RequireFromString(tt.in), tt.currency)
		if got != tt.want {
			t.Errorf("FormatMoney(%s, %q) = %q, want %q", tt.in, tt.currency, got, tt.want)
		}
	}
}

func TestFormatSignedMoney(t *testing.T) {
	if got := FormatSignedMoney(decimal.NewFromInt(5), "USD"); got != "+$5.00" {
		t.Fatalf("got %q, want +$5.00", got)
	}
	if got := FormatDelta(decimal.NewFromInt(3), decimal.NewFromInt(10), "USD"); got != "-$7.00" {
		t.Fatalf("FormatDelta = %q, want -$7.00", got)
	}
}

func TestFormatCompact(t *testing.T) {
	tests := map[int64]string{
		999:           "999",
		9_999:         "9,999",
		12_345:        "12.3K",
		1_234_567:     "1.2M",
		-2_500_000:    "-2.5M",
		3_000_000_000: "3.0B",
	}
	for in, want := range tests {
		if got := FormatCompact(in); got != want {
			t.Errorf("FormatCompact(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPercentAndChange(t *testing.T) {
	if got := FormatPercent(0.256); got != "25.6%" {
		t.Fatalf("FormatPercent = %q", got)
	}
	if got := FormatChange(12.34); got != "+12.3%" {
		t.Fatalf("FormatChange(+) = %q", got)
	}
	if got := FormatChange(-4); got != "-4.0%" {
		t.Fatalf("FormatChange(-) = %q", got)
	}
}

func TestFormatWhole(t *testing.T) {
	if got := FormatWhole(36990); got != "36,990" {
		t.Fatalf("FormatWhole = %q", got)
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline([]float64{1, 5, 9}); got != "▁▄█" {
		t.Fatalf("RenderSparkline = %q", got)
	}
	if got := RenderSparkline([]float64{3, 3}); got != "▁▁" {
		t.Fatalf("flat RenderSparkline = %q", got)
	}
}

func TestTablePad(t *testing.T) {
	tbl := Table{Align: []Align{AlignAuto, AlignLeft}}
	if got := tbl.pad(0, "ab", 4); got != "ab  " {
		t.Fatalf("col 0 pad = %q", got)
	}
	if got := tbl.pad(1, "ab", 4); got != "ab  " {
		t.Fatalf("col 1 pad = %q", got)
	}
	if got := tbl.pad(2, "ab", 4); got != "  ab" {
		t.Fatalf("col 2 pad = %q", got)
	}
}

func TestRenderTableEmpty(t *testing.T) {
	if got := RenderTable(Table{}); got != "" {
		t.Fatalf("RenderTable(empty) = %q", got)
	}
}
