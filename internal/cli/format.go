// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// currencySymbols maps ISO codes to display prefixes. Unknown codes are
// printed as a suffix.
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"NGN": "₦",
}

// FormatMoney formats an amount with thousands separators and two
// decimals, e.g. 1234.5 -> "$1,234.50".
func FormatMoney(d decimal.Decimal, currency string) string {
	neg := d.IsNegative()
	f, _ := d.Abs().Round(2).Float64()
	s := humanize.CommafWithDigits(f, 2)
	if i := strings.IndexByte(s, '.'); i < 0 {
		s += ".00"
	} else if len(s)-i == 2 {
		s += "0"
	}

	code := strings.ToUpper(currency)
	if sym, ok := currencySymbols[code]; ok {
		s = sym + s
	} else if code != "" {
		s = s + " " + code
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatSignedMoney always prints a sign, for net figures and deltas.
func FormatSignedMoney(d decimal.Decimal, currency string) string {
	if d.IsNegative() {
		return FormatMoney(d, currency)
	}
	return "+" + FormatMoney(d, currency)
}

// FormatWhole formats a rounded whole amount, e.g. 36990 -> "36,990".
func FormatWhole(n int64) string {
	return humanize.Comma(n)
}

// FormatCompact shortens large amounts, e.g. 1234567 -> "1.2M".
func FormatCompact(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return humanize.Comma(n)
	}
}

// FormatPercent formats a 0-1 ratio as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatChange formats an already-scaled percent change with a sign.
func FormatChange(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.1f%%", pct)
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatDelta formats current minus previous with a sign.
func FormatDelta(current, previous decimal.Decimal, currency string) string {
	return FormatSignedMoney(current.Sub(previous), currency)
}

// FormatAgo describes t relative to now, e.g. "3 days ago".
func FormatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// FormatDate formats a calendar date for tables.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 02 2006")
}
