package util

import (
	"refcore/internal/config"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// CalculateFee is the single canonical fee computation. All consumers of a
// trade fee must go through it.
func CalculateFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(config.FEE_RATE)
}

// FormatAmount renders an amount for activity views, with grouping
// separators ("12,345.67").
func FormatAmount(amount decimal.Decimal) string {
	f, _ := amount.Float64()
	return printer.Sprintf("%.2f", f)
}

// ShortAddress compresses a wallet address to a display label for team tree
// nodes, e.g. "EQBvW8Z…8iN1". Short addresses pass through unchanged.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:7] + "…" + addr[len(addr)-4:]
}
