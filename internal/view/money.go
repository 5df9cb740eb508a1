package view

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var peso = message.NewPrinter(language.English)

// Peso renders an amount as a peso string with thousands separators and
// two decimal places, e.g. "₱12,345.00".
func Peso(amount decimal.Decimal) string {
	return "₱" + Amount(amount)
}

// Amount renders the bare grouped figure without the currency sign.
func Amount(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return peso.Sprintf("%.2f", f)
}
