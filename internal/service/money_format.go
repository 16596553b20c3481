package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupeePrinter = message.NewPrinter(language.English)

// formatRupees 输出面向用户的金额文本，例如 ₹10,000.00
func formatRupees(amount decimal.Decimal) string {
	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	whole := amount.Truncate(0)
	paise := amount.Sub(whole).Shift(2).IntPart()
	return fmt.Sprintf("%s₹%s.%02d", sign, rupeePrinter.Sprintf("%d", whole.IntPart()), paise)
}
