package utils

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	cent = decimal.RequireFromString("0.01")
	one  = decimal.NewFromInt(1)
	ten  = decimal.NewFromInt(10)
	kilo = decimal.NewFromInt(1000)
)

// FormatPrice renders a price for display. Cheap coins get more decimals;
// prices from 1000 up get thousands separators and at most 2 decimals.
func FormatPrice(price decimal.Decimal) string {
	switch {
	case price.LessThan(cent):
		return "$" + price.StringFixed(8)
	case price.LessThan(one):
		return "$" + price.StringFixed(6)
	case price.LessThan(ten):
		return "$" + price.StringFixed(4)
	case price.LessThan(kilo):
		return "$" + price.StringFixed(2)
	default:
		f, _ := price.Round(2).Float64()
		return "$" + humanize.CommafWithDigits(f, 2)
	}
}
