package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendly/internal/models"
)

// Monthly trend window bounds.
const (
	DefaultTrendMonths = 6
	MaxTrendMonths     = 120
)

var hundred = decimal.NewFromInt(100)

// wholeCents reports whether amount fits numeric(12,2) without rounding.
func wholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(2))
}

// trendWindow returns the first day of the month months-1 months before
// today and the last day of today's month.
func trendWindow(today models.Date, months int) (models.Date, models.Date) {
	first := today.FirstOfMonth()
	return first.AddDate(0, -(months - 1), 0), first.AddDate(0, 1, -1)
}

// monthExpr renders column as a YYYY-MM string in the connected dialect.
func monthExpr(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return "to_char(" + column + ", 'YYYY-MM')"
	}
	return "strftime('%Y-%m', " + column + ")"
}

// percentageUsed is spent as a percentage of amount rounded to two places.
// A zero amount yields zero rather than dividing by zero.
func percentageUsed(spent, amount decimal.Decimal) float64 {
	if amount.IsZero() {
		return 0
	}
	return spent.Div(amount).Mul(hundred).Round(2).InexactFloat64()
}
