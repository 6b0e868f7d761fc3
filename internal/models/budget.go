package models

import "github.com/shopspring/decimal"

// Budget caps spending in one category over a closed date range.
type Budget struct {
	Base
	UserID      string          `gorm:"type:uuid;not null" json:"user_id"`
	CategoryID  string          `gorm:"type:uuid;not null" json:"category_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PeriodStart Date            `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd   Date            `gorm:"type:date;not null" json:"period_end"`

	// Populated by list and detail queries.
	CategoryName  string       `gorm:"->;-:migration" json:"category_name,omitempty"`
	CategoryType  CategoryType `gorm:"->;-:migration" json:"category_type,omitempty"`
	CategoryColor string       `gorm:"->;-:migration" json:"category_color,omitempty"`
}

// Contains reports whether d falls inside the budget period.
func (b *Budget) Contains(d Date) bool {
	return !d.Before(b.PeriodStart) && !d.After(b.PeriodEnd)
}
