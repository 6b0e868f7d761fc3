package models

import "github.com/shopspring/decimal"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Matches reports whether a transaction of this type may be filed under a
// category of the given type.
func (t TransactionType) Matches(c CategoryType) bool {
	return string(t) == string(c)
}

// Transaction represents a financial transaction in the system
type Transaction struct {
	Base
	UserID          string          `gorm:"type:uuid;not null" json:"user_id"`
	CategoryID      string          `gorm:"type:uuid;not null" json:"category_id"`
	Type            TransactionType `gorm:"not null" json:"type"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description     string          `json:"description"`
	TransactionDate Date            `gorm:"type:date;not null" json:"transaction_date"`

	// Populated by list and detail queries.
	CategoryName  string `gorm:"->;-:migration" json:"category_name,omitempty"`
	CategoryColor string `gorm:"->;-:migration" json:"category_color,omitempty"`
}
