package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// DefaultCategoryColor is used when a category is created without a color.
const DefaultCategoryColor = "#2563eb"

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Category represents a transaction category. Its type is fixed at creation
// and must match the type of every transaction filed under it.
type Category struct {
	Base
	UserID string       `gorm:"type:uuid;not null" json:"user_id"`
	Name   string       `gorm:"not null" json:"name"`
	Type   CategoryType `gorm:"not null" json:"type"`
	Color  string       `json:"color"`
}
