package services

import (
	"github.com/shopspring/decimal"

	"spendly/internal/models"
	"spendly/internal/pagination"
)

// UserPatch carries the profile fields to change. Nil fields are left as is.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
	// Password changes require CurrentPassword to match the stored hash.
	Password        *string
	CurrentPassword string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
	UpdateUser(userID string, patch UserPatch) (*models.User, error)
	DeleteUser(userID string) error
}

// CategoryPatch carries the category fields to change. A category's type is
// fixed at creation.
type CategoryPatch struct {
	Name  *string
	Color *string
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, color string) (*models.Category, error)
	GetUserCategories(userID string, categoryType *models.CategoryType) ([]models.Category, error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID string, patch CategoryPatch) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *models.Date
	ToDate     *models.Date
	Type       *models.TransactionType
	CategoryID *string
}

// TransactionPatch carries the transaction fields to change.
type TransactionPatch struct {
	CategoryID      *string
	Type            *models.TransactionType
	Amount          *decimal.Decimal
	Description     *string
	TransactionDate *models.Date
}

// CategorySpending is one row of the spend-by-category aggregation.
type CategorySpending struct {
	CategoryID       string          `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	CategoryColor    string          `json:"category_color"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int64           `json:"transaction_count"`
}

// SpendingSummary is the spend-by-category result for a date range.
type SpendingSummary struct {
	StartDate       models.Date        `json:"start_date"`
	EndDate         models.Date        `json:"end_date"`
	Categories      []CategorySpending `json:"categories"`
	TotalExpenses   decimal.Decimal    `json:"total_expenses"`
	CategoriesCount int                `json:"categories_count"`
}

// MonthlyTrend holds the income and expense totals of one calendar month.
type MonthlyTrend struct {
	Month            string          `json:"month"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TransactionCount int64           `json:"transaction_count"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID, categoryID string, transactionType models.TransactionType, amount decimal.Decimal, description string, date models.Date) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, patch TransactionPatch) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	GetSpendingByCategory(userID string, start, end models.Date) (*SpendingSummary, error)
	GetMonthlyTrend(userID string, months int) ([]MonthlyTrend, error)
}

// BudgetFilter holds optional filter parameters for listing budgets.
type BudgetFilter struct {
	CategoryID *string
	// Active keeps budgets whose period contains today (true) or does not (false).
	Active *bool
}

// BudgetPatch carries the budget fields to change.
type BudgetPatch struct {
	CategoryID  *string
	Amount      *decimal.Decimal
	PeriodStart *models.Date
	PeriodEnd   *models.Date
}

// BudgetStatus compares a budget's cap with the expenses recorded in its
// category during its period.
type BudgetStatus struct {
	BudgetID        string          `json:"budget_id"`
	CategoryID      string          `json:"category_id"`
	CategoryName    string          `json:"category_name"`
	CategoryColor   string          `json:"category_color"`
	BudgetAmount    decimal.Decimal `json:"budget_amount"`
	SpentAmount     decimal.Decimal `json:"spent_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	PercentageUsed  float64         `json:"percentage_used"`
	PeriodStart     models.Date     `json:"period_start"`
	PeriodEnd       models.Date     `json:"period_end"`
	IsActive        bool            `json:"is_active"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID, categoryID string, amount decimal.Decimal, periodStart, periodEnd models.Date) (*models.Budget, error)
	GetUserBudgets(userID string, filter BudgetFilter) ([]models.Budget, error)
	GetActiveBudgets(userID string) ([]models.Budget, error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, patch BudgetPatch) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	CheckOverlap(userID, categoryID string, periodStart, periodEnd models.Date, excludeBudgetID *string) (bool, error)
	GetBudgetStatus(userID string) ([]BudgetStatus, error)
	GetBudgetSpending(userID, budgetID string) (*BudgetStatus, error)
}
