package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendly/internal/database"
	apperrors "spendly/internal/errors"
	"spendly/internal/models"
	"spendly/internal/pagination"
)

const maxDescriptionLength = 255

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

func validateTransactionFields(transactionType models.TransactionType, amount decimal.Decimal, description string, date models.Date) error {
	if !transactionType.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	if !amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !wholeCents(amount) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must have at most two decimal places")
	}
	if len([]rune(description)) > maxDescriptionLength {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "description must be at most 255 characters")
	}
	if date.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction date is required")
	}
	return nil
}

// categoryForTransaction loads the owned category and checks that its type
// matches the transaction type.
func categoryForTransaction(tx *gorm.DB, userID, categoryID string, transactionType models.TransactionType) (*models.Category, error) {
	category, err := findCategory(tx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	if !transactionType.Matches(category.Type) {
		return nil, apperrors.ErrCategoryTypeMismatch
	}
	return category, nil
}

// CreateTransaction records a transaction against one of the user's categories.
func (s *transactionService) CreateTransaction(
	userID string,
	categoryID string,
	transactionType models.TransactionType,
	amount decimal.Decimal,
	description string,
	date models.Date,
) (*models.Transaction, error) {
	description = strings.TrimSpace(description)
	if err := validateTransactionFields(transactionType, amount, description, date); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID:          userID,
		CategoryID:      categoryID,
		Type:            transactionType,
		Amount:          amount,
		Description:     description,
		TransactionDate: date,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		category, err := categoryForTransaction(tx, userID, categoryID, transactionType)
		if err != nil {
			return err
		}

		if err := tx.Create(transaction).Error; err != nil {
			if database.IsForeignKeyViolation(err) {
				return apperrors.ErrCategoryNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		transaction.CategoryName = category.Name
		transaction.CategoryColor = category.Color
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// withCategory selects transactions together with their category's display fields.
func withCategory(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Transaction{}).
		Select("transactions.*, categories.name AS category_name, categories.color AS category_color").
		Joins("LEFT JOIN categories ON categories.id = transactions.category_id")
}

// GetUserTransactions retrieves a paginated, filtered list of the user's
// transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	var totalItems int64
	countQuery := applyTransactionFilters(s.db.Model(&models.Transaction{}).Where("transactions.user_id = ?", userID), filter)
	if err := countQuery.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	listQuery := applyTransactionFilters(withCategory(s.db).Where("transactions.user_id = ?", userID), filter)
	if err := listQuery.
		Order("transactions.transaction_date DESC").
		Order("transactions.created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("transactions.transaction_date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("transactions.transaction_date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("transactions.type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("transactions.category_id = ?", *f.CategoryID)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	return findTransaction(s.db, userID, transactionID)
}

func findTransaction(db *gorm.DB, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := withCategory(db).
		Where("transactions.id = ? AND transactions.user_id = ?", transactionID, userID).
		Take(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction merges the patch into the stored transaction. The merged
// category must belong to the user and match the merged type.
func (s *transactionService) UpdateTransaction(userID, transactionID string, patch TransactionPatch) (*models.Transaction, error) {
	var updated *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		transaction, err := findTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}

		if patch.CategoryID != nil {
			transaction.CategoryID = *patch.CategoryID
		}
		if patch.Type != nil {
			transaction.Type = *patch.Type
		}
		if patch.Amount != nil {
			transaction.Amount = *patch.Amount
		}
		if patch.Description != nil {
			transaction.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.TransactionDate != nil {
			transaction.TransactionDate = *patch.TransactionDate
		}

		if err := validateTransactionFields(transaction.Type, transaction.Amount, transaction.Description, transaction.TransactionDate); err != nil {
			return err
		}

		category, err := categoryForTransaction(tx, userID, transaction.CategoryID, transaction.Type)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Transaction{}).
			Where("id = ? AND user_id = ?", transactionID, userID).
			Updates(map[string]interface{}{
				"category_id":      transaction.CategoryID,
				"type":             transaction.Type,
				"amount":           transaction.Amount,
				"description":      transaction.Description,
				"transaction_date": transaction.TransactionDate,
			}).Error; err != nil {
			if database.IsForeignKeyViolation(err) {
				return apperrors.ErrCategoryNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		transaction.CategoryName = category.Name
		transaction.CategoryColor = category.Color
		updated = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTransaction deletes a transaction
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	result := s.db.Where("id = ? AND user_id = ?", transactionID, userID).Delete(&models.Transaction{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// GetSpendingByCategory sums the user's expenses per category for
// transactions dated within [start, end]. Categories without expenses in the
// range are omitted; rows are ordered by total, largest first.
func (s *transactionService) GetSpendingByCategory(userID string, start, end models.Date) (*SpendingSummary, error) {
	if end.Before(start) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_date must not be before start_date")
	}

	rows := []CategorySpending{}
	err := s.db.Table("transactions").
		Select(`categories.id AS category_id,
			categories.name AS category_name,
			categories.color AS category_color,
			SUM(transactions.amount) AS total_amount,
			COUNT(transactions.id) AS transaction_count`).
		Joins("JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.user_id = ? AND transactions.type = ?", userID, models.TransactionTypeExpense).
		Where("transactions.transaction_date >= ? AND transactions.transaction_date <= ?", start, end).
		Group("categories.id, categories.name, categories.color").
		Order("total_amount DESC").
		Order("categories.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := decimal.Zero
	for i := range rows {
		rows[i].TotalAmount = rows[i].TotalAmount.Round(2)
		total = total.Add(rows[i].TotalAmount)
	}

	return &SpendingSummary{
		StartDate:       start,
		EndDate:         end,
		Categories:      rows,
		TotalExpenses:   total,
		CategoriesCount: len(rows),
	}, nil
}

// GetMonthlyTrend buckets the user's transactions by calendar month, from
// the first day of the month months-1 months ago through the end of the
// current month. Months without transactions are omitted; the most recent
// month comes first.
func (s *transactionService) GetMonthlyTrend(userID string, months int) ([]MonthlyTrend, error) {
	if months == 0 {
		months = DefaultTrendMonths
	}
	if months < 1 || months > MaxTrendMonths {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "months must be between 1 and 120")
	}

	start, end := trendWindow(models.Today(), months)
	month := monthExpr(s.db, "transaction_date")

	trends := []MonthlyTrend{}
	err := s.db.Model(&models.Transaction{}).
		Select(month+` AS month,
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS total_expenses,
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS total_income,
			COUNT(*) AS transaction_count`, models.TransactionTypeExpense, models.TransactionTypeIncome).
		Where("user_id = ? AND transaction_date >= ? AND transaction_date <= ?", userID, start, end).
		Group(month).
		Order("month DESC").
		Scan(&trends).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range trends {
		trends[i].TotalExpenses = trends[i].TotalExpenses.Round(2)
		trends[i].TotalIncome = trends[i].TotalIncome.Round(2)
	}
	return trends, nil
}
