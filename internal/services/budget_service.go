package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendly/internal/database"
	apperrors "spendly/internal/errors"
	"spendly/internal/models"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

func validateBudgetFields(amount decimal.Decimal, periodStart, periodEnd models.Date) error {
	if amount.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be negative")
	}
	if !wholeCents(amount) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must have at most two decimal places")
	}
	if periodStart.IsZero() || periodEnd.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "period_start and period_end are required")
	}
	if !periodEnd.After(periodStart) {
		return apperrors.ErrInvalidPeriod
	}
	return nil
}

// translateBudgetWriteError maps store constraint failures on the budgets
// table onto the budget error taxonomy.
func translateBudgetWriteError(err error) error {
	switch database.ClassifyConstraint(err).Kind {
	case database.ExclusionViolation:
		return apperrors.ErrBudgetOverlap
	case database.ForeignKeyViolation:
		return apperrors.ErrCategoryNotFound
	case database.CheckViolation:
		return apperrors.ErrInvalidPeriod
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// CheckOverlap reports whether any budget of the user for categoryID has a
// period sharing at least one day with [periodStart, periodEnd].
// excludeBudgetID, when set, leaves that budget out of the comparison.
func (s *budgetService) CheckOverlap(userID, categoryID string, periodStart, periodEnd models.Date, excludeBudgetID *string) (bool, error) {
	return checkOverlap(s.db, userID, categoryID, periodStart, periodEnd, excludeBudgetID)
}

func checkOverlap(db *gorm.DB, userID, categoryID string, periodStart, periodEnd models.Date, excludeBudgetID *string) (bool, error) {
	query := db.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Where("period_start <= ? AND ? <= period_end", periodEnd, periodStart)
	if excludeBudgetID != nil {
		query = query.Where("id <> ?", *excludeBudgetID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// CreateBudget creates a budget for one of the user's categories. The
// period must not overlap another budget of the same category.
func (s *budgetService) CreateBudget(
	userID, categoryID string,
	amount decimal.Decimal,
	periodStart, periodEnd models.Date,
) (*models.Budget, error) {
	if err := validateBudgetFields(amount, periodStart, periodEnd); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      amount,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}

		overlaps, err := checkOverlap(tx, userID, categoryID, periodStart, periodEnd, nil)
		if err != nil {
			return err
		}
		if overlaps {
			return apperrors.ErrBudgetOverlap
		}

		if err := tx.Create(budget).Error; err != nil {
			return translateBudgetWriteError(err)
		}
		budget.CategoryName = category.Name
		budget.CategoryType = category.Type
		budget.CategoryColor = category.Color
		return nil
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// withBudgetCategory selects budgets together with their category's display fields.
func withBudgetCategory(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Budget{}).
		Select("budgets.*, categories.name AS category_name, categories.type AS category_type, categories.color AS category_color").
		Joins("JOIN categories ON categories.id = budgets.category_id")
}

// activeOn restricts a budgets query to periods containing day.
func activeOn(q *gorm.DB, day models.Date) *gorm.DB {
	return q.Where("budgets.period_start <= ? AND budgets.period_end >= ?", day, day)
}

// GetUserBudgets lists the user's budgets, most recent period first.
func (s *budgetService) GetUserBudgets(userID string, filter BudgetFilter) ([]models.Budget, error) {
	query := withBudgetCategory(s.db).Where("budgets.user_id = ?", userID)
	if filter.CategoryID != nil {
		query = query.Where("budgets.category_id = ?", *filter.CategoryID)
	}
	if filter.Active != nil {
		today := models.Today()
		if *filter.Active {
			query = activeOn(query, today)
		} else {
			query = query.Where("(budgets.period_start > ? OR budgets.period_end < ?)", today, today)
		}
	}

	budgets := []models.Budget{}
	if err := query.Order("budgets.period_start DESC").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetActiveBudgets lists the user's budgets whose period contains today.
func (s *budgetService) GetActiveBudgets(userID string) ([]models.Budget, error) {
	query := activeOn(withBudgetCategory(s.db).Where("budgets.user_id = ?", userID), models.Today())

	budgets := []models.Budget{}
	if err := query.Order("categories.name ASC").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	return findBudget(s.db, userID, budgetID)
}

func findBudget(db *gorm.DB, userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := withBudgetCategory(db).
		Where("budgets.id = ? AND budgets.user_id = ?", budgetID, userID).
		Take(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget merges the patch into the stored budget. The overlap guard
// runs only when the category or the period changes, and never compares the
// budget against itself.
func (s *budgetService) UpdateBudget(userID, budgetID string, patch BudgetPatch) (*models.Budget, error) {
	var updated *models.Budget
	err := s.db.Transaction(func(tx *gorm.DB) error {
		budget, err := findBudget(tx, userID, budgetID)
		if err != nil {
			return err
		}

		categoryChanged := patch.CategoryID != nil && *patch.CategoryID != budget.CategoryID
		periodChanged := (patch.PeriodStart != nil && !patch.PeriodStart.Equal(budget.PeriodStart)) ||
			(patch.PeriodEnd != nil && !patch.PeriodEnd.Equal(budget.PeriodEnd))

		if patch.CategoryID != nil {
			budget.CategoryID = *patch.CategoryID
		}
		if patch.Amount != nil {
			budget.Amount = *patch.Amount
		}
		if patch.PeriodStart != nil {
			budget.PeriodStart = *patch.PeriodStart
		}
		if patch.PeriodEnd != nil {
			budget.PeriodEnd = *patch.PeriodEnd
		}

		if err := validateBudgetFields(budget.Amount, budget.PeriodStart, budget.PeriodEnd); err != nil {
			return err
		}

		if categoryChanged {
			category, err := findCategory(tx, userID, budget.CategoryID)
			if err != nil {
				return err
			}
			budget.CategoryName = category.Name
			budget.CategoryType = category.Type
			budget.CategoryColor = category.Color
		}

		if categoryChanged || periodChanged {
			overlaps, err := checkOverlap(tx, userID, budget.CategoryID, budget.PeriodStart, budget.PeriodEnd, &budgetID)
			if err != nil {
				return err
			}
			if overlaps {
				return apperrors.ErrBudgetOverlap
			}
		}

		if err := tx.Model(&models.Budget{}).
			Where("id = ? AND user_id = ?", budgetID, userID).
			Updates(map[string]interface{}{
				"category_id":  budget.CategoryID,
				"amount":       budget.Amount,
				"period_start": budget.PeriodStart,
				"period_end":   budget.PeriodEnd,
			}).Error; err != nil {
			return translateBudgetWriteError(err)
		}

		updated = budget
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBudget deletes a budget. Transactions are unaffected.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	result := s.db.Where("id = ? AND user_id = ?", budgetID, userID).Delete(&models.Budget{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrBudgetNotFound
	}
	return nil
}

// budgetStatusRow is the raw budget-vs-actual row before derived fields are filled in.
type budgetStatusRow struct {
	BudgetID      string
	CategoryID    string
	CategoryName  string
	CategoryColor string
	BudgetAmount  decimal.Decimal
	SpentAmount   decimal.Decimal
	PeriodStart   models.Date
	PeriodEnd     models.Date
}

const spentSubquery = `COALESCE((
	SELECT SUM(t.amount) FROM transactions t
	WHERE t.user_id = budgets.user_id
	  AND t.category_id = budgets.category_id
	  AND t.type = ?
	  AND t.transaction_date >= budgets.period_start
	  AND t.transaction_date <= budgets.period_end
), 0) AS spent_amount`

func budgetStatusQuery(db *gorm.DB, userID string) *gorm.DB {
	return db.Table("budgets").
		Select(`budgets.id AS budget_id,
			budgets.category_id AS category_id,
			categories.name AS category_name,
			categories.color AS category_color,
			budgets.amount AS budget_amount,
			budgets.period_start AS period_start,
			budgets.period_end AS period_end,
			`+spentSubquery, models.TransactionTypeExpense).
		Joins("JOIN categories ON categories.id = budgets.category_id").
		Where("budgets.user_id = ?", userID)
}

func (r budgetStatusRow) status(today models.Date) BudgetStatus {
	spent := r.SpentAmount.Round(2)
	return BudgetStatus{
		BudgetID:        r.BudgetID,
		CategoryID:      r.CategoryID,
		CategoryName:    r.CategoryName,
		CategoryColor:   r.CategoryColor,
		BudgetAmount:    r.BudgetAmount,
		SpentAmount:     spent,
		RemainingAmount: r.BudgetAmount.Sub(spent),
		PercentageUsed:  percentageUsed(spent, r.BudgetAmount),
		PeriodStart:     r.PeriodStart,
		PeriodEnd:       r.PeriodEnd,
		IsActive:        (&models.Budget{PeriodStart: r.PeriodStart, PeriodEnd: r.PeriodEnd}).Contains(today),
	}
}

// GetBudgetStatus compares every budget of the user with the expenses
// recorded in its category during its period.
func (s *budgetService) GetBudgetStatus(userID string) ([]BudgetStatus, error) {
	var rows []budgetStatusRow
	if err := budgetStatusQuery(s.db, userID).
		Order("categories.name ASC").
		Order("budgets.period_start ASC").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	today := models.Today()
	statuses := make([]BudgetStatus, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, row.status(today))
	}
	return statuses, nil
}

// GetBudgetSpending is GetBudgetStatus for a single budget.
func (s *budgetService) GetBudgetSpending(userID, budgetID string) (*BudgetStatus, error) {
	var rows []budgetStatusRow
	if err := budgetStatusQuery(s.db, userID).
		Where("budgets.id = ?", budgetID).
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrBudgetNotFound
	}

	status := rows[0].status(models.Today())
	return &status, nil
}
