package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendly/internal/models"
	"spendly/internal/testutil"
)

func TestCheckOverlap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	groceries := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	rent := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

	jan := testutil.CreateTestBudget(t, db, user.ID, groceries.ID, "500", "2024-01-01", "2024-01-31")
	testutil.CreateTestBudget(t, db, user.ID, groceries.ID, "500", "2024-02-01", "2024-02-29")

	tests := []struct {
		name       string
		userID     string
		categoryID string
		start, end string
		exclude    *string
		want       bool
	}{
		{"spans_both_months", user.ID, groceries.ID, "2024-01-31", "2024-02-15", nil, true},
		{"touches_end", user.ID, groceries.ID, "2024-02-29", "2024-03-31", nil, true},
		{"touches_start", user.ID, groceries.ID, "2023-12-01", "2024-01-01", nil, true},
		{"contained", user.ID, groceries.ID, "2024-01-10", "2024-01-20", nil, true},
		{"after", user.ID, groceries.ID, "2024-03-01", "2024-03-31", nil, false},
		{"before", user.ID, groceries.ID, "2023-12-01", "2023-12-31", nil, false},
		{"other_category", user.ID, rent.ID, "2024-01-01", "2024-01-31", nil, false},
		{"other_user", other.ID, groceries.ID, "2024-01-01", "2024-01-31", nil, false},
		{"self_excluded", user.ID, groceries.ID, "2024-01-01", "2024-01-31", &jan.ID, false},
		{"self_excluded_still_sees_others", user.ID, groceries.ID, "2024-01-15", "2024-02-01", &jan.ID, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CheckOverlap(tt.userID, tt.categoryID, date(tt.start), date(tt.end), tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			// The SQL predicate and the in-memory predicate agree.
			if tt.exclude == nil && tt.userID == user.ID && tt.categoryID == groceries.ID {
				inMemory := models.RangesOverlap(date(tt.start), date(tt.end), jan.PeriodStart, jan.PeriodEnd) ||
					models.RangesOverlap(date(tt.start), date(tt.end), date("2024-02-01"), date("2024-02-29"))
				assert.Equal(t, inMemory, got)
			}
		})
	}
}

func TestCreateBudget(t *testing.T) {
	t.Run("adjacent_months_then_overlap", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategoryNamed(t, db, user.ID, "Groceries", models.CategoryTypeExpense)

		jan, err := svc.CreateBudget(user.ID, cat.ID, dec("500"), date("2024-01-01"), date("2024-01-31"))
		require.NoError(t, err)
		assert.Equal(t, "Groceries", jan.CategoryName)

		_, err = svc.CreateBudget(user.ID, cat.ID, dec("500"), date("2024-02-01"), date("2024-02-29"))
		require.NoError(t, err)

		_, err = svc.CreateBudget(user.ID, cat.ID, dec("300"), date("2024-01-31"), date("2024-02-15"))
		testutil.AssertAppError(t, err, "BUDGET_OVERLAP")
	})

	t.Run("zero_amount_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		b, err := svc.CreateBudget(user.ID, cat.ID, dec("0"), date("2024-01-01"), date("2024-01-31"))
		require.NoError(t, err)
		assert.True(t, b.Amount.IsZero())
	})

	t.Run("invalid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		foreign := testutil.CreateTestCategory(t, db, other.ID, models.CategoryTypeExpense)

		tests := []struct {
			name       string
			categoryID string
			amount     string
			start, end string
			errCode    string
		}{
			{"negative_amount", cat.ID, "-1", "2024-01-01", "2024-01-31", "INVALID_INPUT"},
			{"sub_cent_amount", cat.ID, "10.005", "2024-01-01", "2024-01-31", "INVALID_INPUT"},
			{"end_equals_start", cat.ID, "10", "2024-01-01", "2024-01-01", "INVALID_PERIOD"},
			{"end_before_start", cat.ID, "10", "2024-01-31", "2024-01-01", "INVALID_PERIOD"},
			{"foreign_category", foreign.ID, "10", "2024-01-01", "2024-01-31", "CATEGORY_NOT_FOUND"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.CreateBudget(user.ID, tt.categoryID, dec(tt.amount), date(tt.start), date(tt.end))
				testutil.AssertAppError(t, err, tt.errCode)
			})
		}
	})
}

func TestGetUserBudgets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	food := testutil.CreateTestCategoryNamed(t, db, user.ID, "Food", models.CategoryTypeExpense)
	fun := testutil.CreateTestCategoryNamed(t, db, user.ID, "Fun", models.CategoryTypeExpense)

	today := models.Today()
	current := testutil.CreateTestBudget(t, db, user.ID, food.ID, "100",
		today.AddDate(0, 0, -5).String(), today.AddDate(0, 0, 5).String())
	testutil.CreateTestBudget(t, db, user.ID, food.ID, "100", "2020-01-01", "2020-01-31")
	testutil.CreateTestBudget(t, db, user.ID, fun.ID, "50", "2020-02-01", "2020-02-29")

	t.Run("all_newest_period_first", func(t *testing.T) {
		budgets, err := svc.GetUserBudgets(user.ID, BudgetFilter{})
		require.NoError(t, err)
		require.Len(t, budgets, 3)
		assert.Equal(t, current.ID, budgets[0].ID)
		assert.Equal(t, "Fun", budgets[1].CategoryName)
	})

	t.Run("by_category", func(t *testing.T) {
		budgets, err := svc.GetUserBudgets(user.ID, BudgetFilter{CategoryID: &fun.ID})
		require.NoError(t, err)
		require.Len(t, budgets, 1)
		assert.Equal(t, models.CategoryTypeExpense, budgets[0].CategoryType)
	})

	t.Run("active", func(t *testing.T) {
		active, inactive := true, false
		budgets, err := svc.GetUserBudgets(user.ID, BudgetFilter{Active: &active})
		require.NoError(t, err)
		require.Len(t, budgets, 1)
		assert.Equal(t, current.ID, budgets[0].ID)

		budgets, err = svc.GetUserBudgets(user.ID, BudgetFilter{Active: &inactive})
		require.NoError(t, err)
		assert.Len(t, budgets, 2)
	})

	t.Run("active_budgets", func(t *testing.T) {
		budgets, err := svc.GetActiveBudgets(user.ID)
		require.NoError(t, err)
		require.Len(t, budgets, 1)
		assert.True(t, budgets[0].Contains(today))
	})
}

func TestGetBudgetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategoryNamed(t, db, user.ID, "Travel", models.CategoryTypeExpense)
	b := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "750.50", "2024-06-01", "2024-08-31")

	got, err := svc.GetBudgetByID(user.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Travel", got.CategoryName)
	testutil.AssertDecimal(t, "750.5", got.Amount)
	assert.Equal(t, "2024-06-01", got.PeriodStart.String())

	_, err = svc.GetBudgetByID(other.ID, b.ID)
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
}

func TestUpdateBudget(t *testing.T) {
	t.Run("amount_only_skips_overlap_guard", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		b := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100", "2024-01-01", "2024-01-31")

		amount := dec("250")
		got, err := svc.UpdateBudget(user.ID, b.ID, BudgetPatch{Amount: &amount})
		require.NoError(t, err)
		testutil.AssertDecimal(t, "250", got.Amount)
		assert.Equal(t, "2024-01-31", got.PeriodEnd.String())
	})

	t.Run("own_period_is_not_an_overlap", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		b := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100", "2024-01-01", "2024-01-31")

		end := date("2024-01-20")
		got, err := svc.UpdateBudget(user.ID, b.ID, BudgetPatch{PeriodEnd: &end})
		require.NoError(t, err)
		assert.Equal(t, "2024-01-20", got.PeriodEnd.String())
	})

	t.Run("extending_into_neighbour", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		jan := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100", "2024-01-01", "2024-01-31")
		testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100", "2024-02-01", "2024-02-29")

		end := date("2024-02-01")
		_, err := svc.UpdateBudget(user.ID, jan.ID, BudgetPatch{PeriodEnd: &end})
		testutil.AssertAppError(t, err, "BUDGET_OVERLAP")

		stored, err := svc.GetBudgetByID(user.ID, jan.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-31", stored.PeriodEnd.String())
	})

	t.Run("moving_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		a := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		b := testutil.CreateTestCategoryNamed(t, db, user.ID, "Target", models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, a.ID, "100", "2024-01-01", "2024-01-31")
		testutil.CreateTestBudget(t, db, user.ID, b.ID, "100", "2024-01-15", "2024-02-15")

		_, err := svc.UpdateBudget(user.ID, budget.ID, BudgetPatch{CategoryID: &b.ID})
		testutil.AssertAppError(t, err, "BUDGET_OVERLAP")

		start, end := date("2024-03-01"), date("2024-03-31")
		got, err := svc.UpdateBudget(user.ID, budget.ID, BudgetPatch{CategoryID: &b.ID, PeriodStart: &start, PeriodEnd: &end})
		require.NoError(t, err)
		assert.Equal(t, "Target", got.CategoryName)
	})

	t.Run("merged_period_must_be_valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		b := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100", "2024-01-01", "2024-01-31")

		start := date("2024-02-10")
		_, err := svc.UpdateBudget(user.ID, b.ID, BudgetPatch{PeriodStart: &start})
		testutil.AssertAppError(t, err, "INVALID_PERIOD")
	})
}

func TestDeleteBudget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	tx := testutil.CreateTestTransaction(t, db, user.ID, cat, "10", "2024-01-10")
	b := testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100", "2024-01-01", "2024-01-31")

	testutil.AssertNoError(t, svc.DeleteBudget(user.ID, b.ID))
	testutil.AssertAppError(t, svc.DeleteBudget(user.ID, b.ID), "BUDGET_NOT_FOUND")

	if _, err := NewTransactionService(db).GetTransactionByID(user.ID, tx.ID); err != nil {
		t.Errorf("transactions must survive budget deletion: %v", err)
	}
}
