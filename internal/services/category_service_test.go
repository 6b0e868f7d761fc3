package services

import (
	"testing"

	"gorm.io/gorm"

	"spendly/internal/models"
	"spendly/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		cat, err := svc.CreateCategory(user.ID, "Groceries", models.CategoryTypeExpense, "#FF0000")
		testutil.AssertNoError(t, err)

		if cat.ID == "" {
			t.Fatal("expected a category ID")
		}
		if cat.Name != "Groceries" {
			t.Errorf("expected name Groceries, got %s", cat.Name)
		}
		if cat.Type != models.CategoryTypeExpense {
			t.Errorf("expected type expense, got %s", cat.Type)
		}
		if cat.Color != "#FF0000" {
			t.Errorf("expected color #FF0000, got %s", cat.Color)
		}
	})

	t.Run("default_color", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		cat, err := svc.CreateCategory(user.ID, "Salary", models.CategoryTypeIncome, "")
		testutil.AssertNoError(t, err)
		if cat.Color != models.DefaultCategoryColor {
			t.Errorf("expected default color, got %s", cat.Color)
		}
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user.ID, "Food", models.CategoryTypeExpense, "")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateCategory(user.ID, "Food", models.CategoryTypeIncome, "")
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("same_name_other_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(alice.ID, "Food", models.CategoryTypeExpense, "")
		testutil.AssertNoError(t, err)
		_, err = svc.CreateCategory(bob.ID, "Food", models.CategoryTypeExpense, "")
		testutil.AssertNoError(t, err)
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user.ID, "   ", models.CategoryTypeExpense, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(user.ID, "Moves", models.CategoryType("transfer"), "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	testutil.CreateTestCategoryNamed(t, db, user.ID, "Rent", models.CategoryTypeExpense)
	testutil.CreateTestCategoryNamed(t, db, user.ID, "Groceries", models.CategoryTypeExpense)
	testutil.CreateTestCategoryNamed(t, db, user.ID, "Salary", models.CategoryTypeIncome)
	testutil.CreateTestCategoryNamed(t, db, other.ID, "Hidden", models.CategoryTypeExpense)

	t.Run("all_sorted_by_name", func(t *testing.T) {
		cats, err := svc.GetUserCategories(user.ID, nil)
		testutil.AssertNoError(t, err)
		if len(cats) != 3 {
			t.Fatalf("expected 3 categories, got %d", len(cats))
		}
		if cats[0].Name != "Groceries" || cats[2].Name != "Salary" {
			t.Errorf("unexpected order: %s, %s, %s", cats[0].Name, cats[1].Name, cats[2].Name)
		}
	})

	t.Run("by_type", func(t *testing.T) {
		income := models.CategoryTypeIncome
		cats, err := svc.GetUserCategories(user.ID, &income)
		testutil.AssertNoError(t, err)
		if len(cats) != 1 || cats[0].Name != "Salary" {
			t.Errorf("expected only Salary, got %+v", cats)
		}
	})

	t.Run("empty_is_not_nil", func(t *testing.T) {
		fresh := testutil.CreateTestUser(t, db)
		cats, err := svc.GetUserCategories(fresh.ID, nil)
		testutil.AssertNoError(t, err)
		if cats == nil {
			t.Error("expected an empty slice, got nil")
		}
	})
}

func TestGetCategoryByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

	got, err := svc.GetCategoryByID(user.ID, cat.ID)
	testutil.AssertNoError(t, err)
	if got.Name != cat.Name {
		t.Errorf("expected %s, got %s", cat.Name, got.Name)
	}

	// Foreign ownership looks exactly like absence.
	_, err = svc.GetCategoryByID(other.ID, cat.ID)
	testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
}

func TestUpdateCategory(t *testing.T) {
	t.Run("rename_and_recolor", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		name, color := "Dining", "#00ff00"
		got, err := svc.UpdateCategory(user.ID, cat.ID, CategoryPatch{Name: &name, Color: &color})
		testutil.AssertNoError(t, err)
		if got.Name != "Dining" || got.Color != "#00ff00" {
			t.Errorf("patch not applied: %+v", got)
		}
		if got.Type != models.CategoryTypeExpense {
			t.Errorf("type must not change, got %s", got.Type)
		}

		reloaded, _ := svc.GetCategoryByID(user.ID, cat.ID)
		if reloaded.Name != "Dining" {
			t.Errorf("expected stored name Dining, got %s", reloaded.Name)
		}
	})

	t.Run("empty_patch_keeps_values", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		got, err := svc.UpdateCategory(user.ID, cat.ID, CategoryPatch{})
		testutil.AssertNoError(t, err)
		if got.Name != cat.Name || got.Color != cat.Color {
			t.Errorf("expected unchanged category, got %+v", got)
		}
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestCategoryNamed(t, db, user.ID, "Taken", models.CategoryTypeExpense)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		name := "Taken"
		_, err := svc.UpdateCategory(user.ID, cat.ID, CategoryPatch{Name: &name})
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		name := "X"
		_, err := svc.UpdateCategory(user.ID, "0190d6c4-0000-7000-8000-000000000000", CategoryPatch{Name: &name})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestDeleteCategory(t *testing.T) {
	t.Run("unused", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.AssertNoError(t, svc.DeleteCategory(user.ID, cat.ID))

		_, err := svc.GetCategoryByID(user.ID, cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("removes_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100", "2024-01-01", "2024-01-31")

		testutil.AssertNoError(t, svc.DeleteCategory(user.ID, cat.ID))

		var count int64
		db.Model(&models.Budget{}).Where("category_id = ?", cat.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected budgets to be removed, %d remain", count)
		}
	})

	t.Run("in_use", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransaction(t, db, user.ID, cat, "5.00", "2024-01-02")
		testutil.CreateTestBudget(t, db, user.ID, cat.ID, "100", "2024-01-01", "2024-01-31")

		err := svc.DeleteCategory(user.ID, cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")

		// Nothing was removed.
		if _, err := svc.GetCategoryByID(user.ID, cat.ID); err != nil {
			t.Errorf("category should survive a failed delete: %v", err)
		}
		var count int64
		db.Model(&models.Budget{}).Where("category_id = ?", cat.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected budget to survive, found %d", count)
		}
	})

	t.Run("transaction_added_after_check", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		// Insert a referencing transaction between the in-use count and the
		// category delete, leaving only the foreign key to catch it.
		inserted := false
		err := db.Callback().Delete().Before("gorm:delete").Register("test:late_transaction", func(d *gorm.DB) {
			if inserted || d.Statement.Table != "categories" {
				return
			}
			inserted = true
			if err := d.Session(&gorm.Session{NewDB: true}).Exec(
				`INSERT INTO transactions (id, user_id, category_id, type, amount, transaction_date)
				VALUES ('late-txn', ?, ?, 'expense', 5, '2024-01-02')`, user.ID, cat.ID).Error; err != nil {
				t.Errorf("failed to insert late transaction: %v", err)
			}
		})
		testutil.AssertNoError(t, err)

		err = svc.DeleteCategory(user.ID, cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")
		if !inserted {
			t.Fatal("expected the late transaction to be inserted")
		}

		testutil.AssertNoError(t, db.Callback().Delete().Remove("test:late_transaction"))
		if _, err := svc.GetCategoryByID(user.ID, cat.ID); err != nil {
			t.Errorf("category should survive a failed delete: %v", err)
		}
	})

	t.Run("other_users_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, other.ID, models.CategoryTypeExpense)

		testutil.AssertAppError(t, svc.DeleteCategory(user.ID, cat.ID), "CATEGORY_NOT_FOUND")
	})
}
