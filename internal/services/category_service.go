package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"spendly/internal/database"
	apperrors "spendly/internal/errors"
	"spendly/internal/models"
)

const maxCategoryNameLength = 100

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

func validateCategoryName(name string) error {
	if name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if len([]rune(name)) > maxCategoryNameLength {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category name must be at most 100 characters")
	}
	return nil
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(
	userID string,
	name string,
	categoryType models.CategoryType,
	color string,
) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}
	if !categoryType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be income or expense")
	}
	if color == "" {
		color = models.DefaultCategoryColor
	}

	// Check if a category with the same name already exists for this user
	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("user_id = ? AND name = ?", userID, name).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateCategory
	}

	category := &models.Category{
		UserID: userID,
		Name:   name,
		Type:   categoryType,
		Color:  color,
	}

	if err := s.db.Create(category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateCategory
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetUserCategories lists the user's categories by name, optionally of one type.
func (s *categoryService) GetUserCategories(userID string, categoryType *models.CategoryType) ([]models.Category, error) {
	query := s.db.Where("user_id = ?", userID)
	if categoryType != nil {
		query = query.Where("type = ?", *categoryType)
	}

	categories := []models.Category{}
	if err := query.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	return findCategory(s.db, userID, categoryID)
}

// findCategory looks up an owned category on db, which may be a transaction.
func findCategory(db *gorm.DB, userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory renames or recolors a category.
func (s *categoryService) UpdateCategory(userID, categoryID string, patch CategoryPatch) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validateCategoryName(name); err != nil {
			return nil, err
		}
		if name != category.Name {
			var count int64
			if err := s.db.Model(&models.Category{}).
				Where("user_id = ? AND name = ? AND id <> ?", userID, name, categoryID).
				Count(&count).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return nil, apperrors.ErrDuplicateCategory
			}
			category.Name = name
			updates["name"] = name
		}
	}
	if patch.Color != nil && *patch.Color != "" {
		category.Color = *patch.Color
		updates["color"] = category.Color
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return nil, apperrors.ErrDuplicateCategory
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return category, nil
}

// DeleteCategory deletes a category and its budgets. Categories still
// referenced by transactions are kept and ErrCategoryInUse is returned.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}

		var txCount int64
		if err := tx.Model(&models.Transaction{}).
			Where("category_id = ? AND user_id = ?", categoryID, userID).
			Count(&txCount).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if txCount > 0 {
			return apperrors.ErrCategoryInUse
		}

		if err := tx.Where("category_id = ? AND user_id = ?", categoryID, userID).Delete(&models.Budget{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// The foreign key on transactions is the authority when a transaction
		// lands between the count and the delete.
		if err := tx.Delete(category).Error; err != nil {
			if database.IsForeignKeyViolation(err) {
				return apperrors.ErrCategoryInUse
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
