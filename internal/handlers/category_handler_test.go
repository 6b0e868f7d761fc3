package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "spendly/internal/errors"
	"spendly/internal/models"
	"spendly/internal/services"
)

func setupCategoryRouter(handler *CategoryHandler) *gin.Engine {
	r := newTestRouter()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/categories", handler.CreateCategory)
	auth.GET("/categories", handler.GetUserCategories)
	auth.GET("/categories/:id", handler.GetCategoryByID)
	auth.PUT("/categories/:id", handler.UpdateCategory)
	auth.DELETE("/categories/:id", handler.DeleteCategory)
	return r
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		catSvc := &mockCategoryService{
			createCategoryFn: func(userID, name string, catType models.CategoryType, color string) (*models.Category, error) {
				if userID != testUserID {
					t.Errorf("expected user %s, got %s", testUserID, userID)
				}
				c := &models.Category{UserID: userID, Name: name, Type: catType, Color: color}
				c.ID = testCategoryID
				return c, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc))

		rec := doRequest(r, "POST", "/categories", `{"name":"Food","type":"expense","color":"#FF0000"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		cat := parseJSON(t, rec)["category"].(map[string]interface{})
		if cat["name"] != "Food" || cat["type"] != "expense" {
			t.Errorf("unexpected category %v", cat)
		}
	})

	badInputs := []struct {
		name string
		body string
	}{
		{"missing name", `{"type":"expense"}`},
		{"missing type", `{"name":"Food"}`},
		{"invalid type", `{"name":"Food","type":"transfer"}`},
		{"invalid color", `{"name":"Food","type":"expense","color":"red"}`},
		{"name too long", `{"name":"` + strings.Repeat("a", 101) + `","type":"expense"}`},
	}
	for _, tt := range badInputs {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}))

			rec := doRequest(r, "POST", "/categories", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns 409 on duplicate name", func(t *testing.T) {
		catSvc := &mockCategoryService{
			createCategoryFn: func(string, string, models.CategoryType, string) (*models.Category, error) {
				return nil, apperrors.ErrDuplicateCategory
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc))

		rec := doRequest(r, "POST", "/categories", `{"name":"Food","type":"expense"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_GetUserCategories(t *testing.T) {
	t.Run("passes type filter", func(t *testing.T) {
		var got *models.CategoryType
		catSvc := &mockCategoryService{
			getUserCategoriesFn: func(_ string, categoryType *models.CategoryType) ([]models.Category, error) {
				got = categoryType
				return []models.Category{{Name: "Salary", Type: models.CategoryTypeIncome}}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc))

		rec := doRequest(r, "GET", "/categories?type=income", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got == nil || *got != models.CategoryTypeIncome {
			t.Errorf("expected income filter, got %v", got)
		}
		if cats := parseJSON(t, rec)["categories"].([]interface{}); len(cats) != 1 {
			t.Errorf("expected 1 category, got %d", len(cats))
		}
	})

	t.Run("no filter", func(t *testing.T) {
		catSvc := &mockCategoryService{
			getUserCategoriesFn: func(_ string, categoryType *models.CategoryType) ([]models.Category, error) {
				if categoryType != nil {
					t.Error("expected nil filter")
				}
				return []models.Category{}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc))

		rec := doRequest(r, "GET", "/categories", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}))

		rec := doRequest(r, "GET", "/categories?type=savings", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_GetCategoryByID(t *testing.T) {
	t.Run("returns 404 when not found", func(t *testing.T) {
		catSvc := &mockCategoryService{
			getCategoryByIDFn: func(string, string) (*models.Category, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc))

		rec := doRequest(r, "GET", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_NOT_FOUND")
	})

	t.Run("returns 400 on invalid id", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}))

		rec := doRequest(r, "GET", "/categories/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_UpdateCategory(t *testing.T) {
	var got services.CategoryPatch
	catSvc := &mockCategoryService{
		updateCategoryFn: func(_, categoryID string, patch services.CategoryPatch) (*models.Category, error) {
			got = patch
			c := &models.Category{Name: *patch.Name}
			c.ID = categoryID
			return c, nil
		},
	}
	r := setupCategoryRouter(NewCategoryHandler(catSvc))

	rec := doRequest(r, "PUT", "/categories/"+testCategoryID, `{"name":"Dining"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Name == nil || *got.Name != "Dining" || got.Color != nil {
		t.Errorf("unexpected patch %+v", got)
	}
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}))

		rec := doRequest(r, "DELETE", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("returns 409 when category has transactions", func(t *testing.T) {
		catSvc := &mockCategoryService{
			deleteCategoryFn: func(string, string) error { return apperrors.ErrCategoryInUse },
		}
		r := setupCategoryRouter(NewCategoryHandler(catSvc))

		rec := doRequest(r, "DELETE", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_IN_USE")
	})
}
