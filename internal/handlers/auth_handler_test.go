package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "spendly/internal/errors"
	"spendly/internal/middleware"
	"spendly/internal/models"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := newTestRouter()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	r.POST("/auth/refresh", handler.Refresh)
	r.POST("/auth/logout", injectUserID(testUserID), handler.Logout)
	r.GET("/auth/me", injectUserID(testUserID), handler.Me)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("returns 201 with token pair", func(t *testing.T) {
		var storedHash string
		userSvc := &mockUserService{
			createUserFn: func(email, _, firstName, lastName string) (*models.User, error) {
				u := testUser()
				u.Email, u.FirstName, u.LastName = email, firstName, lastName
				return u, nil
			},
			storeRefreshTokenHashFn: func(_, hash string) error {
				storedHash = hash
				return nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/register",
			`{"email":"test@example.com","password":"password123","first_name":"John","last_name":"Doe"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["access_token"] == nil || result["access_token"] == "" {
			t.Error("expected non-empty access_token")
		}
		refresh, _ := result["refresh_token"].(string)
		if refresh == "" {
			t.Fatal("expected non-empty refresh_token")
		}
		if storedHash != middleware.HashToken(refresh) {
			t.Error("expected the refresh token hash to be stored")
		}
		user := result["user"].(map[string]interface{})
		if user["email"] != "test@example.com" {
			t.Errorf("expected email test@example.com, got %v", user["email"])
		}
		if user["display_name"] != "John Doe" {
			t.Errorf("expected display_name John Doe, got %v", user["display_name"])
		}
	})

	badInputs := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"password123"}`},
		{"short password", `{"email":"test@example.com","password":"short"}`},
		{"invalid email format", `{"email":"not-an-email","password":"password123"}`},
		{"malformed json", `{"email":`},
	}
	for _, tt := range badInputs {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupAuthRouter(NewAuthHandler(&mockUserService{}))

			rec := doRequest(r, "POST", "/auth/register", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns 409 on duplicate email", func(t *testing.T) {
		userSvc := &mockUserService{
			createUserFn: func(_, _, _, _ string) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/register", `{"email":"test@example.com","password":"password123"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_EMAIL")
	})

	t.Run("returns 500 without details on unexpected error", func(t *testing.T) {
		userSvc := &mockUserService{
			createUserFn: func(_, _, _, _ string) (*models.User, error) {
				return nil, fmt.Errorf("connection reset")
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/register", `{"email":"test@example.com","password":"password123"}`)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "INTERNAL_ERROR")
		if msg := result["error"].(map[string]interface{})["message"]; msg == "connection reset" {
			t.Error("internal error message leaked to client")
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		loginErr   error
		wantStatus int
		wantCode   string
	}{
		{name: "success", wantStatus: http.StatusOK},
		{name: "invalid credentials", loginErr: apperrors.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "locked account", loginErr: apperrors.ErrAccountLocked, wantStatus: http.StatusLocked, wantCode: "ACCOUNT_LOCKED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userSvc := &mockUserService{
				attemptLoginFn: func(email, password string) (*models.User, error) {
					if email != "jane@example.com" || password != "password123" {
						t.Errorf("unexpected credentials %q/%q", email, password)
					}
					if tt.loginErr != nil {
						return nil, tt.loginErr
					}
					return testUser(), nil
				},
			}
			r := setupAuthRouter(NewAuthHandler(userSvc))

			rec := doRequest(r, "POST", "/auth/login", `{"email":"jane@example.com","password":"password123"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			result := parseJSON(t, rec)
			if tt.wantCode != "" {
				assertErrorCode(t, result, tt.wantCode)
				return
			}
			if result["token_type"] != "Bearer" {
				t.Errorf("expected token_type Bearer, got %v", result["token_type"])
			}
		})
	}

	t.Run("returns 400 on missing password", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}))

		rec := doRequest(r, "POST", "/auth/login", `{"email":"jane@example.com"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	refresh, err := middleware.GenerateRefreshToken(testUser())
	if err != nil {
		t.Fatal(err)
	}
	access, err := middleware.GenerateAccessToken(testUser())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("rotates tokens when hash matches", func(t *testing.T) {
		var newHash string
		userSvc := &mockUserService{
			getRefreshTokenHashFn: func(userID string) (string, error) {
				if userID != testUserID {
					t.Errorf("expected user %s, got %s", testUserID, userID)
				}
				return middleware.HashToken(refresh), nil
			},
			storeRefreshTokenHashFn: func(_, hash string) error {
				newHash = hash
				return nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc))

		rec := doRequest(r, "POST", "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		rotated := parseJSON(t, rec)["refresh_token"].(string)
		if newHash != middleware.HashToken(rotated) {
			t.Error("expected the new refresh token hash to be stored")
		}
	})

	rejected := []struct {
		name   string
		token  string
		stored string
	}{
		{name: "revoked token", token: refresh, stored: ""},
		{name: "superseded token", token: refresh, stored: middleware.HashToken("other")},
		{name: "access token", token: access, stored: middleware.HashToken(access)},
		{name: "garbage", token: "abc", stored: ""},
	}
	for _, tt := range rejected {
		t.Run("returns 401 on "+tt.name, func(t *testing.T) {
			userSvc := &mockUserService{
				getRefreshTokenHashFn: func(string) (string, error) { return tt.stored, nil },
			}
			r := setupAuthRouter(NewAuthHandler(userSvc))

			rec := doRequest(r, "POST", "/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, tt.token))

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_TOKEN")
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	cleared := false
	userSvc := &mockUserService{
		storeRefreshTokenHashFn: func(userID, hash string) error {
			cleared = userID == testUserID && hash == ""
			return nil
		},
	}
	r := setupAuthRouter(NewAuthHandler(userSvc))

	rec := doRequest(r, "POST", "/auth/logout", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !cleared {
		t.Error("expected stored refresh token to be cleared")
	}
}

func TestAuthHandler_Me(t *testing.T) {
	t.Run("returns current user", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}))

		rec := doRequest(r, "GET", "/auth/me", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["id"] != testUserID {
			t.Errorf("expected id %s, got %v", testUserID, user["id"])
		}
	})

	t.Run("returns 401 without user in context", func(t *testing.T) {
		r := newTestRouter()
		r.GET("/auth/me", NewAuthHandler(&mockUserService{}).Me)

		rec := doRequest(r, "GET", "/auth/me", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})
}
