package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "spendly/internal/errors"
	"spendly/internal/services"
)

// UserHandler serves the /users resource. Users can only see and change
// their own record.
type UserHandler struct {
	userService services.UserServicer
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService services.UserServicer) *UserHandler {
	return &UserHandler{userService: userService}
}

// UpdateUserRequest represents the request payload for updating a profile.
// Omitted fields are left unchanged.
type UpdateUserRequest struct {
	Email           *string `json:"email" binding:"omitempty,email,max=255"`
	FirstName       *string `json:"first_name" binding:"omitempty,max=100"`
	LastName        *string `json:"last_name" binding:"omitempty,max=100"`
	Password        *string `json:"password" binding:"omitempty,min=8,max=128"`
	CurrentPassword string  `json:"current_password"`
}

// selfOnly resolves the :id path parameter and rejects requests for any user
// other than the caller.
func selfOnly(c *gin.Context) (string, error) {
	userID, err := getUserID(c)
	if err != nil {
		return "", err
	}
	targetID, err := parsePathID(c, "id")
	if err != nil {
		return "", err
	}
	if targetID != userID {
		return "", apperrors.ErrForbidden
	}
	return userID, nil
}

// GetUser returns a user's profile
// @Summary     Get user
// @Description Get the authenticated user's own profile
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     200 {object} UserResponse "User profile"
// @Failure     400 {object} ErrorResponse "Invalid user ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not your account"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := selfOnly(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// UpdateUser updates a user's profile
// @Summary     Update user
// @Description Update the authenticated user's profile. Changing the password requires current_password.
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "User ID"
// @Param       request body UpdateUserRequest true "Profile changes"
// @Success     200 {object} UserResponse "Updated profile"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized or wrong current password"
// @Failure     403 {object} ErrorResponse "Not your account"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Router      /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, err := selfOnly(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.UpdateUser(userID, services.UserPatch{
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// DeleteUser deletes a user and all of their data
// @Summary     Delete user
// @Description Delete the authenticated user's account with its categories, transactions and budgets
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "User ID"
// @Success     200 {object} MessageResponse "User deleted"
// @Failure     400 {object} ErrorResponse "Invalid user ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not your account"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, err := selfOnly(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.userService.DeleteUser(userID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}
