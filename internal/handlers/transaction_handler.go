package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "spendly/internal/errors"
	"spendly/internal/models"
	"spendly/internal/pagination"
	"spendly/internal/services"
)

// Bounds used by the stats endpoint when start_date or end_date is omitted.
var (
	statsEarliest = models.NewDate(1900, 1, 1)
	statsLatest   = models.NewDate(2100, 12, 31)
)

// TransactionPage is one page of the transaction list.
type TransactionPage = pagination.PageResponse[models.Transaction]

// TransactionHandler handles transaction-related requests
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	CategoryID      string                 `json:"category_id" binding:"required,uuid"`
	Type            models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount          decimal.Decimal        `json:"amount" binding:"required,gt=0" swaggertype:"string" example:"42.50"`
	Description     string                 `json:"description" binding:"max=255"`
	TransactionDate models.Date            `json:"transaction_date" binding:"required" swaggertype:"string" example:"2024-01-15"`
}

// UpdateTransactionRequest represents the request payload for updating a
// transaction. Omitted fields are left unchanged.
type UpdateTransactionRequest struct {
	CategoryID      *string                 `json:"category_id" binding:"omitempty,uuid"`
	Type            *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Amount          *decimal.Decimal        `json:"amount" binding:"omitempty,gt=0" swaggertype:"string"`
	Description     *string                 `json:"description" binding:"omitempty,max=255"`
	TransactionDate *models.Date            `json:"transaction_date" swaggertype:"string"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record an income or expense. The category must belong to the user and have the same type.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or category type mismatch"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	transaction, err := h.transactionService.CreateTransaction(
		userID, req.CategoryID, req.Type, req.Amount, req.Description, req.TransactionDate,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetUserTransactions handles listing transactions for the authenticated user
// @Summary     Get transactions
// @Description Get a paginated, filtered list of transactions, newest first
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       from_date   query string false "Earliest transaction date (YYYY-MM-DD)"
// @Param       to_date     query string false "Latest transaction date (YYYY-MM-DD)"
// @Param       type        query string false "Filter by type (income/expense)"
// @Param       category_id query string false "Filter by category"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} TransactionPage "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter, err := transactionFilterFromQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func transactionFilterFromQuery(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter
	var err error

	if filter.FromDate, err = queryDate(c, "from_date"); err != nil {
		return filter, err
	}
	if filter.ToDate, err = queryDate(c, "to_date"); err != nil {
		return filter, err
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.ToDate.Before(*filter.FromDate) {
		return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date must not be before from_date")
	}
	if v := c.Query("type"); v != "" {
		t := models.TransactionType(v)
		if !t.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be 'income' or 'expense'")
		}
		filter.Type = &t
	}
	if filter.CategoryID, err = queryUUID(c, "category_id"); err != nil {
		return filter, err
	}
	return filter, nil
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating an existing transaction
// @Summary     Update transaction
// @Description Update an existing transaction. The resulting category and type must still match.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Updated transaction details"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input or category type mismatch"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, transactionID, services.TransactionPatch{
		CategoryID:      req.CategoryID,
		Type:            req.Type,
		Amount:          req.Amount,
		Description:     req.Description,
		TransactionDate: req.TransactionDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction
// @Summary     Delete transaction
// @Description Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Transaction deleted successfully"})
}

// GetSpendingStats returns expenses grouped by category
// @Summary     Spending by category
// @Description Sum expenses per category between start_date and end_date inclusive. Categories without expenses are omitted.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       start_date query string false "Range start (YYYY-MM-DD, default 1900-01-01)"
// @Param       end_date   query string false "Range end (YYYY-MM-DD, default 2100-12-31)"
// @Success     200 {object} services.SpendingSummary "Spending by category"
// @Failure     400 {object} ErrorResponse "Invalid dates"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/stats [get]
func (h *TransactionHandler) GetSpendingStats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	start, end := statsEarliest, statsLatest
	if d, err := queryDate(c, "start_date"); err != nil {
		respondWithError(c, err)
		return
	} else if d != nil {
		start = *d
	}
	if d, err := queryDate(c, "end_date"); err != nil {
		respondWithError(c, err)
		return
	} else if d != nil {
		end = *d
	}

	summary, err := h.transactionService.GetSpendingByCategory(userID, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetMonthlyTrends returns income and expense totals per month
// @Summary     Monthly trends
// @Description Income and expense totals for each of the last N calendar months that had activity, newest first
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       months query int false "Number of months including the current one (1-120, default 6)"
// @Success     200 {array} services.MonthlyTrend "Monthly totals"
// @Failure     400 {object} ErrorResponse "Invalid months"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/trends [get]
func (h *TransactionHandler) GetMonthlyTrends(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months := services.DefaultTrendMonths
	if v := c.Query("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "months must be a positive integer"))
			return
		}
		months = n
	}

	trends, err := h.transactionService.GetMonthlyTrend(userID, months)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"months": months, "trends": trends})
}
