package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/domain/repositories"
	"coinledger.backend/internal/interfaces/http/middleware"
	"coinledger.backend/internal/interfaces/http/response"
	"coinledger.backend/internal/usecases"
	"coinledger.backend/pkg/utils"
)

type BalanceService interface {
	Balances(ctx context.Context, userID uuid.UUID) ([]*usecases.UserBalance, error)
}

// LedgerHandler handles user-facing balance and history endpoints
type LedgerHandler struct {
	balanceUsecase BalanceService
	txRepo         repositories.TransactionRepository
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(balanceUsecase BalanceService, txRepo repositories.TransactionRepository) *LedgerHandler {
	return &LedgerHandler{balanceUsecase: balanceUsecase, txRepo: txRepo}
}

// requestedUser resolves the :id param and checks the caller may read it.
func requestedUser(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid user ID"))
		return uuid.Nil, false
	}

	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return uuid.Nil, false
	}

	role, _ := middleware.GetUserRole(c)
	if callerID != userID && role != "admin" {
		response.Error(c, domainerrors.Forbidden("Cannot access another user's ledger"))
		return uuid.Nil, false
	}

	return userID, true
}

// GetBalances returns the caller's balance per currency
// GET /api/v1/users/:id/balances
func (h *LedgerHandler) GetBalances(c *gin.Context) {
	userID, ok := requestedUser(c)
	if !ok {
		return
	}

	balances, err := h.balanceUsecase.Balances(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"balances": balances})
}

// ListTransactions lists the caller's ledger entries
// GET /api/v1/users/:id/transactions
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	userID, ok := requestedUser(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	params := utils.GetPaginationParams(page, limit)

	txs, total, err := h.txRepo.ListByUser(c.Request.Context(), userID, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"transactions": txs,
		"pagination":   utils.CalculateMeta(total, params.Page, params.Limit),
	})
}
