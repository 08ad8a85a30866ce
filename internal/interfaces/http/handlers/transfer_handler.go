package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/interfaces/http/middleware"
	"coinledger.backend/internal/interfaces/http/response"
)

type WithdrawalService interface {
	Request(ctx context.Context, userID, currencyID uuid.UUID, address, extra string, amount int64) (*entities.Transaction, error)
}

type MoveService interface {
	CreateMove(ctx context.Context, from, to uuid.UUID, currencyID uuid.UUID, amount int64, comment string, requireConfirm bool) (*entities.Transaction, error)
	Confirm(ctx context.Context, nonce string) error
}

// TransferHandler handles outgoing value: withdrawals, moves and the
// confirmation link for both.
type TransferHandler struct {
	withdrawalUsecase WithdrawalService
	moveUsecase       MoveService
	requireConfirm    bool
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(withdrawalUsecase WithdrawalService, moveUsecase MoveService, requireConfirm bool) *TransferHandler {
	return &TransferHandler{
		withdrawalUsecase: withdrawalUsecase,
		moveUsecase:       moveUsecase,
		requireConfirm:    requireConfirm,
	}
}

type withdrawalInput struct {
	CurrencyID uuid.UUID `json:"currencyId" binding:"required"`
	Address    string    `json:"address" binding:"required"`
	Extra      string    `json:"extra"`
	Amount     int64     `json:"amount" binding:"required"`
}

type moveInput struct {
	ToUserID   uuid.UUID `json:"toUserId" binding:"required"`
	CurrencyID uuid.UUID `json:"currencyId" binding:"required"`
	Amount     int64     `json:"amount" binding:"required"`
	Comment    string    `json:"comment"`
}

// CreateWithdrawal records a withdrawal request for the batch executor
// POST /api/v1/withdrawals
func (h *TransferHandler) CreateWithdrawal(c *gin.Context) {
	var input withdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	tx, err := h.withdrawalUsecase.Request(c.Request.Context(), userID, input.CurrencyID, input.Address, input.Extra, input.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"transaction": tx})
}

// CreateMove transfers value between two users off chain
// POST /api/v1/moves
func (h *TransferHandler) CreateMove(c *gin.Context) {
	var input moveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	debit, err := h.moveUsecase.CreateMove(c.Request.Context(), userID, input.ToUserID, input.CurrencyID, input.Amount, input.Comment, h.requireConfirm)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"transaction": debit})
}

// Confirm releases the transactions carrying the mailed nonce
// GET /api/v1/confirm/:nonce
func (h *TransferHandler) Confirm(c *gin.Context) {
	nonce := c.Param("nonce")

	if err := h.moveUsecase.Confirm(c.Request.Context(), nonce); err != nil {
		if err == domainerrors.ErrNotFound {
			response.Error(c, domainerrors.NotFound("Nothing awaits this confirmation"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "confirmed"})
}
