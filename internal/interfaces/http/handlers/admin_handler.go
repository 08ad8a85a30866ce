package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/domain/repositories"
	"coinledger.backend/internal/interfaces/http/response"
)

type CursorService interface {
	ResetCursor(ctx context.Context, walletID uuid.UUID, height int64) error
}

type ReconcileTrigger interface {
	Tick(ctx context.Context)
}

// AdminHandler handles operator endpoints
type AdminHandler struct {
	scanUsecase CursorService
	stateRepo   repositories.EngineStateRepository
	reconcile   ReconcileTrigger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(scanUsecase CursorService, stateRepo repositories.EngineStateRepository, reconcile ReconcileTrigger) *AdminHandler {
	return &AdminHandler{
		scanUsecase: scanUsecase,
		stateRepo:   stateRepo,
		reconcile:   reconcile,
	}
}

type cursorInput struct {
	Height *int64 `json:"height" binding:"required"`
}

type depositCutoffInput struct {
	// Cutoff is RFC 3339; null clears the cutoff.
	Cutoff *time.Time `json:"cutoff"`
}

// ResetCursor rewinds or advances a wallet's scan cursor
// PUT /api/v1/admin/wallets/:id/cursor
func (h *AdminHandler) ResetCursor(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid wallet ID"))
		return
	}

	var input cursorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	if err := h.scanUsecase.ResetCursor(c.Request.Context(), walletID, *input.Height); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"walletId": walletID, "height": *input.Height})
}

// SetDepositCutoff sets or clears the global deposit cutoff
// PUT /api/v1/admin/deposit-cutoff
func (h *AdminHandler) SetDepositCutoff(c *gin.Context) {
	var input depositCutoffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	state, err := h.stateRepo.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	state.DepositCutoff = input.Cutoff
	if err := h.stateRepo.Save(c.Request.Context(), state); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"depositCutoff": state.DepositCutoff})
}

// TriggerReconcile runs one reconcile tick outside the schedule
// POST /api/v1/admin/reconcile
func (h *AdminHandler) TriggerReconcile(c *gin.Context) {
	h.reconcile.Tick(c.Request.Context())
	response.Success(c, http.StatusOK, gin.H{"status": "done"})
}
