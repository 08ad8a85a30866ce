package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/interfaces/http/response"
)

type ScanService interface {
	WalletNotify(ctx context.Context, currencyID uuid.UUID, txid string) error
	BlockNotify(ctx context.Context, currencyID uuid.UUID, blockHash string) error
}

// NotifyHandler handles daemon notification endpoints
type NotifyHandler struct {
	scanUsecase ScanService
}

// NewNotifyHandler creates a new notify handler
func NewNotifyHandler(scanUsecase ScanService) *NotifyHandler {
	return &NotifyHandler{scanUsecase: scanUsecase}
}

type walletNotifyInput struct {
	TxID string `json:"txid" binding:"required"`
}

type blockNotifyInput struct {
	Hash string `json:"hash" binding:"required"`
}

// WalletNotify ingests one wallet transaction pushed by the daemon
// POST /api/v1/notify/:currency/wallet
func (h *NotifyHandler) WalletNotify(c *gin.Context) {
	currencyID, err := uuid.Parse(c.Param("currency"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid currency ID"))
		return
	}

	var input walletNotifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	if err := h.scanUsecase.WalletNotify(c.Request.Context(), currencyID, input.TxID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "accepted"})
}

// BlockNotify walks one block pushed by the daemon
// POST /api/v1/notify/:currency/block
func (h *NotifyHandler) BlockNotify(c *gin.Context) {
	currencyID, err := uuid.Parse(c.Param("currency"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid currency ID"))
		return
	}

	var input blockNotifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	if err := h.scanUsecase.BlockNotify(c.Request.Context(), currencyID, input.Hash); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "accepted"})
}
