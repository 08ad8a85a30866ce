package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainerrors "coinledger.backend/internal/domain/errors"
)

type scanServiceStub struct {
	walletErr error
	blockErr  error

	gotCurrency uuid.UUID
	gotTxID     string
	gotHash     string
}

func (s *scanServiceStub) WalletNotify(_ context.Context, currencyID uuid.UUID, txid string) error {
	s.gotCurrency = currencyID
	s.gotTxID = txid
	return s.walletErr
}

func (s *scanServiceStub) BlockNotify(_ context.Context, currencyID uuid.UUID, blockHash string) error {
	s.gotCurrency = currencyID
	s.gotHash = blockHash
	return s.blockErr
}

func notifyRouter(stub *scanServiceStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewNotifyHandler(stub)
	r := gin.New()
	r.POST("/notify/:currency/wallet", h.WalletNotify)
	r.POST("/notify/:currency/block", h.BlockNotify)
	return r
}

func TestNotifyHandler_WalletNotify_Success(t *testing.T) {
	stub := &scanServiceStub{}
	r := notifyRouter(stub)
	currencyID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/notify/"+currencyID.String()+"/wallet", bytes.NewReader([]byte(`{"txid":"deadbeef"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if stub.gotCurrency != currencyID || stub.gotTxID != "deadbeef" {
		t.Fatalf("unexpected forwarding: %s %s", stub.gotCurrency, stub.gotTxID)
	}
}

func TestNotifyHandler_WalletNotify_BadInput(t *testing.T) {
	stub := &scanServiceStub{}
	r := notifyRouter(stub)

	// bad currency id
	req := httptest.NewRequest(http.MethodPost, "/notify/not-a-uuid/wallet", bytes.NewReader([]byte(`{"txid":"deadbeef"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// missing txid
	req = httptest.NewRequest(http.MethodPost, "/notify/"+uuid.NewString()+"/wallet", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if stub.gotTxID != "" {
		t.Fatalf("scan service should not have been called")
	}
}

func TestNotifyHandler_WalletNotify_OfflineCurrency(t *testing.T) {
	stub := &scanServiceStub{walletErr: domainerrors.ErrWalletOffline}
	r := notifyRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/notify/"+uuid.NewString()+"/wallet", bytes.NewReader([]byte(`{"txid":"deadbeef"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestNotifyHandler_BlockNotify(t *testing.T) {
	stub := &scanServiceStub{}
	r := notifyRouter(stub)
	currencyID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/notify/"+currencyID.String()+"/block", bytes.NewReader([]byte(`{"hash":"0000abcd"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if stub.gotHash != "0000abcd" {
		t.Fatalf("unexpected hash: %s", stub.gotHash)
	}

	stub.blockErr = domainerrors.ErrNotApplicable
	req = httptest.NewRequest(http.MethodPost, "/notify/"+currencyID.String()+"/block", bytes.NewReader([]byte(`{"hash":"0000abcd"}`)))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}
