package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/interfaces/http/middleware"
	"coinledger.backend/internal/usecases"
	"coinledger.backend/pkg/utils"
)

type balanceServiceStub struct {
	balances map[uuid.UUID][]*usecases.UserBalance
}

func (s *balanceServiceStub) Balances(_ context.Context, userID uuid.UUID) ([]*usecases.UserBalance, error) {
	return s.balances[userID], nil
}

type txRepoStub struct {
	byUser map[uuid.UUID][]*entities.Transaction
}

func (s *txRepoStub) Create(context.Context, *entities.Transaction) error { return nil }
func (s *txRepoStub) Update(context.Context, *entities.Transaction) error { return nil }
func (s *txRepoStub) GetByID(context.Context, uuid.UUID) (*entities.Transaction, error) {
	return nil, domainerrors.ErrNotFound
}
func (s *txRepoStub) GetDeposit(context.Context, uuid.UUID, string) (*entities.Transaction, error) {
	return nil, domainerrors.ErrNotFound
}
func (s *txRepoStub) GetByNonce(context.Context, string) ([]*entities.Transaction, error) {
	return nil, nil
}
func (s *txRepoStub) GetByParentID(context.Context, uuid.UUID) (*entities.Transaction, error) {
	return nil, domainerrors.ErrNotFound
}
func (s *txRepoStub) GetByUserCurrency(context.Context, uuid.UUID, uuid.UUID) ([]*entities.Transaction, error) {
	return nil, nil
}
func (s *txRepoStub) ListByUser(_ context.Context, userID uuid.UUID, _ utils.PaginationParams) ([]*entities.Transaction, int64, error) {
	txs := s.byUser[userID]
	return txs, int64(len(txs)), nil
}
func (s *txRepoStub) PendingWithdrawals(context.Context, uuid.UUID, int) ([]*entities.Transaction, error) {
	return nil, nil
}
func (s *txRepoStub) ExecutingWithdrawals(context.Context, uuid.UUID) ([]*entities.Transaction, error) {
	return nil, nil
}
func (s *txRepoStub) PendingDeposits(context.Context, uuid.UUID) ([]*entities.Transaction, error) {
	return nil, nil
}
func (s *txRepoStub) PendingMoveDebits(context.Context, uuid.UUID) ([]*entities.Transaction, error) {
	return nil, nil
}
func (s *txRepoStub) SoftDelete(context.Context, uuid.UUID) error { return nil }

func ledgerRouter(h *LedgerHandler, callerID uuid.UUID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	withUser := func(c *gin.Context) {
		c.Set(middleware.UserIDKey, callerID)
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
	r.GET("/users/:id/balances", withUser, h.GetBalances)
	r.GET("/users/:id/transactions", withUser, h.ListTransactions)
	return r
}

func TestLedgerHandler_GetBalances_Own(t *testing.T) {
	userID := uuid.New()
	stub := &balanceServiceStub{balances: map[uuid.UUID][]*usecases.UserBalance{
		userID: {{Total: 795, Available: 690, Formatted: "0.00000795 BTC"}},
	}}
	h := NewLedgerHandler(stub, &txRepoStub{})
	r := ledgerRouter(h, userID, "user")

	req := httptest.NewRequest(http.MethodGet, "/users/"+userID.String()+"/balances", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Balances []*usecases.UserBalance `json:"balances"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Balances) != 1 || body.Balances[0].Available != 690 {
		t.Fatalf("unexpected balances: %+v", body.Balances)
	}
}

func TestLedgerHandler_GetBalances_OtherUserForbidden(t *testing.T) {
	h := NewLedgerHandler(&balanceServiceStub{}, &txRepoStub{})
	r := ledgerRouter(h, uuid.New(), "user")

	req := httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString()+"/balances", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestLedgerHandler_GetBalances_AdminReadsAnyUser(t *testing.T) {
	target := uuid.New()
	stub := &balanceServiceStub{balances: map[uuid.UUID][]*usecases.UserBalance{target: {}}}
	h := NewLedgerHandler(stub, &txRepoStub{})
	r := ledgerRouter(h, uuid.New(), "admin")

	req := httptest.NewRequest(http.MethodGet, "/users/"+target.String()+"/balances", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestLedgerHandler_ListTransactions(t *testing.T) {
	userID := uuid.New()
	repo := &txRepoStub{byUser: map[uuid.UUID][]*entities.Transaction{
		userID: {
			{ID: uuid.New(), Category: entities.TxDeposit, Status: entities.TxDone, UserID: &userID, Amount: 1000},
			{ID: uuid.New(), Category: entities.TxWithdrawal, Status: entities.TxPending, UserID: &userID, Amount: -200, Fee: -5},
		},
	}}
	h := NewLedgerHandler(&balanceServiceStub{}, repo)
	r := ledgerRouter(h, userID, "user")

	req := httptest.NewRequest(http.MethodGet, "/users/"+userID.String()+"/transactions?page=1&limit=10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Transactions []*entities.Transaction `json:"transactions"`
		Pagination   utils.PaginationMeta    `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(body.Transactions))
	}
	if body.Pagination.TotalCount != 2 || body.Pagination.Page != 1 {
		t.Fatalf("unexpected pagination: %+v", body.Pagination)
	}
}

func TestLedgerHandler_InvalidUserID(t *testing.T) {
	h := NewLedgerHandler(&balanceServiceStub{}, &txRepoStub{})
	r := ledgerRouter(h, uuid.New(), "user")

	req := httptest.NewRequest(http.MethodGet, "/users/not-a-uuid/balances", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
