package usecases

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"coinledger.backend/internal/domain/entities"
	"coinledger.backend/internal/domain/repositories"
	"coinledger.backend/internal/metrics"
)

// BalanceKind selects which balance view is being computed
type BalanceKind string

const (
	BalanceTotal     BalanceKind = "total"
	BalanceAvailable BalanceKind = "available"
)

// Adjuster lets another subsystem shave reserved funds off a computed
// balance (an exchange order book holding funds, for example). Adjusters
// run after the ledger fold and receive its result.
type Adjuster func(ctx context.Context, userID, currencyID uuid.UUID, kind BalanceKind, sum int64) int64

// UserBalance is one currency's balance pair for the HTTP surface.
type UserBalance struct {
	Currency  *entities.Currency `json:"currency"`
	Total     int64              `json:"total"`
	Available int64              `json:"available"`
	Formatted string             `json:"formatted"`
}

// BalanceUsecase computes balances by replaying the ledger. There is no
// incremental bookkeeping to drift: every query folds over the user's
// transactions for the currency.
type BalanceUsecase struct {
	txRepo       repositories.TransactionRepository
	currencyRepo repositories.CurrencyRepository

	mu        sync.RWMutex
	adjusters []Adjuster
}

// NewBalanceUsecase creates a new balance usecase
func NewBalanceUsecase(
	txRepo repositories.TransactionRepository,
	currencyRepo repositories.CurrencyRepository,
) *BalanceUsecase {
	return &BalanceUsecase{txRepo: txRepo, currencyRepo: currencyRepo}
}

// RegisterAdjuster adds a balance adjuster applied to every computation.
func (u *BalanceUsecase) RegisterAdjuster(a Adjuster) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.adjusters = append(u.adjusters, a)
}

// Balance is the settled balance: the fold over done entries only.
func (u *BalanceUsecase) Balance(ctx context.Context, userID, currencyID uuid.UUID) (int64, error) {
	return u.fold(ctx, userID, currencyID, BalanceTotal)
}

// Available is the spendable balance: done credits plus every debit that
// is done or still pending. Counting pending debits keeps funds reserved
// the moment a withdrawal or move is requested; pending credits stay
// invisible until confirmed.
func (u *BalanceUsecase) Available(ctx context.Context, userID, currencyID uuid.UUID) (int64, error) {
	return u.fold(ctx, userID, currencyID, BalanceAvailable)
}

func (u *BalanceUsecase) fold(ctx context.Context, userID, currencyID uuid.UUID, kind BalanceKind) (int64, error) {
	txs, err := u.txRepo.GetByUserCurrency(ctx, userID, currencyID)
	if err != nil {
		return 0, err
	}

	var sum int64
	for _, tx := range txs {
		switch tx.Status {
		case entities.TxDone:
			sum += tx.EffectiveAmount()
		case entities.TxPending:
			if kind == BalanceAvailable && !tx.Credits() {
				sum += tx.EffectiveAmount()
			}
		}
	}

	u.mu.RLock()
	adjusters := u.adjusters
	u.mu.RUnlock()
	for _, a := range adjusters {
		sum = a(ctx, userID, currencyID, kind, sum)
	}

	metrics.BalanceQueries.WithLabelValues(string(kind)).Inc()
	return sum, nil
}

// Balances returns the balance pair for every currency, disabled ones
// included so historical holdings stay visible.
func (u *BalanceUsecase) Balances(ctx context.Context, userID uuid.UUID) ([]*UserBalance, error) {
	currencies, err := u.currencyRepo.List(ctx, false)
	if err != nil {
		return nil, err
	}

	out := make([]*UserBalance, 0, len(currencies))
	for _, c := range currencies {
		total, err := u.Balance(ctx, userID, c.ID)
		if err != nil {
			return nil, err
		}
		available, err := u.Available(ctx, userID, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &UserBalance{
			Currency:  c,
			Total:     total,
			Available: available,
			Formatted: c.FormatAmount(total),
		})
	}
	return out, nil
}
