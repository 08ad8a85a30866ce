package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/domain/repositories"
	"coinledger.backend/internal/metrics"
	"coinledger.backend/pkg/logger"
)

// ReconcileUsecase runs the engine's periodic work: per enabled currency
// the pending-deposit recheck, one scrape step and the pending-move
// sweep, then a single withdrawal batch. One currency's failure never
// stops the others; everything is bounded by a time budget.
type ReconcileUsecase struct {
	currencyRepo repositories.CurrencyRepository
	scan         *ScanUsecase
	moves        *MoveUsecase
	withdrawals  *WithdrawalUsecase
	budget       time.Duration
}

// NewReconcileUsecase creates a new reconcile usecase
func NewReconcileUsecase(
	currencyRepo repositories.CurrencyRepository,
	scan *ScanUsecase,
	moves *MoveUsecase,
	withdrawals *WithdrawalUsecase,
	budget time.Duration,
) *ReconcileUsecase {
	if budget <= 0 {
		budget = time.Minute
	}
	return &ReconcileUsecase{
		currencyRepo: currencyRepo,
		scan:         scan,
		moves:        moves,
		withdrawals:  withdrawals,
		budget:       budget,
	}
}

// RunDue performs one reconcile tick.
func (u *ReconcileUsecase) RunDue(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, u.budget)
	defer cancel()

	started := time.Now()
	currencies, err := u.currencyRepo.List(ctx, true)
	if err != nil {
		return err
	}

	for _, currency := range currencies {
		if ctx.Err() != nil {
			logger.Warn(ctx, "reconcile tick ran out of budget",
				zap.Duration("budget", u.budget))
			break
		}
		u.runCurrency(ctx, currency.ID, currency.Symbol)
	}

	if ctx.Err() == nil {
		if err := u.withdrawals.RunBatch(ctx); err != nil {
			logger.Error(ctx, "withdrawal batch run failed", zap.Error(err))
		}
	}

	metrics.ReconcileTicks.Inc()
	logger.Info(ctx, "reconcile tick finished",
		zap.Int("currencies", len(currencies)),
		zap.Duration("took", time.Since(started)))
	return nil
}

func (u *ReconcileUsecase) runCurrency(ctx context.Context, currencyID uuid.UUID, symbol string) {
	steps := []struct {
		name string
		fn   func(context.Context, uuid.UUID) error
	}{
		{"recheck pending deposits", u.scan.RecheckPending},
		{"scrape step", u.scan.ScrapeStep},
		{"execute pending moves", u.moves.ExecutePending},
	}
	for _, step := range steps {
		if err := step.fn(ctx, currencyID); err != nil {
			if errors.Is(err, domainerrors.ErrNotApplicable) || errors.Is(err, domainerrors.ErrWalletOffline) {
				continue
			}
			logger.Error(ctx, "reconcile step failed",
				zap.String("currency", symbol),
				zap.String("step", step.name),
				zap.Error(err))
		}
	}
}
