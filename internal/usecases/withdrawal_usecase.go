package usecases

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/domain/repositories"
	"coinledger.backend/internal/infrastructure/wallet"
	"coinledger.backend/internal/metrics"
	"coinledger.backend/pkg/crypto"
	"coinledger.backend/pkg/logger"
)


// WithdrawalUsecase handles the user-facing withdrawal request path and
// the batch executor with its fairness scheduler.
type WithdrawalUsecase struct {
	txRepo       repositories.TransactionRepository
	addrRepo     repositories.AddressRepository
	currencyRepo repositories.CurrencyRepository
	stateRepo    repositories.EngineStateRepository
	uow          repositories.UnitOfWork
	factory      *wallet.Factory
	balances     *BalanceUsecase

	batchSize      int
	requireConfirm bool
}

// NewWithdrawalUsecase creates a new withdrawal usecase
func NewWithdrawalUsecase(
	txRepo repositories.TransactionRepository,
	addrRepo repositories.AddressRepository,
	currencyRepo repositories.CurrencyRepository,
	stateRepo repositories.EngineStateRepository,
	uow repositories.UnitOfWork,
	factory *wallet.Factory,
	balances *BalanceUsecase,
	batchSize int,
	requireConfirm bool,
) *WithdrawalUsecase {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &WithdrawalUsecase{
		txRepo:         txRepo,
		addrRepo:       addrRepo,
		currencyRepo:   currencyRepo,
		stateRepo:      stateRepo,
		uow:            uow,
		factory:        factory,
		balances:       balances,
		batchSize:      batchSize,
		requireConfirm: requireConfirm,
	}
}

// Request records a pending withdrawal for the user. The destination is
// upserted as a withdrawal address; funds are reserved immediately by
// the pending debit.
func (u *WithdrawalUsecase) Request(ctx context.Context, userID, currencyID uuid.UUID, address, extra string, amount int64) (*entities.Transaction, error) {
	if amount <= 0 || address == "" || userID == uuid.Nil {
		return nil, domainerrors.ErrInvalidInput
	}
	currency, err := u.currencyRepo.GetByID(ctx, currencyID)
	if err != nil {
		return nil, err
	}
	if currency.Offline() {
		return nil, domainerrors.ErrWalletOffline
	}
	if amount < currency.MinWithdraw {
		return nil, domainerrors.ErrBelowMinimum
	}

	available, err := u.balances.Available(ctx, userID, currencyID)
	if err != nil {
		return nil, err
	}
	if available < amount+currency.FeeWithdraw {
		return nil, domainerrors.ErrInsufficientFunds
	}

	addr, err := u.addrRepo.Upsert(ctx, &entities.Address{
		Address:    address,
		Extra:      extra,
		Type:       entities.AddressWithdrawal,
		UserID:     &userID,
		CurrencyID: currencyID,
	})
	if err != nil {
		return nil, err
	}

	tx := &entities.Transaction{
		Category:   entities.TxWithdrawal,
		Status:     entities.TxPending,
		UserID:     &userID,
		CurrencyID: currencyID,
		AddressID:  &addr.ID,
		Amount:     -amount,
		Fee:        -currency.FeeWithdraw,
	}
	if u.requireConfirm {
		nonce, err := crypto.GenerateVerificationToken()
		if err != nil {
			return nil, err
		}
		tx.Nonce = nonce
	}
	if err := u.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}
	tx.Address = addr
	return tx, nil
}

// RunBatch executes at most one withdrawal batch per call, rotating a
// persisted cursor over the enabled currencies so that a busy currency
// cannot starve the others. Returns after the first currency with work,
// or after one full rotation finds none.
func (u *WithdrawalUsecase) RunBatch(ctx context.Context) error {
	currencies, err := u.currencyRepo.List(ctx, true)
	if err != nil {
		return err
	}
	if len(currencies) == 0 {
		return nil
	}

	state, err := u.stateRepo.Get(ctx)
	if err != nil {
		return err
	}
	start := state.WithdrawalCursor % len(currencies)
	if start < 0 {
		start = 0
	}

	for i := 0; i < len(currencies); i++ {
		currency := currencies[(start+i)%len(currencies)]

		batch, err := u.selectBatch(ctx, currency)
		if err != nil {
			logger.Error(ctx, "withdrawal batch selection failed",
				zap.String("currency", currency.Symbol), zap.Error(err))
			continue
		}
		if len(batch) == 0 {
			continue
		}

		// advance past this currency before touching the backend
		state.WithdrawalCursor = (start + i + 1) % len(currencies)
		if err := u.stateRepo.Save(ctx, state); err != nil {
			return err
		}
		return u.executeBatch(ctx, currency, batch)
	}

	// full rotation, nothing to do
	state.WithdrawalCursor = start
	return u.stateRepo.Save(ctx, state)
}

// selectBatch picks the currency's eligible withdrawals, skipping
// currencies whose wallet cannot sign right now.
func (u *WithdrawalUsecase) selectBatch(ctx context.Context, currency *entities.Currency) ([]*entities.Transaction, error) {
	if currency.Wallet == nil {
		return nil, nil
	}
	adapter, err := u.factory.Get(currency.Wallet)
	if err != nil {
		return nil, err
	}
	locked, err := adapter.IsLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock probe: %w", err)
	}
	if locked {
		logger.Warn(ctx, "skipping locked wallet",
			zap.String("wallet", currency.Wallet.Name), zap.String("currency", currency.Symbol))
		return nil, nil
	}

	// entries tagged executing survived a crash mid-batch; they may
	// already be paid out, so they never re-enter a batch on their own
	if stuck, err := u.txRepo.ExecutingWithdrawals(ctx, currency.ID); err == nil && len(stuck) > 0 {
		logger.Warn(ctx, "withdrawals stuck in executing state, operator review required",
			zap.String("currency", currency.Symbol), zap.Int("count", len(stuck)))
	}

	return u.txRepo.PendingWithdrawals(ctx, currency.ID, u.batchSize)
}

// executeBatch persists the batch membership, hands the batch to the
// adapter, then persists whatever final state the adapter wrote into
// each member.
func (u *WithdrawalUsecase) executeBatch(ctx context.Context, currency *entities.Currency, batch []*entities.Transaction) error {
	adapter, err := u.factory.Get(currency.Wallet)
	if err != nil {
		return err
	}

	err = u.uow.Do(ctx, func(ctx context.Context) error {
		for _, tx := range batch {
			tx.Tags = appendTag(tx.Tags, entities.TagExecuting)
			if err := u.txRepo.Update(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark batch executing: %w", err)
	}

	logger.Info(ctx, "executing withdrawal batch",
		zap.String("currency", currency.Symbol), zap.Int("size", len(batch)))
	metrics.WithdrawalBatchSize.Observe(float64(len(batch)))

	if err := adapter.DoWithdrawals(ctx, currency, batch); err != nil {
		// the adapter errors only before anything is sent, so the
		// members can safely return to the pool
		for _, tx := range batch {
			tx.Tags = removeTag(tx.Tags, entities.TagExecuting)
			if uerr := u.txRepo.Update(ctx, tx); uerr != nil {
				logger.Error(ctx, "untagging unsent withdrawal failed",
					zap.String("tx", tx.ID.String()), zap.Error(uerr))
			}
		}
		return fmt.Errorf("execute batch: %w", err)
	}

	var persistErr error
	for _, tx := range batch {
		tx.Tags = removeTag(tx.Tags, entities.TagExecuting)
		if err := u.txRepo.Update(ctx, tx); err != nil {
			// keep persisting the rest; a half-saved batch is worse
			logger.Error(ctx, "persisting withdrawal result failed",
				zap.String("tx", tx.ID.String()), zap.Error(err))
			persistErr = err
			continue
		}
		switch tx.Status {
		case entities.TxDone:
			metrics.WithdrawalsExecuted.Inc()
		case entities.TxFailed:
			metrics.WithdrawalsFailed.Inc()
		}
	}
	return persistErr
}

func appendTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

func removeTag(tags []string, tag string) []string {
	out := tags[:0]
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}
