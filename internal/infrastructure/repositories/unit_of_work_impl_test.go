package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"coinledger.backend/internal/domain/entities"
	"coinledger.backend/pkg/utils"
)

func TestUnitOfWork_RollsBackBothMoveLegs(t *testing.T) {
	db := newTestDB(t)
	createAllTables(t, db)
	repo := NewTransactionRepository(db)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	fromUser := uuid.New()
	currencyID := uuid.New()

	boom := errors.New("credit leg persist failed")
	err := uow.Do(ctx, func(txCtx context.Context) error {
		debit := &entities.Transaction{
			Category: entities.TxMove, Status: entities.TxPending,
			UserID: &fromUser, CurrencyID: currencyID,
			Amount: -100, Fee: -1, Nonce: "n1",
		}
		if err := repo.Create(txCtx, debit); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// the debit leg must not survive the rollback
	got, _, err := repo.ListByUser(ctx, fromUser, utils.GetPaginationParams(1, 0))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUnitOfWork_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)
	createAllTables(t, db)
	repo := NewTransactionRepository(db)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	fromUser := uuid.New()
	toUser := uuid.New()
	currencyID := uuid.New()

	err := uow.Do(ctx, func(txCtx context.Context) error {
		debit := &entities.Transaction{
			Category: entities.TxMove, Status: entities.TxPending,
			UserID: &fromUser, CurrencyID: currencyID,
			Amount: -100, Fee: -1, Nonce: "n2",
		}
		if err := repo.Create(txCtx, debit); err != nil {
			return err
		}
		credit := &entities.Transaction{
			Category: entities.TxMove, Status: entities.TxPending,
			UserID: &toUser, CurrencyID: currencyID,
			Amount: 100, Fee: 0, Nonce: "n2", ParentID: &debit.ID,
		}
		return repo.Create(txCtx, credit)
	})
	require.NoError(t, err)

	legs, err := repo.GetByNonce(ctx, "n2")
	require.NoError(t, err)
	require.Len(t, legs, 2)
}
