package repositories

import (
	"context"

	"github.com/google/uuid"
	"coinledger.backend/internal/domain/entities"
	"coinledger.backend/pkg/utils"
)

// TransactionRepository defines ledger transaction data operations
type TransactionRepository interface {
	Create(ctx context.Context, tx *entities.Transaction) error
	Update(ctx context.Context, tx *entities.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)

	// GetDeposit finds the deposit ledger entry for (address, txid), the
	// dedup key of the Deposit Reconciler.
	GetDeposit(ctx context.Context, addressID uuid.UUID, txid string) (*entities.Transaction, error)

	// GetByNonce returns every leg carrying the given confirmation nonce.
	GetByNonce(ctx context.Context, nonce string) ([]*entities.Transaction, error)

	// GetByParentID returns the credit leg linked to a move debit leg.
	GetByParentID(ctx context.Context, parentID uuid.UUID) (*entities.Transaction, error)

	// GetByUserCurrency returns all ledger entries for one user and
	// currency, for balance computation by replay.
	GetByUserCurrency(ctx context.Context, userID, currencyID uuid.UUID) ([]*entities.Transaction, error)

	ListByUser(ctx context.Context, userID uuid.UUID, p utils.PaginationParams) ([]*entities.Transaction, int64, error)

	// PendingWithdrawals returns execution-eligible withdrawals: pending,
	// negative amount, resolved address, no outstanding confirmation nonce,
	// not tagged executing.
	PendingWithdrawals(ctx context.Context, currencyID uuid.UUID, limit int) ([]*entities.Transaction, error)

	// ExecutingWithdrawals returns pending withdrawals still tagged
	// executing after an interrupted batch. They need operator review and
	// are never re-batched automatically.
	ExecutingWithdrawals(ctx context.Context, currencyID uuid.UUID) ([]*entities.Transaction, error)

	// PendingDeposits returns pending deposits with a known txid, for the
	// confirmation re-check sweep.
	PendingDeposits(ctx context.Context, currencyID uuid.UUID) ([]*entities.Transaction, error)

	// PendingMoveDebits returns pending move debit legs with no outstanding
	// confirmation nonce.
	PendingMoveDebits(ctx context.Context, currencyID uuid.UUID) ([]*entities.Transaction, error)

	// SoftDelete trashes an entry. Administrative/GDPR workflows only; the
	// reconciliation engine never calls it.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
