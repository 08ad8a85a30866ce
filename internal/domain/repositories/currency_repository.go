package repositories

import (
	"context"

	"github.com/google/uuid"
	"coinledger.backend/internal/domain/entities"
)

// CurrencyRepository defines currency data operations
type CurrencyRepository interface {
	Create(ctx context.Context, c *entities.Currency) error
	Update(ctx context.Context, c *entities.Currency) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Currency, error)

	// List returns currencies ordered by creation, wallet preloaded.
	// enabledOnly additionally requires an enabled attached wallet.
	List(ctx context.Context, enabledOnly bool) ([]*entities.Currency, error)
}

// WalletRepository defines wallet and per-wallet scan-state operations
type WalletRepository interface {
	Create(ctx context.Context, w *entities.Wallet) error
	Update(ctx context.Context, w *entities.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
	List(ctx context.Context) ([]*entities.Wallet, error)

	// GetState returns the wallet's scan state, ErrNotFound before first use.
	GetState(ctx context.Context, walletID uuid.UUID) (*entities.WalletState, error)
	SaveState(ctx context.Context, state *entities.WalletState) error
}

// EngineStateRepository owns the single engine state record.
type EngineStateRepository interface {
	// Get returns the state record, creating the default on first use.
	Get(ctx context.Context) (*entities.EngineState, error)
	Save(ctx context.Context, state *entities.EngineState) error
}
