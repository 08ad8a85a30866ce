package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// AdapterKind selects the wallet adapter implementation
type AdapterKind string

const (
	AdapterFullNode AdapterKind = "fullnode" // Bitcoin-core compatible JSON-RPC daemon
	AdapterEVM      AdapterKind = "evm"      // account-based EVM hot wallet
	AdapterManual   AdapterKind = "manual"   // operator-settled bank transfers
)

// Wallet represents the connection to one external wallet backend
type Wallet struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Name      string            `json:"name"`
	Kind      AdapterKind       `json:"kind"`
	Settings  map[string]string `json:"settings" gorm:"-"` // validated against the adapter's schema at construction
	Enabled   bool              `json:"enabled"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	DeletedAt *time.Time        `json:"-"`
}

// WalletState is the engine-owned per-wallet reconciliation state.
// LastScrapedHeight is the incremental-scan cursor; absent until first use.
type WalletState struct {
	WalletID          uuid.UUID  `json:"walletId" gorm:"type:uuid;primary_key"`
	LastScrapedHeight null.Int64 `json:"lastScrapedHeight,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// EngineState is the single engine-owned state record: the withdrawal
// round-robin cursor and the global deposit cutoff set on balance-only
// migrations. It replaces ambient global counters.
type EngineState struct {
	ID               int        `json:"id" gorm:"primary_key"`
	WithdrawalCursor int        `json:"withdrawalCursor"`
	DepositCutoff    *time.Time `json:"depositCutoff,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
