package wallet

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
)

// DetailCategory classifies one side of an external transaction
type DetailCategory string

const (
	DetailReceive DetailCategory = "receive"
	DetailSend    DetailCategory = "send"
)

// TxDetail is one destination-level entry of an external transaction
type TxDetail struct {
	Category DetailCategory
	Address  string
	Extra    string
	Amount   int64 // scaled by the currency decimals
}

// TxInfo is an external transaction as reported by the backend
type TxInfo struct {
	TxID          string
	Confirmations int64
	BlockHash     string
	Block         null.Int64
	Time          *time.Time
	ChainFee      int64 // absolute chain fee, scaled
	Details       []TxDetail
}

// BlockInfo is an external block as reported by the backend
type BlockInfo struct {
	Hash   string
	Height int64
	Time   *time.Time
	TxIDs  []string
}

// Adapter is the protocol every wallet backend implementation exposes.
// Implementations mutate withdrawal transactions in place; persistence is
// the caller's responsibility and must happen before execution.
type Adapter interface {
	Kind() entities.AdapterKind

	// WalletVersion is informational and may fail while the backend is offline.
	WalletVersion(ctx context.Context) (string, error)

	// BlockHeight is the backend's current sync height; ErrNotApplicable
	// for backends that have no chain.
	BlockHeight(ctx context.Context) (int64, error)

	// IsLocked reports whether the backend cannot currently sign outgoing
	// transactions.
	IsLocked(ctx context.Context) (bool, error)

	// NewDepositAddress returns a previously-unused deposit address. Must
	// not be called while IsLocked.
	NewDepositAddress(ctx context.Context, currency *entities.Currency) (*entities.Address, error)

	HotBalance(ctx context.Context, currency *entities.Currency) (int64, error)

	// HotLockedBalance covers immature/unconfirmed/staked funds.
	HotLockedBalance(ctx context.Context, currency *entities.Currency) (int64, error)

	// DoWithdrawals executes a batch of same-currency pending withdrawals,
	// mutating each in place with final status, txid, block and error. A
	// batch mixing currencies or containing non-pending or non-withdrawal
	// entries is rejected before any external call.
	DoWithdrawals(ctx context.Context, currency *entities.Currency, txs []*entities.Transaction) error

	// DoMove lets the adapter veto or annotate an internal transfer before
	// it is committed. The default accepts unconditionally.
	DoMove(ctx context.Context, debit *entities.Transaction) (bool, error)
}

// ChainReader is implemented by adapters that sit on a chain and can feed
// the notification and incremental-scan recovery paths.
type ChainReader interface {
	GetTransaction(ctx context.Context, currency *entities.Currency, txid string) (*TxInfo, error)
	GetBlock(ctx context.Context, hash string) (*BlockInfo, error)
	GetBlockHash(ctx context.Context, height int64) (string, error)
}

// AvailableHotBalance is the spendable part of the hot wallet.
func AvailableHotBalance(ctx context.Context, a Adapter, currency *entities.Currency) (int64, error) {
	hot, err := a.HotBalance(ctx, currency)
	if err != nil {
		return 0, err
	}
	locked, err := a.HotLockedBalance(ctx, currency)
	if err != nil {
		return 0, err
	}
	return hot - locked, nil
}

// validateBatch enforces the business rules every adapter shares: one
// currency, all pending, all withdrawals, all debiting. Checked before any
// external call is made.
func validateBatch(currency *entities.Currency, txs []*entities.Transaction) error {
	for _, tx := range txs {
		if tx.CurrencyID != currency.ID {
			return domainerrors.ErrMixedBatch
		}
		if tx.Status != entities.TxPending {
			return domainerrors.ErrNotPending
		}
		if tx.Category != entities.TxWithdrawal || tx.Amount >= 0 || tx.Fee > 0 {
			return domainerrors.ErrInvalidInput
		}
		if tx.Address == nil {
			return domainerrors.ErrInvalidInput
		}
	}
	return nil
}
