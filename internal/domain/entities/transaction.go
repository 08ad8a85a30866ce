package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// TxCategory represents the kind of ledger entry
type TxCategory string

const (
	TxDeposit    TxCategory = "deposit"
	TxWithdrawal TxCategory = "withdrawal"
	TxMove       TxCategory = "move"
)

// TxStatus represents the lifecycle state of a ledger entry
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxDone      TxStatus = "done"
	TxCancelled TxStatus = "cancelled"
	TxFailed    TxStatus = "failed"
)

// TagExecuting marks a withdrawal whose batch has been handed to the
// wallet adapter. An entry still pending with this tag after a crash is
// excluded from further batches until an operator clears it.
const TagExecuting = "executing"

// Transaction is the atomic ledger entry. Amounts and fees are signed
// integers scaled by the currency's decimals; floating point never touches
// the ledger.
type Transaction struct {
	ID         uuid.UUID   `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Category   TxCategory  `json:"category"`
	Status     TxStatus    `json:"status"`
	UserID     *uuid.UUID  `json:"userId,omitempty"`
	CurrencyID uuid.UUID   `json:"currencyId"`
	AddressID  *uuid.UUID  `json:"addressId,omitempty"`
	Amount     int64       `json:"amount"`
	Fee        int64       `json:"fee"`
	ChainFee   null.Int64  `json:"chainFee,omitempty"` // fee reported by the chain, informational
	TxID       null.String `json:"txid,omitempty"`
	Block      null.Int64  `json:"block,omitempty"`
	Timestamp  *time.Time  `json:"timestamp,omitempty"`
	ParentID   *uuid.UUID  `json:"parentId,omitempty"` // links the credit leg of a move to its debit leg
	Comment    string      `json:"comment,omitempty"`
	Error      string      `json:"error,omitempty"`
	Nonce      string      `json:"-"` // non-empty = awaiting user email confirmation
	Tags       []string    `json:"tags,omitempty" gorm:"-"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	DeletedAt  *time.Time  `json:"-"`

	// Joins
	Currency *Currency `json:"currency,omitempty" gorm:"foreignKey:CurrencyID"`
	Address  *Address  `json:"address,omitempty" gorm:"foreignKey:AddressID"`
}

// Validate enforces the per-category sign invariants.
func (t *Transaction) Validate() error {
	switch t.Category {
	case TxDeposit:
		if t.Amount < 0 || t.Fee < 0 {
			return fmt.Errorf("deposit requires amount >= 0 and fee >= 0, got amount=%d fee=%d", t.Amount, t.Fee)
		}
	case TxWithdrawal:
		if t.Amount > 0 || t.Fee > 0 {
			return fmt.Errorf("withdrawal requires amount <= 0 and fee <= 0, got amount=%d fee=%d", t.Amount, t.Fee)
		}
	case TxMove:
		if t.Amount > 0 {
			// credit leg
			if t.Fee != 0 {
				return fmt.Errorf("move credit leg requires fee = 0, got %d", t.Fee)
			}
			if t.ParentID == nil {
				return fmt.Errorf("move credit leg requires a parent transaction")
			}
		} else if t.Fee > 0 {
			return fmt.Errorf("move debit leg requires fee <= 0, got %d", t.Fee)
		}
	default:
		return fmt.Errorf("unknown transaction category %q", t.Category)
	}
	switch t.Status {
	case TxPending, TxDone, TxCancelled, TxFailed:
	default:
		return fmt.Errorf("unknown transaction status %q", t.Status)
	}
	return nil
}

// Credits reports whether the entry increases the user's balance.
func (t *Transaction) Credits() bool {
	return t.Amount > 0
}

// EffectiveAmount is the entry's contribution to the balance sum: a credit
// contributes its full amount, a debit contributes amount + fee (both
// negative, so the fee is subtracted too). Deposit fees are informational
// and never reduce the balance.
func (t *Transaction) EffectiveAmount() int64 {
	if t.Amount > 0 {
		return t.Amount
	}
	return t.Amount + t.Fee
}

// AwaitingConfirmation reports whether the entry still carries an unspent
// confirmation nonce and is therefore not yet executable.
func (t *Transaction) AwaitingConfirmation() bool {
	return t.Nonce != ""
}

// PotentialDeposit is an externally-observed deposit that is not yet linked
// to a user and not yet persisted. The Deposit Reconciler merges it into
// the ledger exactly once.
type PotentialDeposit struct {
	CurrencyID uuid.UUID  `json:"currencyId"`
	Address    string     `json:"address"`
	Extra      string     `json:"extra,omitempty"`
	TxID       string     `json:"txid"`
	Amount     int64      `json:"amount"`
	ChainFee   int64      `json:"chainFee,omitempty"`
	Status     TxStatus   `json:"status"` // pending or done
	Block      null.Int64 `json:"block,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Comment    string     `json:"comment,omitempty"`
}
