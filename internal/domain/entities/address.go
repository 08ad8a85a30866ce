package entities

import (
	"time"

	"github.com/google/uuid"
)

// AddressType distinguishes deposit addresses from withdrawal destinations
type AddressType string

const (
	AddressDeposit    AddressType = "deposit"
	AddressWithdrawal AddressType = "withdrawal"
)

// Address is a destination descriptor. Extra carries the secondary field
// (memo, destination tag, payment id) required by some currencies.
// (Address, Extra, Type) is unique per currency; the same physical address
// may exist once as deposit and once as withdrawal.
type Address struct {
	ID         uuid.UUID   `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Address    string      `json:"address"`
	Extra      string      `json:"extra,omitempty"`
	Type       AddressType `json:"type"`
	UserID     *uuid.UUID  `json:"userId,omitempty"` // nil for not-yet-claimed deposit addresses
	CurrencyID uuid.UUID   `json:"currencyId"`
	Label      string      `json:"label,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	DeletedAt  *time.Time  `json:"-"`

	// Joins
	Currency *Currency `json:"currency,omitempty" gorm:"foreignKey:CurrencyID"`
}
