package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency represents a ledgered currency (crypto or fiat)
type Currency struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Decimals    int32      `json:"decimals"`
	Pattern     string     `json:"pattern"` // display pattern, e.g. "%s BTC"
	FeeDeposit  int64      `json:"feeDeposit"`
	FeeMove     int64      `json:"feeMove"`
	FeeWithdraw int64      `json:"feeWithdraw"`
	MinWithdraw int64      `json:"minWithdraw"`
	WalletID    *uuid.UUID `json:"walletId,omitempty"`
	Enabled     bool       `json:"enabled"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"-"`

	// Joins
	Wallet *Wallet `json:"wallet,omitempty" gorm:"foreignKey:WalletID"`
}

// DecimalAmount converts a scaled integer amount to its decimal value.
func (c *Currency) DecimalAmount(amount int64) decimal.Decimal {
	return decimal.New(amount, -c.Decimals)
}

// FormatAmount renders a scaled integer amount using the display pattern.
func (c *Currency) FormatAmount(amount int64) string {
	s := c.DecimalAmount(amount).StringFixed(c.Decimals)
	if c.Pattern == "" {
		return s + " " + c.Symbol
	}
	if strings.Contains(c.Pattern, "%s") {
		return fmt.Sprintf(c.Pattern, s)
	}
	return c.Pattern + s
}

// ParseAmount converts a display-form amount string to a scaled integer.
// Amounts with more precision than the currency declares are rejected
// rather than rounded.
func (c *Currency) ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	scaled := d.Shift(c.Decimals)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %q exceeds %d decimal places", s, c.Decimals)
	}
	return scaled.IntPart(), nil
}

// Offline reports whether the currency has no enabled wallet attached.
// An offline currency cannot mint new addresses or execute withdrawals.
func (c *Currency) Offline() bool {
	if c.WalletID == nil {
		return true
	}
	if c.Wallet != nil && !c.Wallet.Enabled {
		return true
	}
	return false
}
