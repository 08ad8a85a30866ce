package wallet

import (
	"context"

	"github.com/google/uuid"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
)

// ManualAdapter backs currencies settled by hand (bank transfers). There
// is no node: heights are not applicable and withdrawals stay pending for
// an operator to settle out of band.
type ManualAdapter struct {
	settings *ManualSettings
}

// NewManualAdapter validates the settings bag and builds the adapter.
func NewManualAdapter(raw map[string]string) (*ManualAdapter, error) {
	s, err := ManualSettingsFrom(raw)
	if err != nil {
		return nil, err
	}
	return &ManualAdapter{settings: s}, nil
}

func (a *ManualAdapter) Kind() entities.AdapterKind {
	return entities.AdapterManual
}

func (a *ManualAdapter) WalletVersion(ctx context.Context) (string, error) {
	return "manual", nil
}

func (a *ManualAdapter) BlockHeight(ctx context.Context) (int64, error) {
	return 0, domainerrors.ErrNotApplicable
}

func (a *ManualAdapter) IsLocked(ctx context.Context) (bool, error) {
	return false, nil
}

// NewDepositAddress hands out the static deposit reference with a
// per-user memo so incoming transfers can be attributed.
func (a *ManualAdapter) NewDepositAddress(ctx context.Context, currency *entities.Currency) (*entities.Address, error) {
	return &entities.Address{
		Address:    a.settings.DepositReference,
		Extra:      uuid.New().String(),
		Type:       entities.AddressDeposit,
		CurrencyID: currency.ID,
	}, nil
}

func (a *ManualAdapter) HotBalance(ctx context.Context, currency *entities.Currency) (int64, error) {
	return 0, domainerrors.ErrNotApplicable
}

func (a *ManualAdapter) HotLockedBalance(ctx context.Context, currency *entities.Currency) (int64, error) {
	return 0, domainerrors.ErrNotApplicable
}

// DoWithdrawals validates the batch but leaves every member pending: an
// operator settles manual withdrawals and marks them done by hand.
func (a *ManualAdapter) DoWithdrawals(ctx context.Context, currency *entities.Currency, txs []*entities.Transaction) error {
	return validateBatch(currency, txs)
}

func (a *ManualAdapter) DoMove(ctx context.Context, debit *entities.Transaction) (bool, error) {
	return true, nil
}
