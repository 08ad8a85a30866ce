package usecases

import (
	"context"
	"errors"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/domain/repositories"
	"coinledger.backend/internal/metrics"
	"coinledger.backend/pkg/logger"
)

// DepositOutcome classifies one reconciliation pass over an observed
// deposit.
type DepositOutcome string

const (
	DepositCreated   DepositOutcome = "created"
	DepositUpdated   DepositOutcome = "updated"
	DepositUnchanged DepositOutcome = "unchanged"
	DepositNotOurs   DepositOutcome = "not_ours"
)

// DepositUsecase merges externally-observed deposits into the ledger.
// Reconcile is idempotent: feeding the same observation any number of
// times yields one ledger entry and each event at most once.
type DepositUsecase struct {
	txRepo       repositories.TransactionRepository
	addrRepo     repositories.AddressRepository
	currencyRepo repositories.CurrencyRepository
	stateRepo    repositories.EngineStateRepository
	bus          *EventBus
}

// NewDepositUsecase creates a new deposit usecase
func NewDepositUsecase(
	txRepo repositories.TransactionRepository,
	addrRepo repositories.AddressRepository,
	currencyRepo repositories.CurrencyRepository,
	stateRepo repositories.EngineStateRepository,
	bus *EventBus,
) *DepositUsecase {
	return &DepositUsecase{
		txRepo:       txRepo,
		addrRepo:     addrRepo,
		currencyRepo: currencyRepo,
		stateRepo:    stateRepo,
		bus:          bus,
	}
}

// Reconcile merges one observed deposit into the ledger. (address, txid)
// is the dedup key: the first observation creates the entry, later ones
// refresh it non-destructively. Deposits to unknown addresses are not
// ours; deposits older than the configured cutoff are rejected.
func (u *DepositUsecase) Reconcile(ctx context.Context, pd *entities.PotentialDeposit) (DepositOutcome, error) {
	outcome, err := u.reconcile(ctx, pd)
	if err == nil {
		metrics.DepositsReconciled.WithLabelValues(string(outcome)).Inc()
	}
	return outcome, err
}

func (u *DepositUsecase) reconcile(ctx context.Context, pd *entities.PotentialDeposit) (DepositOutcome, error) {
	if pd.TxID == "" || pd.Amount < 0 {
		return "", domainerrors.ErrInvalidInput
	}
	if pd.Status != entities.TxPending && pd.Status != entities.TxDone {
		return "", domainerrors.ErrInvalidInput
	}

	addr, err := u.addrRepo.Resolve(ctx, pd.CurrencyID, pd.Address, pd.Extra, entities.AddressDeposit)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return DepositNotOurs, nil
		}
		return "", err
	}
	if addr.UserID == nil {
		// a deposit address with no owner should not exist
		logger.Warn(ctx, "deposit to ownerless address skipped",
			zap.String("address", addr.Address), zap.String("txid", pd.TxID))
		return DepositNotOurs, nil
	}

	state, err := u.stateRepo.Get(ctx)
	if err != nil {
		return "", err
	}
	if state.DepositCutoff != nil && pd.Timestamp != nil && pd.Timestamp.Before(*state.DepositCutoff) {
		return "", domainerrors.ErrStaleDeposit
	}

	existing, err := u.txRepo.GetDeposit(ctx, addr.ID, pd.TxID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return u.create(ctx, addr, pd)
		}
		return "", err
	}
	return u.merge(ctx, existing, pd)
}

func (u *DepositUsecase) create(ctx context.Context, addr *entities.Address, pd *entities.PotentialDeposit) (DepositOutcome, error) {
	fee := int64(0)
	if currency, err := u.currencyRepo.GetByID(ctx, pd.CurrencyID); err == nil {
		fee = currency.FeeDeposit
	}

	tx := &entities.Transaction{
		Category:   entities.TxDeposit,
		Status:     pd.Status,
		UserID:     addr.UserID,
		CurrencyID: pd.CurrencyID,
		AddressID:  &addr.ID,
		Amount:     pd.Amount,
		Fee:        fee,
		TxID:       null.StringFrom(pd.TxID),
		Block:      pd.Block,
		Timestamp:  pd.Timestamp,
		Comment:    pd.Comment,
	}
	if pd.ChainFee > 0 {
		tx.ChainFee = null.Int64From(pd.ChainFee)
	}
	if err := u.txRepo.Create(ctx, tx); err != nil {
		return "", err
	}

	switch tx.Status {
	case entities.TxPending:
		u.publish(ctx, entities.EventDepositPending, tx)
	case entities.TxDone:
		u.publish(ctx, entities.EventDepositDone, tx)
	}
	return DepositCreated, nil
}

// merge refreshes an existing entry from a newer observation. Amount,
// chain fee and comment track the latest non-empty observation; block and
// timestamp keep their first-seen value; status only ever moves
// pending -> done. The done event fires exactly once, on that transition.
func (u *DepositUsecase) merge(ctx context.Context, tx *entities.Transaction, pd *entities.PotentialDeposit) (DepositOutcome, error) {
	changed := false
	becameDone := false

	if pd.Amount != 0 && pd.Amount != tx.Amount {
		tx.Amount = pd.Amount
		changed = true
	}
	if pd.ChainFee > 0 && (!tx.ChainFee.Valid || tx.ChainFee.Int64 != pd.ChainFee) {
		tx.ChainFee = null.Int64From(pd.ChainFee)
		changed = true
	}
	if !tx.Block.Valid && pd.Block.Valid {
		tx.Block = pd.Block
		changed = true
	}
	if tx.Timestamp == nil && pd.Timestamp != nil {
		tx.Timestamp = pd.Timestamp
		changed = true
	}
	if pd.Comment != "" && pd.Comment != tx.Comment {
		tx.Comment = pd.Comment
		changed = true
	}
	if pd.Status == entities.TxDone && tx.Status == entities.TxPending {
		tx.Status = entities.TxDone
		changed = true
		becameDone = true
	}

	if !changed {
		return DepositUnchanged, nil
	}
	if err := u.txRepo.Update(ctx, tx); err != nil {
		return "", err
	}
	if becameDone {
		u.publish(ctx, entities.EventDepositDone, tx)
	}
	return DepositUpdated, nil
}

func (u *DepositUsecase) publish(ctx context.Context, typ entities.LedgerEventType, tx *entities.Transaction) {
	if u.bus == nil {
		return
	}
	u.bus.Publish(ctx, entities.LedgerEvent{Type: typ, Transaction: tx})
}
