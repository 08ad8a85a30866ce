package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/domain/repositories"
	"coinledger.backend/internal/infrastructure/wallet"
	"coinledger.backend/pkg/crypto"
	"coinledger.backend/pkg/logger"
)

// MoveUsecase handles internal user-to-user transfers. A move is two
// linked ledger entries: a debit leg carrying the fee and a credit leg
// pointing back at it through ParentID. Both legs live and die together.
type MoveUsecase struct {
	txRepo       repositories.TransactionRepository
	currencyRepo repositories.CurrencyRepository
	walletRepo   repositories.WalletRepository
	uow          repositories.UnitOfWork
	factory      *wallet.Factory
	balances     *BalanceUsecase
}

// NewMoveUsecase creates a new move usecase
func NewMoveUsecase(
	txRepo repositories.TransactionRepository,
	currencyRepo repositories.CurrencyRepository,
	walletRepo repositories.WalletRepository,
	uow repositories.UnitOfWork,
	factory *wallet.Factory,
	balances *BalanceUsecase,
) *MoveUsecase {
	return &MoveUsecase{
		txRepo:       txRepo,
		currencyRepo: currencyRepo,
		walletRepo:   walletRepo,
		uow:          uow,
		factory:      factory,
		balances:     balances,
	}
}

// CreateMove records a pending transfer of amount from one user to
// another. The wallet adapter may veto the move before anything is
// persisted. When requireConfirm is set both legs share a fresh nonce
// and stay unexecutable until Confirm clears it.
func (u *MoveUsecase) CreateMove(ctx context.Context, from, to uuid.UUID, currencyID uuid.UUID, amount int64, comment string, requireConfirm bool) (*entities.Transaction, error) {
	if amount <= 0 || from == to || from == uuid.Nil || to == uuid.Nil {
		return nil, domainerrors.ErrInvalidInput
	}
	currency, err := u.currencyRepo.GetByID(ctx, currencyID)
	if err != nil {
		return nil, err
	}

	available, err := u.balances.Available(ctx, from, currencyID)
	if err != nil {
		return nil, err
	}
	if available < amount+currency.FeeMove {
		return nil, domainerrors.ErrInsufficientFunds
	}

	debit := &entities.Transaction{
		ID:         uuid.New(),
		Category:   entities.TxMove,
		Status:     entities.TxPending,
		UserID:     &from,
		CurrencyID: currencyID,
		Amount:     -amount,
		Fee:        -currency.FeeMove,
		Comment:    comment,
	}
	if requireConfirm {
		nonce, err := crypto.GenerateVerificationToken()
		if err != nil {
			return nil, err
		}
		debit.Nonce = nonce
	}

	if err := u.veto(ctx, currency, debit); err != nil {
		return nil, err
	}

	credit := &entities.Transaction{
		Category:   entities.TxMove,
		Status:     entities.TxPending,
		UserID:     &to,
		CurrencyID: currencyID,
		Amount:     amount,
		ParentID:   &debit.ID,
		Comment:    comment,
		Nonce:      debit.Nonce,
	}

	err = u.uow.Do(ctx, func(ctx context.Context) error {
		if err := u.txRepo.Create(ctx, debit); err != nil {
			return err
		}
		return u.txRepo.Create(ctx, credit)
	})
	if err != nil {
		return nil, err
	}
	return debit, nil
}

// veto gives the currency's wallet adapter the chance to reject the move.
// Currencies without a reachable wallet skip the check: moves are pure
// ledger operations and must keep working while the node is down.
func (u *MoveUsecase) veto(ctx context.Context, currency *entities.Currency, debit *entities.Transaction) error {
	if currency.WalletID == nil {
		return nil
	}
	w := currency.Wallet
	if w == nil {
		var err error
		w, err = u.walletRepo.GetByID(ctx, *currency.WalletID)
		if err != nil {
			return nil
		}
	}
	if !w.Enabled {
		return nil
	}
	adapter, err := u.factory.Get(w)
	if err != nil {
		return nil
	}
	ok, err := adapter.DoMove(ctx, debit)
	if err != nil {
		return fmt.Errorf("move veto check: %w", err)
	}
	if !ok {
		return domainerrors.ErrMoveVetoed
	}
	return nil
}

// Confirm clears the confirmation nonce on every leg carrying it. Used
// by the email-confirmation link for both moves and withdrawals.
func (u *MoveUsecase) Confirm(ctx context.Context, nonce string) error {
	if nonce == "" {
		return domainerrors.ErrInvalidInput
	}
	legs, err := u.txRepo.GetByNonce(ctx, nonce)
	if err != nil {
		return err
	}
	if len(legs) == 0 {
		return domainerrors.ErrNotFound
	}
	return u.uow.Do(ctx, func(ctx context.Context) error {
		for _, leg := range legs {
			leg.Nonce = ""
			if err := u.txRepo.Update(ctx, leg); err != nil {
				return err
			}
		}
		return nil
	})
}

// Cancel cancels a pending move by its debit leg, both legs atomically.
func (u *MoveUsecase) Cancel(ctx context.Context, debitID uuid.UUID) error {
	debit, err := u.txRepo.GetByID(ctx, debitID)
	if err != nil {
		return err
	}
	if debit.Category != entities.TxMove || debit.Credits() {
		return domainerrors.ErrInvalidInput
	}
	if debit.Status != entities.TxPending {
		return domainerrors.ErrNotPending
	}
	credit, err := u.txRepo.GetByParentID(ctx, debit.ID)
	if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		return err
	}

	return u.uow.Do(ctx, func(ctx context.Context) error {
		debit.Status = entities.TxCancelled
		debit.Nonce = ""
		if err := u.txRepo.Update(ctx, debit); err != nil {
			return err
		}
		if credit != nil {
			credit.Status = entities.TxCancelled
			credit.Nonce = ""
			return u.txRepo.Update(ctx, credit)
		}
		return nil
	})
}

// ExecutePending promotes every confirmed pending move pair of the
// currency to done. Pairs fail independently; one bad pair does not stop
// the sweep.
func (u *MoveUsecase) ExecutePending(ctx context.Context, currencyID uuid.UUID) error {
	debits, err := u.txRepo.PendingMoveDebits(ctx, currencyID)
	if err != nil {
		return err
	}
	for _, debit := range debits {
		if err := u.executePair(ctx, debit); err != nil {
			logger.Error(ctx, "move execution failed",
				zap.String("debit", debit.ID.String()), zap.Error(err))
		}
	}
	return nil
}

func (u *MoveUsecase) executePair(ctx context.Context, debit *entities.Transaction) error {
	credit, err := u.txRepo.GetByParentID(ctx, debit.ID)
	if err != nil {
		return fmt.Errorf("credit leg: %w", err)
	}
	if credit.Status != entities.TxPending || credit.AwaitingConfirmation() {
		return nil
	}
	return u.uow.Do(ctx, func(ctx context.Context) error {
		debit.Status = entities.TxDone
		if err := u.txRepo.Update(ctx, debit); err != nil {
			return err
		}
		credit.Status = entities.TxDone
		return u.txRepo.Update(ctx, credit)
	})
}
