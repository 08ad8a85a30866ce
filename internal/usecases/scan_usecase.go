package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/domain/repositories"
	"coinledger.backend/internal/infrastructure/wallet"
	"coinledger.backend/internal/metrics"
	"coinledger.backend/pkg/logger"
	"coinledger.backend/pkg/redis"
)

const (
	// DefaultScrapeBehind is how far below the current tip a fresh scrape
	// cursor is seeded. Deposits older than that are expected to arrive
	// through notifications or an explicit cursor reset.
	DefaultScrapeBehind int64 = 16

	// defaultMinConfirm applies when the adapter does not expose its own
	// confirmation threshold.
	defaultMinConfirm int64 = 6

	scrapeSeedTTL = time.Hour
)

// confirmer is implemented by adapters that carry a configured
// confirmation threshold.
type confirmer interface {
	MinConfirm() int64
}

// ScanUsecase turns backend notifications and incremental block scans
// into PotentialDeposits for the reconciler. The scrape path is the
// recovery net for notifications lost while the engine was down.
type ScanUsecase struct {
	txRepo       repositories.TransactionRepository
	currencyRepo repositories.CurrencyRepository
	walletRepo   repositories.WalletRepository
	factory      *wallet.Factory
	deposits     *DepositUsecase

	scrapeBehind int64
}

// NewScanUsecase creates a new scan usecase
func NewScanUsecase(
	txRepo repositories.TransactionRepository,
	currencyRepo repositories.CurrencyRepository,
	walletRepo repositories.WalletRepository,
	factory *wallet.Factory,
	deposits *DepositUsecase,
	scrapeBehind int64,
) *ScanUsecase {
	if scrapeBehind <= 0 {
		scrapeBehind = DefaultScrapeBehind
	}
	return &ScanUsecase{
		txRepo:       txRepo,
		currencyRepo: currencyRepo,
		walletRepo:   walletRepo,
		factory:      factory,
		deposits:     deposits,
		scrapeBehind: scrapeBehind,
	}
}

// chainContext resolves a currency to its enabled wallet and chain-capable
// adapter.
type chainContext struct {
	currency *entities.Currency
	wallet   *entities.Wallet
	adapter  wallet.Adapter
	reader   wallet.ChainReader
}

func (u *ScanUsecase) resolve(ctx context.Context, currencyID uuid.UUID) (*chainContext, error) {
	currency, err := u.currencyRepo.GetByID(ctx, currencyID)
	if err != nil {
		return nil, err
	}
	if !currency.Enabled || currency.Offline() {
		return nil, domainerrors.ErrWalletOffline
	}
	w := currency.Wallet
	if w == nil {
		w, err = u.walletRepo.GetByID(ctx, *currency.WalletID)
		if err != nil {
			return nil, err
		}
		if !w.Enabled {
			return nil, domainerrors.ErrWalletOffline
		}
	}
	adapter, err := u.factory.Get(w)
	if err != nil {
		return nil, err
	}
	reader, ok := adapter.(wallet.ChainReader)
	if !ok {
		return nil, domainerrors.ErrNotApplicable
	}
	return &chainContext{currency: currency, wallet: w, adapter: adapter, reader: reader}, nil
}

// WalletNotify handles a walletnotify-style push: fetch the transaction,
// derive a PotentialDeposit per receive detail and feed the reconciler.
// Deposits to addresses we do not own are discarded.
func (u *ScanUsecase) WalletNotify(ctx context.Context, currencyID uuid.UUID, txid string) error {
	if txid == "" {
		return domainerrors.ErrInvalidInput
	}
	cc, err := u.resolve(ctx, currencyID)
	if err != nil {
		return err
	}
	return u.processTx(ctx, cc, txid)
}

func (u *ScanUsecase) processTx(ctx context.Context, cc *chainContext, txid string) error {
	info, err := cc.reader.GetTransaction(ctx, cc.currency, txid)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", txid, err)
	}

	minConfirm := defaultMinConfirm
	if c, ok := cc.adapter.(confirmer); ok {
		minConfirm = c.MinConfirm()
	}
	status := entities.TxPending
	if info.Confirmations >= minConfirm {
		status = entities.TxDone
	}

	for _, d := range info.Details {
		if d.Category != wallet.DetailReceive {
			continue
		}
		pd := &entities.PotentialDeposit{
			CurrencyID: cc.currency.ID,
			Address:    d.Address,
			Extra:      d.Extra,
			TxID:       info.TxID,
			Amount:     d.Amount,
			ChainFee:   info.ChainFee,
			Status:     status,
			Block:      info.Block,
			Timestamp:  info.Time,
		}
		outcome, err := u.deposits.Reconcile(ctx, pd)
		if err != nil {
			if errors.Is(err, domainerrors.ErrStaleDeposit) {
				logger.Warn(ctx, "stale deposit ignored",
					zap.String("txid", info.TxID), zap.String("address", d.Address))
				continue
			}
			logger.Error(ctx, "deposit reconciliation failed",
				zap.String("txid", info.TxID), zap.Error(err))
			continue
		}
		if outcome != DepositNotOurs {
			logger.Info(ctx, "deposit reconciled",
				zap.String("txid", info.TxID),
				zap.String("currency", cc.currency.Symbol),
				zap.String("outcome", string(outcome)))
		}
	}
	return nil
}

// BlockNotify handles a blocknotify-style push: every transaction of the
// block runs through WalletNotify semantics. Per-transaction failures are
// logged and do not stop the walk.
func (u *ScanUsecase) BlockNotify(ctx context.Context, currencyID uuid.UUID, blockHash string) error {
	if blockHash == "" {
		return domainerrors.ErrInvalidInput
	}
	cc, err := u.resolve(ctx, currencyID)
	if err != nil {
		return err
	}
	block, err := cc.reader.GetBlock(ctx, blockHash)
	if err != nil {
		return fmt.Errorf("fetch block %s: %w", blockHash, err)
	}
	u.walkBlock(ctx, cc, block)
	return nil
}

func (u *ScanUsecase) walkBlock(ctx context.Context, cc *chainContext, block *wallet.BlockInfo) {
	for _, txid := range block.TxIDs {
		if err := u.processTx(ctx, cc, txid); err != nil {
			// most txs in a block are not wallet txs; debug is enough
			logger.Debug(ctx, "block tx skipped",
				zap.String("txid", txid), zap.Error(err))
		}
	}
}

// ScrapeStep advances the wallet's scan cursor by at most one block. A
// missing cursor is seeded a fixed distance below the tip, with a redis
// cooldown so a failing seed does not thrash. The cursor is monotone and
// never passes the backend's current height.
func (u *ScanUsecase) ScrapeStep(ctx context.Context, currencyID uuid.UUID) error {
	cc, err := u.resolve(ctx, currencyID)
	if err != nil {
		return err
	}
	height, err := cc.adapter.BlockHeight(ctx)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotApplicable) {
			return nil
		}
		return fmt.Errorf("height probe: %w", err)
	}

	var next int64
	state, err := u.walletRepo.GetState(ctx, cc.wallet.ID)
	switch {
	case err == nil && state.LastScrapedHeight.Valid:
		next = state.LastScrapedHeight.Int64 + 1
	case err == nil || errors.Is(err, domainerrors.ErrNotFound):
		seedKey := "scrape:seed:" + cc.wallet.ID.String()
		if redis.GetClient() != nil {
			if _, getErr := redis.Get(ctx, seedKey); getErr == nil {
				// seeded recently, wait for the cooldown
				return nil
			}
		}
		next = height - u.scrapeBehind
		if next < 0 {
			next = 0
		}
		if redis.GetClient() != nil {
			if setErr := redis.Set(ctx, seedKey, "1", scrapeSeedTTL); setErr != nil {
				logger.Warn(ctx, "scrape seed cooldown not recorded", zap.Error(setErr))
			}
		}
	default:
		return err
	}

	if next > height {
		return nil
	}

	hash, err := cc.reader.GetBlockHash(ctx, next)
	if err != nil {
		return fmt.Errorf("block hash at %d: %w", next, err)
	}
	block, err := cc.reader.GetBlock(ctx, hash)
	if err != nil {
		return fmt.Errorf("block %s: %w", hash, err)
	}
	u.walkBlock(ctx, cc, block)

	if err := u.walletRepo.SaveState(ctx, &entities.WalletState{
		WalletID:          cc.wallet.ID,
		LastScrapedHeight: null.Int64From(next),
	}); err != nil {
		return fmt.Errorf("persist cursor: %w", err)
	}
	metrics.ScrapeHeight.WithLabelValues(cc.wallet.Name).Set(float64(next))
	return nil
}

// ResetCursor is the administrative override for the scrape cursor, used
// to rescan a range after an incident.
func (u *ScanUsecase) ResetCursor(ctx context.Context, walletID uuid.UUID, height int64) error {
	if height < 0 {
		return domainerrors.ErrInvalidInput
	}
	if _, err := u.walletRepo.GetByID(ctx, walletID); err != nil {
		return err
	}
	if redis.GetClient() != nil {
		if err := redis.Del(ctx, "scrape:seed:"+walletID.String()); err != nil {
			logger.Warn(ctx, "scrape seed cooldown not cleared", zap.Error(err))
		}
	}
	return u.walletRepo.SaveState(ctx, &entities.WalletState{
		WalletID:          walletID,
		LastScrapedHeight: null.Int64From(height),
	})
}

// RecheckPending re-derives observations for the currency's pending
// deposits so their confirmations can advance to done.
func (u *ScanUsecase) RecheckPending(ctx context.Context, currencyID uuid.UUID) error {
	cc, err := u.resolve(ctx, currencyID)
	if err != nil {
		return err
	}
	pending, err := u.txRepo.PendingDeposits(ctx, currencyID)
	if err != nil {
		return err
	}
	for _, tx := range pending {
		if !tx.TxID.Valid || tx.TxID.String == "" {
			continue
		}
		if err := u.processTx(ctx, cc, tx.TxID.String); err != nil {
			logger.Error(ctx, "pending deposit recheck failed",
				zap.String("txid", tx.TxID.String), zap.Error(err))
		}
	}
	return nil
}
