package usecases_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"coinledger.backend/internal/domain/entities"
	"coinledger.backend/internal/infrastructure/wallet"
	"coinledger.backend/pkg/utils"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// Mock TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetDeposit(ctx context.Context, addressID uuid.UUID, txid string) (*entities.Transaction, error) {
	args := m.Called(ctx, addressID, txid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByNonce(ctx context.Context, nonce string) ([]*entities.Transaction, error) {
	args := m.Called(ctx, nonce)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByParentID(ctx context.Context, parentID uuid.UUID) (*entities.Transaction, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByUserCurrency(ctx context.Context, userID, currencyID uuid.UUID) ([]*entities.Transaction, error) {
	args := m.Called(ctx, userID, currencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, p utils.PaginationParams) ([]*entities.Transaction, int64, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) PendingWithdrawals(ctx context.Context, currencyID uuid.UUID, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, currencyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ExecutingWithdrawals(ctx context.Context, currencyID uuid.UUID) ([]*entities.Transaction, error) {
	args := m.Called(ctx, currencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) PendingDeposits(ctx context.Context, currencyID uuid.UUID) ([]*entities.Transaction, error) {
	args := m.Called(ctx, currencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) PendingMoveDebits(ctx context.Context, currencyID uuid.UUID) ([]*entities.Transaction, error) {
	args := m.Called(ctx, currencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock AddressRepository
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) Create(ctx context.Context, addr *entities.Address) error {
	args := m.Called(ctx, addr)
	return args.Error(0)
}

func (m *MockAddressRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Address), args.Error(1)
}

func (m *MockAddressRepository) Resolve(ctx context.Context, currencyID uuid.UUID, address, extra string, typ entities.AddressType) (*entities.Address, error) {
	args := m.Called(ctx, currencyID, address, extra, typ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Address), args.Error(1)
}

func (m *MockAddressRepository) Upsert(ctx context.Context, addr *entities.Address) (*entities.Address, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Address), args.Error(1)
}

func (m *MockAddressRepository) ListByUser(ctx context.Context, userID uuid.UUID, typ entities.AddressType) ([]*entities.Address, error) {
	args := m.Called(ctx, userID, typ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Address), args.Error(1)
}

// Mock CurrencyRepository
type MockCurrencyRepository struct {
	mock.Mock
}

func (m *MockCurrencyRepository) Create(ctx context.Context, c *entities.Currency) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCurrencyRepository) Update(ctx context.Context, c *entities.Currency) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCurrencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Currency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Currency), args.Error(1)
}

func (m *MockCurrencyRepository) List(ctx context.Context, enabledOnly bool) ([]*entities.Currency, error) {
	args := m.Called(ctx, enabledOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Currency), args.Error(1)
}

// Mock WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Create(ctx context.Context, w *entities.Wallet) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWalletRepository) Update(ctx context.Context, w *entities.Wallet) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) List(ctx context.Context) ([]*entities.Wallet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetState(ctx context.Context, walletID uuid.UUID) (*entities.WalletState, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WalletState), args.Error(1)
}

func (m *MockWalletRepository) SaveState(ctx context.Context, state *entities.WalletState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// Mock EngineStateRepository
type MockEngineStateRepository struct {
	mock.Mock
}

func (m *MockEngineStateRepository) Get(ctx context.Context) (*entities.EngineState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EngineState), args.Error(1)
}

func (m *MockEngineStateRepository) Save(ctx context.Context, state *entities.EngineState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// fakeAdapter is a configurable in-memory wallet adapter, injected into
// the factory via Register.
type fakeAdapter struct {
	kind       entities.AdapterKind
	version    string
	height     int64
	heightErr  error
	locked     bool
	minConfirm int64

	txs    map[string]*wallet.TxInfo
	blocks map[string]*wallet.BlockInfo
	hashes map[int64]string

	moveOK  bool
	moveErr error

	withdrawErr error
	// withdraw, when set, replaces the default mark-done behavior
	withdraw func(ctx context.Context, currency *entities.Currency, txs []*entities.Transaction) error

	withdrawCalls int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		kind:       entities.AdapterFullNode,
		version:    "fake",
		minConfirm: 6,
		moveOK:     true,
		txs:        map[string]*wallet.TxInfo{},
		blocks:     map[string]*wallet.BlockInfo{},
		hashes:     map[int64]string{},
	}
}

func (f *fakeAdapter) Kind() entities.AdapterKind { return f.kind }
func (f *fakeAdapter) MinConfirm() int64          { return f.minConfirm }

func (f *fakeAdapter) WalletVersion(ctx context.Context) (string, error) { return f.version, nil }

func (f *fakeAdapter) BlockHeight(ctx context.Context) (int64, error) {
	return f.height, f.heightErr
}

func (f *fakeAdapter) IsLocked(ctx context.Context) (bool, error) { return f.locked, nil }

func (f *fakeAdapter) NewDepositAddress(ctx context.Context, currency *entities.Currency) (*entities.Address, error) {
	return &entities.Address{Address: uuid.New().String(), Type: entities.AddressDeposit, CurrencyID: currency.ID}, nil
}

func (f *fakeAdapter) HotBalance(ctx context.Context, currency *entities.Currency) (int64, error) {
	return 0, nil
}

func (f *fakeAdapter) HotLockedBalance(ctx context.Context, currency *entities.Currency) (int64, error) {
	return 0, nil
}

func (f *fakeAdapter) DoWithdrawals(ctx context.Context, currency *entities.Currency, txs []*entities.Transaction) error {
	f.withdrawCalls++
	if f.withdrawErr != nil {
		return f.withdrawErr
	}
	if f.withdraw != nil {
		return f.withdraw(ctx, currency, txs)
	}
	for _, tx := range txs {
		tx.Status = entities.TxDone
	}
	return nil
}

func (f *fakeAdapter) DoMove(ctx context.Context, debit *entities.Transaction) (bool, error) {
	return f.moveOK, f.moveErr
}

func (f *fakeAdapter) GetTransaction(ctx context.Context, currency *entities.Currency, txid string) (*wallet.TxInfo, error) {
	info, ok := f.txs[txid]
	if !ok {
		return nil, &wallet.RPCError{Code: -5, Message: "Invalid or non-wallet transaction id"}
	}
	return info, nil
}

func (f *fakeAdapter) GetBlock(ctx context.Context, hash string) (*wallet.BlockInfo, error) {
	block, ok := f.blocks[hash]
	if !ok {
		return nil, &wallet.RPCError{Code: -5, Message: "Block not found"}
	}
	return block, nil
}

func (f *fakeAdapter) GetBlockHash(ctx context.Context, height int64) (string, error) {
	hash, ok := f.hashes[height]
	if !ok {
		return "", &wallet.RPCError{Code: -8, Message: "Block height out of range"}
	}
	return hash, nil
}
