package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"coinledger.backend/internal/domain/entities"
)

// evmNativeDecimals is the wei precision of the native EVM token.
const evmNativeDecimals = 18

// EVMAdapter is the account-based hot-wallet variant built on go-ethereum.
// Without a configured private key it is watch-only. Unlike the full-node
// adapter it submits one transfer per destination, but it keeps the batch
// contract: the first failure fails every remaining member with the same
// error, and a member is only marked done once the backend accepted it.
type EVMAdapter struct {
	settings *EVMSettings
	client   *ethclient.Client
	rawRPC   *rpc.Client
	hot      common.Address
	key      *ecdsa.PrivateKey
}

// NewEVMAdapter validates settings and dials the RPC endpoint.
func NewEVMAdapter(raw map[string]string) (*EVMAdapter, error) {
	s, err := EVMSettingsFrom(raw)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(s.HotAddress) {
		return nil, fmt.Errorf("evm settings: invalid hot address %q", s.HotAddress)
	}
	var key *ecdsa.PrivateKey
	if s.PrivateKey != "" {
		key, err = ethcrypto.HexToECDSA(s.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("evm settings: invalid private key: %w", err)
		}
	}
	rawRPC, err := rpc.Dial(s.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc: %w", err)
	}
	return &EVMAdapter{
		settings: s,
		client:   ethclient.NewClient(rawRPC),
		rawRPC:   rawRPC,
		hot:      common.HexToAddress(s.HotAddress),
		key:      key,
	}, nil
}

// Kind returns the adapter kind
func (a *EVMAdapter) Kind() entities.AdapterKind {
	return entities.AdapterEVM
}

// MinConfirm is the configured confirmation threshold for deposits.
func (a *EVMAdapter) MinConfirm() int64 {
	return a.settings.MinConfirm
}

// WalletVersion reports the node's client version string.
func (a *EVMAdapter) WalletVersion(ctx context.Context) (string, error) {
	var version string
	if err := a.rawRPC.CallContext(ctx, &version, "web3_clientVersion"); err != nil {
		return "", err
	}
	return version, nil
}

// BlockHeight returns the node's current head number.
func (a *EVMAdapter) BlockHeight(ctx context.Context) (int64, error) {
	n, err := a.client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// IsLocked reports true for watch-only wallets.
func (a *EVMAdapter) IsLocked(ctx context.Context) (bool, error) {
	return a.key == nil, nil
}

// NewDepositAddress returns the hot account with an empty memo. Plain
// EVM transfers carry no memo field, so chain observations resolve
// against (address, ""); a per-depositor memo would never match.
func (a *EVMAdapter) NewDepositAddress(ctx context.Context, currency *entities.Currency) (*entities.Address, error) {
	return &entities.Address{
		Address:    a.hot.Hex(),
		Type:       entities.AddressDeposit,
		CurrencyID: currency.ID,
	}, nil
}

// HotBalance returns the hot account's confirmed balance.
func (a *EVMAdapter) HotBalance(ctx context.Context, currency *entities.Currency) (int64, error) {
	wei, err := a.client.BalanceAt(ctx, a.hot, nil)
	if err != nil {
		return 0, err
	}
	return weiToScaled(wei, currency.Decimals), nil
}

// HotLockedBalance is zero: EVM accounts have no immature funds.
func (a *EVMAdapter) HotLockedBalance(ctx context.Context, currency *entities.Currency) (int64, error) {
	return 0, nil
}

// DoWithdrawals signs and submits one transfer per destination.
func (a *EVMAdapter) DoWithdrawals(ctx context.Context, currency *entities.Currency, txs []*entities.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	if err := validateBatch(currency, txs); err != nil {
		return err
	}
	if a.key == nil {
		failBatch(txs, "wallet is watch-only: no spending key configured")
		return nil
	}

	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		failBatch(txs, fmt.Sprintf("gas price query failed: %v", err))
		return nil
	}
	signer := types.NewEIP155Signer(big.NewInt(a.settings.ChainID))

	for i, tx := range txs {
		if !common.IsHexAddress(tx.Address.Address) {
			a.failRemaining(txs[i:], fmt.Sprintf("invalid destination address %q", tx.Address.Address))
			return nil
		}
		nonce, err := a.client.PendingNonceAt(ctx, a.hot)
		if err != nil {
			a.failRemaining(txs[i:], fmt.Sprintf("nonce query failed: %v", err))
			return nil
		}
		raw := types.NewTransaction(nonce, common.HexToAddress(tx.Address.Address),
			scaledToWei(-tx.Amount, currency.Decimals), 21000, gasPrice, nil)
		signed, err := types.SignTx(raw, signer, a.key)
		if err != nil {
			a.failRemaining(txs[i:], fmt.Sprintf("signing failed: %v", err))
			return nil
		}
		if err := a.client.SendTransaction(ctx, signed); err != nil {
			a.failRemaining(txs[i:], fmt.Sprintf("send failed: %v", err))
			return nil
		}
		tx.Status = entities.TxDone
		tx.TxID = null.StringFrom(signed.Hash().Hex())
		tx.Error = ""
	}
	return nil
}

func (a *EVMAdapter) failRemaining(txs []*entities.Transaction, msg string) {
	failBatch(txs, msg)
}

// DoMove accepts internal transfers unconditionally.
func (a *EVMAdapter) DoMove(ctx context.Context, debit *entities.Transaction) (bool, error) {
	return true, nil
}

// GetTransaction fetches one transaction with its receive detail.
func (a *EVMAdapter) GetTransaction(ctx context.Context, currency *entities.Currency, txid string) (*TxInfo, error) {
	hash := common.HexToHash(txid)
	tx, pending, err := a.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	info := &TxInfo{TxID: txid}
	if tx.To() != nil && tx.Value().Sign() > 0 {
		info.Details = append(info.Details, TxDetail{
			Category: DetailReceive,
			Address:  tx.To().Hex(),
			Amount:   weiToScaled(tx.Value(), currency.Decimals),
		})
	}
	if pending {
		return info, nil
	}

	receipt, err := a.client.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	head, err := a.client.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	blockNum := receipt.BlockNumber.Int64()
	info.Block = null.Int64From(blockNum)
	info.BlockHash = receipt.BlockHash.Hex()
	info.Confirmations = int64(head) - blockNum + 1

	header, err := a.client.HeaderByHash(ctx, receipt.BlockHash)
	if err == nil {
		t := time.Unix(int64(header.Time), 0)
		info.Time = &t
	}
	fee := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), tx.GasPrice())
	info.ChainFee = weiToScaled(fee, currency.Decimals)
	return info, nil
}

// GetBlock fetches one block with its transaction hashes.
func (a *EVMAdapter) GetBlock(ctx context.Context, hash string) (*BlockInfo, error) {
	block, err := a.client.BlockByHash(ctx, common.HexToHash(hash))
	if err != nil {
		return nil, err
	}
	info := &BlockInfo{
		Hash:   block.Hash().Hex(),
		Height: block.Number().Int64(),
	}
	t := time.Unix(int64(block.Time()), 0)
	info.Time = &t
	for _, tx := range block.Transactions() {
		info.TxIDs = append(info.TxIDs, tx.Hash().Hex())
	}
	return info, nil
}

// GetBlockHash resolves a height to a block hash.
func (a *EVMAdapter) GetBlockHash(ctx context.Context, height int64) (string, error) {
	header, err := a.client.HeaderByNumber(ctx, big.NewInt(height))
	if err != nil {
		return "", err
	}
	return header.Hash().Hex(), nil
}

func weiToScaled(wei *big.Int, decimals int32) int64 {
	return decimal.NewFromBigInt(wei, -evmNativeDecimals).Shift(decimals).Round(0).IntPart()
}

func scaledToWei(amount int64, decimals int32) *big.Int {
	return decimal.New(amount, -decimals).Shift(evmNativeDecimals).BigInt()
}
