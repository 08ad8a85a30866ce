package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"coinledger.backend/internal/domain/entities"
	"coinledger.backend/pkg/logger"
)

// spendUnlockSeconds is the time-boxed unlock window around a withdrawal
// batch. The wallet is unconditionally re-locked afterwards.
const spendUnlockSeconds = 60

// FullNodeAdapter is the reference adapter for Bitcoin-core compatible
// JSON-RPC full-node wallets.
type FullNodeAdapter struct {
	settings *FullNodeSettings
	rpc      *rpcClient
}

// NewFullNodeAdapter validates the settings bag and builds the adapter.
func NewFullNodeAdapter(raw map[string]string) (*FullNodeAdapter, error) {
	s, err := FullNodeSettingsFrom(raw)
	if err != nil {
		return nil, err
	}
	return &FullNodeAdapter{settings: s, rpc: newRPCClient(s)}, nil
}

// Kind returns the adapter kind
func (a *FullNodeAdapter) Kind() entities.AdapterKind {
	return entities.AdapterFullNode
}

// MinConfirm is the configured confirmation threshold for deposits.
func (a *FullNodeAdapter) MinConfirm() int64 {
	return a.settings.MinConfirm
}

// WalletVersion probes getnetworkinfo, falling back to the legacy getinfo.
func (a *FullNodeAdapter) WalletVersion(ctx context.Context) (string, error) {
	var netInfo struct {
		Subversion string `json:"subversion"`
		Version    int64  `json:"version"`
	}
	if err := a.rpc.Call(ctx, "getnetworkinfo", nil, &netInfo); err == nil {
		if netInfo.Subversion != "" {
			return netInfo.Subversion, nil
		}
		return fmt.Sprintf("%d", netInfo.Version), nil
	}
	var info struct {
		Version int64 `json:"version"`
	}
	if err := a.rpc.Call(ctx, "getinfo", nil, &info); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", info.Version), nil
}

// BlockHeight probes getblockchaininfo then getinfo, taking whichever of
// blocks/headers is present. Absence of both is a hard failure.
func (a *FullNodeAdapter) BlockHeight(ctx context.Context) (int64, error) {
	var chainInfo struct {
		Blocks  *int64 `json:"blocks"`
		Headers *int64 `json:"headers"`
	}
	err := a.rpc.Call(ctx, "getblockchaininfo", nil, &chainInfo)
	if err == nil {
		if chainInfo.Blocks != nil {
			return *chainInfo.Blocks, nil
		}
		if chainInfo.Headers != nil {
			return *chainInfo.Headers, nil
		}
	}
	chainInfo.Blocks, chainInfo.Headers = nil, nil
	if err := a.rpc.Call(ctx, "getinfo", nil, &chainInfo); err != nil {
		return 0, fmt.Errorf("block height probe: %w", err)
	}
	if chainInfo.Blocks != nil {
		return *chainInfo.Blocks, nil
	}
	if chainInfo.Headers != nil {
		return *chainInfo.Headers, nil
	}
	return 0, errors.New("block height probe: backend reports neither blocks nor headers")
}

// IsLocked reports whether the backend cannot sign. An encrypted wallet
// with a configured spend passphrase is not locked for our purposes: the
// executor unlocks it around each batch.
func (a *FullNodeAdapter) IsLocked(ctx context.Context) (bool, error) {
	var info struct {
		UnlockedUntil *int64 `json:"unlocked_until"`
	}
	if err := a.rpc.Call(ctx, "getwalletinfo", nil, &info); err != nil {
		return false, err
	}
	if info.UnlockedUntil == nil {
		// unencrypted wallet
		return false, nil
	}
	if *info.UnlockedUntil > time.Now().Unix() {
		return false, nil
	}
	return a.settings.SpendPassphrase == "", nil
}

// NewDepositAddress asks the backend for a previously-unused address.
func (a *FullNodeAdapter) NewDepositAddress(ctx context.Context, currency *entities.Currency) (*entities.Address, error) {
	var addr string
	if err := a.rpc.Call(ctx, "getnewaddress", nil, &addr); err != nil {
		return nil, err
	}
	return &entities.Address{
		Address:    addr,
		Type:       entities.AddressDeposit,
		CurrencyID: currency.ID,
	}, nil
}

// HotBalance returns the backend's spendable balance as a scaled integer.
func (a *FullNodeAdapter) HotBalance(ctx context.Context, currency *entities.Currency) (int64, error) {
	var balance float64
	if err := a.rpc.Call(ctx, "getbalance", nil, &balance); err != nil {
		return 0, err
	}
	return scaleFloat(balance, currency.Decimals), nil
}

// HotLockedBalance covers unconfirmed plus immature funds.
func (a *FullNodeAdapter) HotLockedBalance(ctx context.Context, currency *entities.Currency) (int64, error) {
	var info struct {
		Unconfirmed *float64 `json:"unconfirmed_balance"`
		Immature    *float64 `json:"immature_balance"`
	}
	if err := a.rpc.Call(ctx, "getwalletinfo", nil, &info); err == nil && (info.Unconfirmed != nil || info.Immature != nil) {
		var locked int64
		if info.Unconfirmed != nil {
			locked += scaleFloat(*info.Unconfirmed, currency.Decimals)
		}
		if info.Immature != nil {
			locked += scaleFloat(*info.Immature, currency.Decimals)
		}
		return locked, nil
	}
	var unconfirmed float64
	if err := a.rpc.Call(ctx, "getunconfirmedbalance", nil, &unconfirmed); err != nil {
		return 0, err
	}
	return scaleFloat(unconfirmed, currency.Decimals), nil
}

// DoWithdrawals executes the batch as one spend: sendtoaddress for a
// single destination, sendmany otherwise. The whole batch shares one
// outcome: one txid on success, one error text on failure.
func (a *FullNodeAdapter) DoWithdrawals(ctx context.Context, currency *entities.Currency, txs []*entities.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	if err := validateBatch(currency, txs); err != nil {
		return err
	}

	if a.settings.SpendPassphrase != "" {
		if err := a.rpc.Call(ctx, "walletpassphrase", []interface{}{a.settings.SpendPassphrase, spendUnlockSeconds}, nil); err != nil {
			failBatch(txs, fmt.Sprintf("wallet unlock failed: %v", err))
			return nil
		}
		defer func() {
			// always re-lock, even on failure
			if err := a.rpc.Call(context.WithoutCancel(ctx), "walletlock", nil, nil); err != nil {
				logger.Warn(ctx, "wallet re-lock failed", zap.Error(err))
			}
		}()
	}

	var txid string
	var err error
	if len(txs) == 1 {
		txid, err = a.sendSingle(ctx, currency, txs[0])
	} else {
		txid, err = a.sendMany(ctx, currency, txs)
	}
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// a timed-out spend is indeterminate: it may have succeeded on
			// the backend, so an operator must reconcile before any retry
			logger.Error(ctx, "withdrawal batch timed out; outcome indeterminate",
				zap.String("currency", currency.Symbol), zap.Int("batch", len(txs)))
			msg = "network timeout (outcome indeterminate): " + msg
		}
		failBatch(txs, msg)
		return nil
	}

	block := null.Int64{}
	if height, herr := a.BlockHeight(ctx); herr == nil {
		block = null.Int64From(height)
	}
	chainFee := null.Int64{}
	var sent struct {
		Fee *float64 `json:"fee"`
	}
	if ferr := a.rpc.Call(ctx, "gettransaction", []interface{}{txid}, &sent); ferr == nil && sent.Fee != nil {
		f := scaleFloat(*sent.Fee, currency.Decimals)
		if f < 0 {
			f = -f
		}
		chainFee = null.Int64From(f)
	}
	for _, tx := range txs {
		tx.Status = entities.TxDone
		tx.TxID = null.StringFrom(txid)
		tx.Block = block
		tx.ChainFee = chainFee
		tx.Error = ""
	}
	return nil
}

// DoMove accepts internal transfers unconditionally.
func (a *FullNodeAdapter) DoMove(ctx context.Context, debit *entities.Transaction) (bool, error) {
	return true, nil
}

func (a *FullNodeAdapter) sendSingle(ctx context.Context, currency *entities.Currency, tx *entities.Transaction) (string, error) {
	amount := -tx.Amount
	comment := fmt.Sprintf("withdrawal %s", tx.ID)
	var txid string
	err := a.spendCall(ctx, currency, amount, func(encoded interface{}) (string, []interface{}) {
		return "sendtoaddress", []interface{}{tx.Address.Address, encoded, comment}
	}, &txid)
	return txid, err
}

func (a *FullNodeAdapter) sendMany(ctx context.Context, currency *entities.Currency, txs []*entities.Transaction) (string, error) {
	// aggregate duplicate destinations into one combined output
	amounts := map[string]int64{}
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		amounts[tx.Address.Address] += -tx.Amount
		ids = append(ids, tx.ID.String())
	}
	addrs := make([]string, 0, len(amounts))
	for addr := range amounts {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	comment := fmt.Sprintf("withdrawals %s", strings.Join(ids, ","))

	var txid string
	err := a.spendCallMap(ctx, currency, addrs, amounts, func(encoded map[string]interface{}) (string, []interface{}) {
		return "sendmany", []interface{}{"", encoded, 1, comment}
	}, &txid)
	return txid, err
}

// spendCall submits a spend with the amount as a native float first and, if
// the backend rejects the encoding, retries exactly once with the amount as
// a fixed-point string at the currency's precision. Float first, string
// fallback, never reversed: some RPC servers only accept one of the two.
func (a *FullNodeAdapter) spendCall(ctx context.Context, currency *entities.Currency, amount int64, build func(encoded interface{}) (string, []interface{}), out interface{}) error {
	method, params := build(floatAmount(amount, currency.Decimals))
	err := a.rpc.Call(ctx, method, params, out)
	if err == nil || !amountEncodingRejected(err) {
		return err
	}
	logger.Debug(ctx, "backend rejected float amount, retrying as string",
		zap.String("method", method), zap.String("currency", currency.Symbol))
	method, params = build(stringAmount(amount, currency.Decimals))
	return a.rpc.Call(ctx, method, params, out)
}

func (a *FullNodeAdapter) spendCallMap(ctx context.Context, currency *entities.Currency, addrs []string, amounts map[string]int64, build func(encoded map[string]interface{}) (string, []interface{}), out interface{}) error {
	encode := func(conv func(int64) interface{}) map[string]interface{} {
		m := make(map[string]interface{}, len(addrs))
		for _, addr := range addrs {
			m[addr] = conv(amounts[addr])
		}
		return m
	}
	method, params := build(encode(func(v int64) interface{} { return floatAmount(v, currency.Decimals) }))
	err := a.rpc.Call(ctx, method, params, out)
	if err == nil || !amountEncodingRejected(err) {
		return err
	}
	logger.Debug(ctx, "backend rejected float amounts, retrying as strings",
		zap.String("method", method), zap.String("currency", currency.Symbol))
	method, params = build(encode(func(v int64) interface{} { return stringAmount(v, currency.Decimals) }))
	return a.rpc.Call(ctx, method, params, out)
}

// amountEncodingRejected decides whether an error is the invalid-type/
// amount class that triggers the string fallback. Which signatures qualify
// is backend-family specific; this covers the bitcoin-core family.
func amountEncodingRejected(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.Code == -3 || rpcErr.Code == -32602 {
		return true
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "invalid amount") || strings.Contains(msg, "expected type")
}

// GetTransaction fetches one wallet transaction with destination details.
func (a *FullNodeAdapter) GetTransaction(ctx context.Context, currency *entities.Currency, txid string) (*TxInfo, error) {
	var raw struct {
		TxID          string   `json:"txid"`
		Confirmations int64    `json:"confirmations"`
		BlockHash     string   `json:"blockhash"`
		BlockHeight   *int64   `json:"blockheight"`
		Time          int64    `json:"time"`
		Fee           *float64 `json:"fee"`
		Details       []struct {
			Category string  `json:"category"`
			Address  string  `json:"address"`
			Label    string  `json:"label"`
			Amount   float64 `json:"amount"`
		} `json:"details"`
	}
	if err := a.rpc.Call(ctx, "gettransaction", []interface{}{txid}, &raw); err != nil {
		return nil, err
	}

	info := &TxInfo{
		TxID:          raw.TxID,
		Confirmations: raw.Confirmations,
		BlockHash:     raw.BlockHash,
		Block:         null.Int64FromPtr(raw.BlockHeight),
	}
	if info.TxID == "" {
		info.TxID = txid
	}
	if raw.Time > 0 {
		t := time.Unix(raw.Time, 0)
		info.Time = &t
	}
	if raw.Fee != nil {
		fee := scaleFloat(*raw.Fee, currency.Decimals)
		if fee < 0 {
			fee = -fee
		}
		info.ChainFee = fee
	}
	for _, d := range raw.Details {
		amount := scaleFloat(d.Amount, currency.Decimals)
		if amount < 0 {
			amount = -amount
		}
		info.Details = append(info.Details, TxDetail{
			Category: DetailCategory(d.Category),
			Address:  d.Address,
			Amount:   amount,
		})
	}
	return info, nil
}

// GetBlock fetches one block with its txids.
func (a *FullNodeAdapter) GetBlock(ctx context.Context, hash string) (*BlockInfo, error) {
	var raw struct {
		Hash   string   `json:"hash"`
		Height int64    `json:"height"`
		Time   int64    `json:"time"`
		Tx     []string `json:"tx"`
	}
	if err := a.rpc.Call(ctx, "getblock", []interface{}{hash, 1}, &raw); err != nil {
		return nil, err
	}
	info := &BlockInfo{Hash: raw.Hash, Height: raw.Height, TxIDs: raw.Tx}
	if raw.Time > 0 {
		t := time.Unix(raw.Time, 0)
		info.Time = &t
	}
	return info, nil
}

// GetBlockHash resolves a height to a block hash.
func (a *FullNodeAdapter) GetBlockHash(ctx context.Context, height int64) (string, error) {
	var hash string
	if err := a.rpc.Call(ctx, "getblockhash", []interface{}{height}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func failBatch(txs []*entities.Transaction, msg string) {
	for _, tx := range txs {
		tx.Status = entities.TxFailed
		tx.Error = msg
		tx.TxID = null.String{}
	}
}

// scaleFloat converts a backend-reported float amount to a scaled integer.
// Only used at the RPC boundary; the ledger itself never stores floats.
func scaleFloat(v float64, decimals int32) int64 {
	return decimal.NewFromFloat(v).Shift(decimals).Round(0).IntPart()
}

func floatAmount(amount int64, decimals int32) float64 {
	f, _ := decimal.New(amount, -decimals).Float64()
	return f
}

func stringAmount(amount int64, decimals int32) string {
	return decimal.New(amount, -decimals).StringFixed(decimals)
}
