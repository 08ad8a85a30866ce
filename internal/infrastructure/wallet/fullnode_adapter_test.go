package wallet

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("development")
	m.Run()
}

// rpcHandler serves one method of the stub backend. Returning a non-nil
// *RPCError produces a JSON-RPC error response; an unregistered method
// answers with the method-not-found code.
type rpcHandler func(params []interface{}) (interface{}, *RPCError)

type rpcStub struct {
	t        *testing.T
	mu       sync.Mutex
	calls    []rpcRequest
	handlers map[string]rpcHandler
	srv      *httptest.Server
}

func newRPCStub(t *testing.T) *rpcStub {
	t.Helper()
	s := &rpcStub{t: t, handlers: map[string]rpcHandler{}}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		s.mu.Lock()
		s.calls = append(s.calls, req)
		h, ok := s.handlers[req.Method]
		s.mu.Unlock()

		resp := map[string]interface{}{"result": nil, "error": nil, "id": req.ID}
		if !ok {
			resp["error"] = &RPCError{Code: -32601, Message: "Method not found"}
		} else if result, rpcErr := h(req.Params); rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *rpcStub) handle(method string, h rpcHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

func (s *rpcStub) methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Method
	}
	return out
}

func (s *rpcStub) count(method string) int {
	n := 0
	for _, m := range s.methods() {
		if m == method {
			n++
		}
	}
	return n
}

func (s *rpcStub) adapter(t *testing.T, extra map[string]string) *FullNodeAdapter {
	t.Helper()
	u, err := url.Parse(s.srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	settings := map[string]string{
		"host": host,
		"port": port,
		"user": "rpc",
		"pass": "secret",
	}
	for k, v := range extra {
		settings[k] = v
	}
	a, err := NewFullNodeAdapter(settings)
	require.NoError(t, err)
	return a
}

func testCurrency() *entities.Currency {
	return &entities.Currency{ID: uuid.New(), Name: "Bitcoin", Symbol: "BTC", Decimals: 8}
}

func pendingWithdrawal(currency *entities.Currency, addr string, amount int64) *entities.Transaction {
	return &entities.Transaction{
		ID:         uuid.New(),
		Category:   entities.TxWithdrawal,
		Status:     entities.TxPending,
		CurrencyID: currency.ID,
		Amount:     -amount,
		Address: &entities.Address{
			ID:         uuid.New(),
			Address:    addr,
			Type:       entities.AddressWithdrawal,
			CurrencyID: currency.ID,
		},
	}
}

func TestFullNodeAdapter_BlockHeight(t *testing.T) {
	t.Run("modern backend", func(t *testing.T) {
		stub := newRPCStub(t)
		stub.handle("getblockchaininfo", func([]interface{}) (interface{}, *RPCError) {
			return map[string]interface{}{"blocks": 100, "headers": 102}, nil
		})
		a := stub.adapter(t, nil)

		height, err := a.BlockHeight(context.Background())
		require.NoError(t, err)
		require.EqualValues(t, 100, height)
		require.Equal(t, []string{"getblockchaininfo"}, stub.methods())
	})

	t.Run("headers only", func(t *testing.T) {
		stub := newRPCStub(t)
		stub.handle("getblockchaininfo", func([]interface{}) (interface{}, *RPCError) {
			return map[string]interface{}{"headers": 102}, nil
		})
		a := stub.adapter(t, nil)

		height, err := a.BlockHeight(context.Background())
		require.NoError(t, err)
		require.EqualValues(t, 102, height)
	})

	t.Run("legacy fallback", func(t *testing.T) {
		stub := newRPCStub(t)
		stub.handle("getinfo", func([]interface{}) (interface{}, *RPCError) {
			return map[string]interface{}{"blocks": 77}, nil
		})
		a := stub.adapter(t, nil)

		height, err := a.BlockHeight(context.Background())
		require.NoError(t, err)
		require.EqualValues(t, 77, height)
		require.Equal(t, []string{"getblockchaininfo", "getinfo"}, stub.methods())
	})

	t.Run("neither field is a hard error", func(t *testing.T) {
		stub := newRPCStub(t)
		stub.handle("getblockchaininfo", func([]interface{}) (interface{}, *RPCError) {
			return map[string]interface{}{}, nil
		})
		stub.handle("getinfo", func([]interface{}) (interface{}, *RPCError) {
			return map[string]interface{}{"version": 90300}, nil
		})
		a := stub.adapter(t, nil)

		_, err := a.BlockHeight(context.Background())
		require.ErrorContains(t, err, "neither blocks nor headers")
	})
}

func TestFullNodeAdapter_WalletVersion_Fallback(t *testing.T) {
	stub := newRPCStub(t)
	stub.handle("getinfo", func([]interface{}) (interface{}, *RPCError) {
		return map[string]interface{}{"version": 90300}, nil
	})
	a := stub.adapter(t, nil)

	version, err := a.WalletVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "90300", version)
	require.Equal(t, []string{"getnetworkinfo", "getinfo"}, stub.methods())
}

func TestFullNodeAdapter_IsLocked(t *testing.T) {
	serveWalletInfo := func(stub *rpcStub, info map[string]interface{}) {
		stub.handle("getwalletinfo", func([]interface{}) (interface{}, *RPCError) {
			return info, nil
		})
	}

	t.Run("unencrypted wallet is never locked", func(t *testing.T) {
		stub := newRPCStub(t)
		serveWalletInfo(stub, map[string]interface{}{"balance": 1.0})
		locked, err := stub.adapter(t, nil).IsLocked(context.Background())
		require.NoError(t, err)
		require.False(t, locked)
	})

	t.Run("encrypted without passphrase is locked", func(t *testing.T) {
		stub := newRPCStub(t)
		serveWalletInfo(stub, map[string]interface{}{"unlocked_until": 0})
		locked, err := stub.adapter(t, nil).IsLocked(context.Background())
		require.NoError(t, err)
		require.True(t, locked)
	})

	t.Run("encrypted with passphrase can be unlocked on demand", func(t *testing.T) {
		stub := newRPCStub(t)
		serveWalletInfo(stub, map[string]interface{}{"unlocked_until": 0})
		locked, err := stub.adapter(t, map[string]string{"spend_passphrase": "hunter2"}).IsLocked(context.Background())
		require.NoError(t, err)
		require.False(t, locked)
	})
}

func TestFullNodeAdapter_DoWithdrawals_Single(t *testing.T) {
	currency := testCurrency()
	stub := newRPCStub(t)
	stub.handle("sendtoaddress", func(params []interface{}) (interface{}, *RPCError) {
		require.Len(t, params, 3)
		require.Equal(t, "bc1qdest", params[0])
		require.Equal(t, 1.5, params[1])
		return "txid-abc", nil
	})
	stub.handle("getblockchaininfo", func([]interface{}) (interface{}, *RPCError) {
		return map[string]interface{}{"blocks": 500}, nil
	})
	stub.handle("gettransaction", func(params []interface{}) (interface{}, *RPCError) {
		require.Equal(t, "txid-abc", params[0])
		return map[string]interface{}{"fee": -0.0001}, nil
	})

	tx := pendingWithdrawal(currency, "bc1qdest", 150000000)
	a := stub.adapter(t, nil)
	require.NoError(t, a.DoWithdrawals(context.Background(), currency, []*entities.Transaction{tx}))

	require.Equal(t, entities.TxDone, tx.Status)
	require.Equal(t, "txid-abc", tx.TxID.String)
	require.EqualValues(t, 500, tx.Block.Int64)
	require.EqualValues(t, 10000, tx.ChainFee.Int64)
	require.Empty(t, tx.Error)
}

func TestFullNodeAdapter_DoWithdrawals_StringFallback(t *testing.T) {
	t.Run("retries exactly once with a fixed-point string", func(t *testing.T) {
		currency := testCurrency()
		stub := newRPCStub(t)
		stub.handle("sendtoaddress", func(params []interface{}) (interface{}, *RPCError) {
			if _, isFloat := params[1].(float64); isFloat {
				return nil, &RPCError{Code: -3, Message: "Invalid amount"}
			}
			require.Equal(t, "1.50000000", params[1])
			return "txid-fallback", nil
		})
		stub.handle("gettransaction", func([]interface{}) (interface{}, *RPCError) {
			return map[string]interface{}{}, nil
		})

		tx := pendingWithdrawal(currency, "bc1qdest", 150000000)
		a := stub.adapter(t, nil)
		require.NoError(t, a.DoWithdrawals(context.Background(), currency, []*entities.Transaction{tx}))

		require.Equal(t, entities.TxDone, tx.Status)
		require.Equal(t, "txid-fallback", tx.TxID.String)
		require.Equal(t, 2, stub.count("sendtoaddress"))
	})

	t.Run("never retries a third time", func(t *testing.T) {
		currency := testCurrency()
		stub := newRPCStub(t)
		stub.handle("sendtoaddress", func([]interface{}) (interface{}, *RPCError) {
			return nil, &RPCError{Code: -32602, Message: "expected type number"}
		})

		tx := pendingWithdrawal(currency, "bc1qdest", 150000000)
		a := stub.adapter(t, nil)
		require.NoError(t, a.DoWithdrawals(context.Background(), currency, []*entities.Transaction{tx}))

		require.Equal(t, entities.TxFailed, tx.Status)
		require.False(t, tx.TxID.Valid)
		require.Contains(t, tx.Error, "expected type number")
		require.Equal(t, 2, stub.count("sendtoaddress"))
	})

	t.Run("business errors are not retried", func(t *testing.T) {
		currency := testCurrency()
		stub := newRPCStub(t)
		stub.handle("sendtoaddress", func([]interface{}) (interface{}, *RPCError) {
			return nil, &RPCError{Code: -6, Message: "Insufficient funds"}
		})

		tx := pendingWithdrawal(currency, "bc1qdest", 150000000)
		a := stub.adapter(t, nil)
		require.NoError(t, a.DoWithdrawals(context.Background(), currency, []*entities.Transaction{tx}))

		require.Equal(t, entities.TxFailed, tx.Status)
		require.Contains(t, tx.Error, "Insufficient funds")
		require.Equal(t, 1, stub.count("sendtoaddress"))
	})
}

func TestFullNodeAdapter_DoWithdrawals_UnlockLockWindow(t *testing.T) {
	t.Run("spend happens inside the unlock window", func(t *testing.T) {
		currency := testCurrency()
		stub := newRPCStub(t)
		stub.handle("walletpassphrase", func(params []interface{}) (interface{}, *RPCError) {
			require.Equal(t, "hunter2", params[0])
			require.EqualValues(t, 60, params[1])
			return nil, nil
		})
		stub.handle("walletlock", func([]interface{}) (interface{}, *RPCError) { return nil, nil })
		stub.handle("sendtoaddress", func([]interface{}) (interface{}, *RPCError) { return "txid-1", nil })
		stub.handle("gettransaction", func([]interface{}) (interface{}, *RPCError) {
			return map[string]interface{}{}, nil
		})

		tx := pendingWithdrawal(currency, "bc1qdest", 100)
		a := stub.adapter(t, map[string]string{"spend_passphrase": "hunter2"})
		require.NoError(t, a.DoWithdrawals(context.Background(), currency, []*entities.Transaction{tx}))

		methods := stub.methods()
		require.Equal(t, "walletpassphrase", methods[0])
		require.Equal(t, "walletlock", methods[len(methods)-1])
		require.Equal(t, entities.TxDone, tx.Status)
	})

	t.Run("re-locks even when the spend fails", func(t *testing.T) {
		currency := testCurrency()
		stub := newRPCStub(t)
		stub.handle("walletpassphrase", func([]interface{}) (interface{}, *RPCError) { return nil, nil })
		stub.handle("walletlock", func([]interface{}) (interface{}, *RPCError) { return nil, nil })
		stub.handle("sendtoaddress", func([]interface{}) (interface{}, *RPCError) {
			return nil, &RPCError{Code: -6, Message: "Insufficient funds"}
		})

		tx := pendingWithdrawal(currency, "bc1qdest", 100)
		a := stub.adapter(t, map[string]string{"spend_passphrase": "hunter2"})
		require.NoError(t, a.DoWithdrawals(context.Background(), currency, []*entities.Transaction{tx}))

		require.Equal(t, entities.TxFailed, tx.Status)
		require.Equal(t, 1, stub.count("walletlock"))
		methods := stub.methods()
		require.Equal(t, "walletlock", methods[len(methods)-1])
	})

	t.Run("unlock failure fails the batch without spending", func(t *testing.T) {
		currency := testCurrency()
		stub := newRPCStub(t)
		stub.handle("walletpassphrase", func([]interface{}) (interface{}, *RPCError) {
			return nil, &RPCError{Code: -14, Message: "wallet passphrase incorrect"}
		})

		tx := pendingWithdrawal(currency, "bc1qdest", 100)
		a := stub.adapter(t, map[string]string{"spend_passphrase": "wrong"})
		require.NoError(t, a.DoWithdrawals(context.Background(), currency, []*entities.Transaction{tx}))

		require.Equal(t, entities.TxFailed, tx.Status)
		require.Contains(t, tx.Error, "wallet unlock failed")
		require.Zero(t, stub.count("sendtoaddress"))
		require.Zero(t, stub.count("walletlock"))
	})
}

func TestFullNodeAdapter_DoWithdrawals_Batch(t *testing.T) {
	t.Run("aggregates duplicate destinations through sendmany", func(t *testing.T) {
		currency := testCurrency()
		stub := newRPCStub(t)
		stub.handle("sendmany", func(params []interface{}) (interface{}, *RPCError) {
			require.Equal(t, "", params[0])
			outputs, ok := params[1].(map[string]interface{})
			require.True(t, ok)
			require.Len(t, outputs, 2)
			require.Equal(t, 0.00000300, outputs["bc1qone"])
			require.Equal(t, 0.00000100, outputs["bc1qtwo"])
			return "txid-batch", nil
		})
		stub.handle("getblockchaininfo", func([]interface{}) (interface{}, *RPCError) {
			return map[string]interface{}{"blocks": 900}, nil
		})
		stub.handle("gettransaction", func([]interface{}) (interface{}, *RPCError) {
			return map[string]interface{}{}, nil
		})

		txs := []*entities.Transaction{
			pendingWithdrawal(currency, "bc1qone", 100),
			pendingWithdrawal(currency, "bc1qtwo", 100),
			pendingWithdrawal(currency, "bc1qone", 200),
		}
		a := stub.adapter(t, nil)
		require.NoError(t, a.DoWithdrawals(context.Background(), currency, txs))

		for _, tx := range txs {
			require.Equal(t, entities.TxDone, tx.Status)
			require.Equal(t, "txid-batch", tx.TxID.String)
			require.EqualValues(t, 900, tx.Block.Int64)
		}
	})

	t.Run("failure is shared by the whole batch", func(t *testing.T) {
		currency := testCurrency()
		stub := newRPCStub(t)
		stub.handle("sendmany", func([]interface{}) (interface{}, *RPCError) {
			return nil, &RPCError{Code: -6, Message: "Insufficient funds"}
		})

		txs := []*entities.Transaction{
			pendingWithdrawal(currency, "bc1qone", 100),
			pendingWithdrawal(currency, "bc1qtwo", 200),
		}
		a := stub.adapter(t, nil)
		require.NoError(t, a.DoWithdrawals(context.Background(), currency, txs))

		for _, tx := range txs {
			require.Equal(t, entities.TxFailed, tx.Status)
			require.False(t, tx.TxID.Valid)
			require.Contains(t, tx.Error, "Insufficient funds")
		}
	})
}

func TestFullNodeAdapter_DoWithdrawals_RejectsBadBatches(t *testing.T) {
	currency := testCurrency()
	other := testCurrency()
	stub := newRPCStub(t)
	a := stub.adapter(t, nil)

	mixed := []*entities.Transaction{
		pendingWithdrawal(currency, "bc1qone", 100),
		pendingWithdrawal(other, "bc1qtwo", 100),
	}
	require.ErrorIs(t, a.DoWithdrawals(context.Background(), currency, mixed), domainerrors.ErrMixedBatch)

	done := pendingWithdrawal(currency, "bc1qone", 100)
	done.Status = entities.TxDone
	require.ErrorIs(t, a.DoWithdrawals(context.Background(), currency, []*entities.Transaction{done}), domainerrors.ErrNotPending)

	deposit := pendingWithdrawal(currency, "bc1qone", 100)
	deposit.Category = entities.TxDeposit
	deposit.Amount = 100
	require.ErrorIs(t, a.DoWithdrawals(context.Background(), currency, []*entities.Transaction{deposit}), domainerrors.ErrInvalidInput)

	// rejected before any backend traffic
	require.Empty(t, stub.methods())
}

func TestFullNodeAdapter_GetTransaction(t *testing.T) {
	currency := testCurrency()
	stub := newRPCStub(t)
	stub.handle("gettransaction", func(params []interface{}) (interface{}, *RPCError) {
		require.Equal(t, "txid-dep", params[0])
		return map[string]interface{}{
			"txid":          "txid-dep",
			"confirmations": 3,
			"blockhash":     "hash-1",
			"blockheight":   1200,
			"time":          1700000000,
			"fee":           -0.0002,
			"details": []map[string]interface{}{
				{"category": "receive", "address": "bc1qours", "amount": 0.5},
				{"category": "send", "address": "bc1qelse", "amount": -0.1},
			},
		}, nil
	})

	a := stub.adapter(t, nil)
	info, err := a.GetTransaction(context.Background(), currency, "txid-dep")
	require.NoError(t, err)
	require.Equal(t, "txid-dep", info.TxID)
	require.EqualValues(t, 3, info.Confirmations)
	require.EqualValues(t, 1200, info.Block.Int64)
	require.EqualValues(t, 20000, info.ChainFee)
	require.Len(t, info.Details, 2)
	require.Equal(t, DetailReceive, info.Details[0].Category)
	require.EqualValues(t, 50000000, info.Details[0].Amount)
	require.Equal(t, DetailSend, info.Details[1].Category)
	require.EqualValues(t, 10000000, info.Details[1].Amount)
}

func TestFullNodeAdapter_GetBlockAndHash(t *testing.T) {
	stub := newRPCStub(t)
	stub.handle("getblockhash", func(params []interface{}) (interface{}, *RPCError) {
		require.EqualValues(t, 1200, params[0])
		return "hash-1200", nil
	})
	stub.handle("getblock", func(params []interface{}) (interface{}, *RPCError) {
		require.Equal(t, "hash-1200", params[0])
		return map[string]interface{}{
			"hash":   "hash-1200",
			"height": 1200,
			"time":   1700000000,
			"tx":     []string{"txa", "txb"},
		}, nil
	})

	a := stub.adapter(t, nil)
	hash, err := a.GetBlockHash(context.Background(), 1200)
	require.NoError(t, err)
	require.Equal(t, "hash-1200", hash)

	block, err := a.GetBlock(context.Background(), hash)
	require.NoError(t, err)
	require.EqualValues(t, 1200, block.Height)
	require.Equal(t, []string{"txa", "txb"}, block.TxIDs)
	require.NotNil(t, block.Time)
}

func TestFullNodeAdapter_Balances(t *testing.T) {
	currency := testCurrency()
	stub := newRPCStub(t)
	stub.handle("getbalance", func([]interface{}) (interface{}, *RPCError) {
		return 2.5, nil
	})
	stub.handle("getwalletinfo", func([]interface{}) (interface{}, *RPCError) {
		return map[string]interface{}{"unconfirmed_balance": 0.25, "immature_balance": 0.05}, nil
	})

	a := stub.adapter(t, nil)
	hot, err := a.HotBalance(context.Background(), currency)
	require.NoError(t, err)
	require.EqualValues(t, 250000000, hot)

	locked, err := a.HotLockedBalance(context.Background(), currency)
	require.NoError(t, err)
	require.EqualValues(t, 30000000, locked)

	available, err := AvailableHotBalance(context.Background(), a, currency)
	require.NoError(t, err)
	require.EqualValues(t, 220000000, available)
}

func TestFullNodeAdapter_HotLockedBalance_LegacyFallback(t *testing.T) {
	currency := testCurrency()
	stub := newRPCStub(t)
	stub.handle("getwalletinfo", func([]interface{}) (interface{}, *RPCError) {
		return map[string]interface{}{"balance": 1.0}, nil
	})
	stub.handle("getunconfirmedbalance", func([]interface{}) (interface{}, *RPCError) {
		return 0.125, nil
	})

	a := stub.adapter(t, nil)
	locked, err := a.HotLockedBalance(context.Background(), currency)
	require.NoError(t, err)
	require.EqualValues(t, 12500000, locked)
	require.Equal(t, []string{"getwalletinfo", "getunconfirmedbalance"}, stub.methods())
}
