package wallet

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"coinledger.backend/internal/domain/entities"
)

// Factory constructs and caches one adapter per wallet. Settings are
// validated at construction, so a misconfigured wallet fails on first use
// rather than mid-batch.
type Factory struct {
	adapters map[uuid.UUID]Adapter
	mu       sync.RWMutex
}

// NewFactory creates a new adapter factory
func NewFactory() *Factory {
	return &Factory{adapters: make(map[uuid.UUID]Adapter)}
}

// Get returns the cached adapter for the wallet, constructing it on first use.
func (f *Factory) Get(w *entities.Wallet) (Adapter, error) {
	f.mu.RLock()
	a, ok := f.adapters[w.ID]
	f.mu.RUnlock()
	if ok {
		return a, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if a, ok := f.adapters[w.ID]; ok {
		return a, nil
	}

	a, err := build(w)
	if err != nil {
		return nil, fmt.Errorf("wallet %s (%s): %w", w.Name, w.Kind, err)
	}
	f.adapters[w.ID] = a
	return a, nil
}

// Register injects/overrides the cached adapter for a wallet.
// Useful for deterministic unit tests.
func (f *Factory) Register(walletID uuid.UUID, a Adapter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adapters[walletID] = a
}

// Evict drops the cached adapter, forcing reconstruction on next use.
// Called after a wallet's settings change.
func (f *Factory) Evict(walletID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.adapters, walletID)
}

func build(w *entities.Wallet) (Adapter, error) {
	switch w.Kind {
	case entities.AdapterFullNode:
		return NewFullNodeAdapter(w.Settings)
	case entities.AdapterEVM:
		return NewEVMAdapter(w.Settings)
	case entities.AdapterManual:
		return NewManualAdapter(w.Settings)
	default:
		return nil, fmt.Errorf("unknown adapter kind %q", w.Kind)
	}
}
