package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/infrastructure/models"
)

// WalletRepository implements wallet and scan-state data operations
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create persists a new wallet
func (r *WalletRepository) Create(ctx context.Context, w *entities.Wallet) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	m, err := toWalletModel(w)
	if err != nil {
		return err
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	w.ID = m.ID
	return nil
}

// Update persists wallet changes
func (r *WalletRepository) Update(ctx context.Context, w *entities.Wallet) error {
	m, err := toWalletModel(w)
	if err != nil {
		return err
	}
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", w.ID).
		Updates(map[string]interface{}{
			"name":       m.Name,
			"kind":       m.Kind,
			"settings":   m.Settings,
			"enabled":    m.Enabled,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// GetByID gets a wallet by ID
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	var m models.Wallet
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toWalletEntity(&m), nil
}

// List returns all wallets
func (r *WalletRepository) List(ctx context.Context) ([]*entities.Wallet, error) {
	var ms []models.Wallet
	if err := GetDB(ctx, r.db).WithContext(ctx).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.Wallet, 0, len(ms))
	for i := range ms {
		out = append(out, toWalletEntity(&ms[i]))
	}
	return out, nil
}

// GetState returns the wallet's scan state, ErrNotFound before first use.
func (r *WalletRepository) GetState(ctx context.Context, walletID uuid.UUID) (*entities.WalletState, error) {
	var m models.WalletState
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("wallet_id = ?", walletID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return &entities.WalletState{
		WalletID:          m.WalletID,
		LastScrapedHeight: null.Int64FromPtr(m.LastScrapedHeight),
		UpdatedAt:         m.UpdatedAt,
	}, nil
}

// SaveState upserts the wallet's scan state.
func (r *WalletRepository) SaveState(ctx context.Context, state *entities.WalletState) error {
	m := &models.WalletState{
		WalletID:  state.WalletID,
		UpdatedAt: time.Now(),
	}
	if state.LastScrapedHeight.Valid {
		v := state.LastScrapedHeight.Int64
		m.LastScrapedHeight = &v
	}
	db := GetDB(ctx, r.db).WithContext(ctx)
	result := db.Model(&models.WalletState{}).
		Where("wallet_id = ?", state.WalletID).
		Updates(map[string]interface{}{
			"last_scraped_height": m.LastScrapedHeight,
			"updated_at":          m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return db.Create(m).Error
	}
	return nil
}

func toWalletModel(w *entities.Wallet) (*models.Wallet, error) {
	settings := w.Settings
	if settings == nil {
		settings = map[string]string{}
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	return &models.Wallet{
		ID:        w.ID,
		Name:      w.Name,
		Kind:      string(w.Kind),
		Settings:  string(raw),
		Enabled:   w.Enabled,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}, nil
}

func toWalletEntity(m *models.Wallet) *entities.Wallet {
	return &entities.Wallet{
		ID:        m.ID,
		Name:      m.Name,
		Kind:      entities.AdapterKind(m.Kind),
		Settings:  decodeWalletSettings(m.Settings),
		Enabled:   m.Enabled,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
