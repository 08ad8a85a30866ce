package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/infrastructure/models"
)

// CurrencyRepository implements currency data operations
type CurrencyRepository struct {
	db *gorm.DB
}

// NewCurrencyRepository creates a new currency repository
func NewCurrencyRepository(db *gorm.DB) *CurrencyRepository {
	return &CurrencyRepository{db: db}
}

// Create persists a new currency
func (r *CurrencyRepository) Create(ctx context.Context, c *entities.Currency) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m := toCurrencyModel(c)
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	c.ID = m.ID
	return nil
}

// Update persists currency changes
func (r *CurrencyRepository) Update(ctx context.Context, c *entities.Currency) error {
	m := toCurrencyModel(c)
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Currency{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"name":         m.Name,
			"symbol":       m.Symbol,
			"decimals":     m.Decimals,
			"pattern":      m.Pattern,
			"fee_deposit":  m.FeeDeposit,
			"fee_move":     m.FeeMove,
			"fee_withdraw": m.FeeWithdraw,
			"min_withdraw": m.MinWithdraw,
			"wallet_id":    m.WalletID,
			"enabled":      m.Enabled,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// GetByID gets a currency by ID with its wallet preloaded
func (r *CurrencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Currency, error) {
	var m models.Currency
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Preload("Wallet").
		Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toCurrencyEntity(&m), nil
}

// List returns currencies ordered by creation time.
func (r *CurrencyRepository) List(ctx context.Context, enabledOnly bool) ([]*entities.Currency, error) {
	q := GetDB(ctx, r.db).WithContext(ctx).Preload("Wallet").Order("created_at ASC")
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var ms []models.Currency
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.Currency, 0, len(ms))
	for i := range ms {
		c := toCurrencyEntity(&ms[i])
		if enabledOnly && c.Offline() {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func toCurrencyModel(c *entities.Currency) *models.Currency {
	return &models.Currency{
		ID:          c.ID,
		Name:        c.Name,
		Symbol:      c.Symbol,
		Decimals:    c.Decimals,
		Pattern:     c.Pattern,
		FeeDeposit:  c.FeeDeposit,
		FeeMove:     c.FeeMove,
		FeeWithdraw: c.FeeWithdraw,
		MinWithdraw: c.MinWithdraw,
		WalletID:    c.WalletID,
		Enabled:     c.Enabled,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toCurrencyEntity(m *models.Currency) *entities.Currency {
	c := &entities.Currency{
		ID:          m.ID,
		Name:        m.Name,
		Symbol:      m.Symbol,
		Decimals:    m.Decimals,
		Pattern:     m.Pattern,
		FeeDeposit:  m.FeeDeposit,
		FeeMove:     m.FeeMove,
		FeeWithdraw: m.FeeWithdraw,
		MinWithdraw: m.MinWithdraw,
		WalletID:    m.WalletID,
		Enabled:     m.Enabled,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Wallet != nil && m.Wallet.ID != uuid.Nil {
		c.Wallet = toWalletEntity(m.Wallet)
	}
	return c
}

func decodeWalletSettings(raw string) map[string]string {
	settings := map[string]string{}
	if raw != "" {
		// settings were validated when written; a decode failure here just
		// yields an empty bag and fails adapter construction downstream
		_ = json.Unmarshal([]byte(raw), &settings)
	}
	return settings
}
