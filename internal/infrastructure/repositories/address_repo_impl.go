package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"coinledger.backend/internal/domain/entities"
	domainerrors "coinledger.backend/internal/domain/errors"
	"coinledger.backend/internal/infrastructure/models"
)

// AddressRepository implements address data operations
type AddressRepository struct {
	db *gorm.DB
}

// NewAddressRepository creates a new address repository
func NewAddressRepository(db *gorm.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

// Create persists a new address
func (r *AddressRepository) Create(ctx context.Context, addr *entities.Address) error {
	if addr.ID == uuid.Nil {
		addr.ID = uuid.New()
	}
	m := toAddressModel(addr)
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	addr.ID = m.ID
	addr.CreatedAt = m.CreatedAt
	return nil
}

// GetByID gets an address by ID
func (r *AddressRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Address, error) {
	var m models.Address
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toAddressEntity(&m), nil
}

// Resolve looks up the (address, extra, type) identity within a currency.
func (r *AddressRepository) Resolve(ctx context.Context, currencyID uuid.UUID, address, extra string, typ entities.AddressType) (*entities.Address, error) {
	var m models.Address
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("currency_id = ? AND address = ? AND extra = ? AND type = ?", currencyID, address, extra, typ).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toAddressEntity(&m), nil
}

// Upsert returns the existing address for the identity or creates it.
func (r *AddressRepository) Upsert(ctx context.Context, addr *entities.Address) (*entities.Address, error) {
	existing, err := r.Resolve(ctx, addr.CurrencyID, addr.Address, addr.Extra, addr.Type)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}
	if err := r.Create(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// ListByUser lists a user's addresses of one type
func (r *AddressRepository) ListByUser(ctx context.Context, userID uuid.UUID, typ entities.AddressType) ([]*entities.Address, error) {
	var ms []models.Address
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, typ).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.Address, 0, len(ms))
	for i := range ms {
		out = append(out, toAddressEntity(&ms[i]))
	}
	return out, nil
}

func toAddressModel(a *entities.Address) *models.Address {
	return &models.Address{
		ID:         a.ID,
		Address:    a.Address,
		Extra:      a.Extra,
		Type:       string(a.Type),
		CurrencyID: a.CurrencyID,
		UserID:     a.UserID,
		Label:      a.Label,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func toAddressEntity(m *models.Address) *entities.Address {
	return &entities.Address{
		ID:         m.ID,
		Address:    m.Address,
		Extra:      m.Extra,
		Type:       entities.AddressType(m.Type),
		CurrencyID: m.CurrencyID,
		UserID:     m.UserID,
		Label:      m.Label,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
