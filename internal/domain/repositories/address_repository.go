package repositories

import (
	"context"

	"github.com/google/uuid"
	"coinledger.backend/internal/domain/entities"
)

// AddressRepository defines address data operations
type AddressRepository interface {
	Create(ctx context.Context, addr *entities.Address) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Address, error)

	// Resolve looks up the address by its (address, extra, type) identity
	// within one currency. Returns domain ErrNotFound when unknown.
	Resolve(ctx context.Context, currencyID uuid.UUID, address, extra string, typ entities.AddressType) (*entities.Address, error)

	// Upsert returns the existing address for the identity or creates it.
	Upsert(ctx context.Context, addr *entities.Address) (*entities.Address, error)

	ListByUser(ctx context.Context, userID uuid.UUID, typ entities.AddressType) ([]*entities.Address, error)
}
