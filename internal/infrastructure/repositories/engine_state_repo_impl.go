package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"coinledger.backend/internal/domain/entities"
	"coinledger.backend/internal/infrastructure/models"
)

// engineStateID is the fixed primary key of the single state row.
const engineStateID = 1

// EngineStateRepository owns the single engine state record
type EngineStateRepository struct {
	db *gorm.DB
}

// NewEngineStateRepository creates a new engine state repository
func NewEngineStateRepository(db *gorm.DB) *EngineStateRepository {
	return &EngineStateRepository{db: db}
}

// Get returns the state record, creating the default on first use.
func (r *EngineStateRepository) Get(ctx context.Context) (*entities.EngineState, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)
	var m models.EngineState
	err := db.Where("id = ?", engineStateID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m = models.EngineState{ID: engineStateID, WithdrawalCursor: 0, UpdatedAt: time.Now()}
		if err := db.Create(&m).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return &entities.EngineState{
		ID:               m.ID,
		WithdrawalCursor: m.WithdrawalCursor,
		DepositCutoff:    m.DepositCutoff,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

// Save persists the state record.
func (r *EngineStateRepository) Save(ctx context.Context, state *entities.EngineState) error {
	return GetDB(ctx, r.db).WithContext(ctx).Model(&models.EngineState{}).
		Where("id = ?", engineStateID).
		Updates(map[string]interface{}{
			"withdrawal_cursor": state.WithdrawalCursor,
			"deposit_cutoff":    state.DepositCutoff,
			"updated_at":        time.Now(),
		}).Error
}
