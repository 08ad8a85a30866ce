package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Wallet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Kind      string    `gorm:"type:varchar(20);not null"`
	Settings  string    `gorm:"type:text;not null;default:'{}'"` // JSON settings bag, validated by the adapter schema
	Enabled   bool      `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// WalletState carries the engine-owned incremental-scan cursor per wallet.
type WalletState struct {
	WalletID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastScrapedHeight *int64
	UpdatedAt         time.Time
}

// EngineState is the single engine-owned state row (id = 1).
type EngineState struct {
	ID               int `gorm:"primaryKey"`
	WithdrawalCursor int `gorm:"not null;default:0"`
	DepositCutoff    *time.Time
	UpdatedAt        time.Time
}
