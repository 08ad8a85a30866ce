package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Address struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Address    string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_addr_identity"`
	Extra      string     `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_addr_identity"`
	Type       string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_addr_identity"`
	CurrencyID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_addr_identity"`
	UserID     *uuid.UUID `gorm:"type:uuid;index"` // Nullable until claimed
	Label      string     `gorm:"type:varchar(255)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`

	// Relations
	Currency Currency `gorm:"foreignKey:CurrencyID;references:ID"`
}
