package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Transaction struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Category   string     `gorm:"type:varchar(20);not null;index"`
	Status     string     `gorm:"type:varchar(20);not null;index"`
	UserID     *uuid.UUID `gorm:"type:uuid;index"`
	CurrencyID uuid.UUID  `gorm:"type:uuid;not null;index"`
	AddressID  *uuid.UUID `gorm:"type:uuid;index"`
	Amount     int64      `gorm:"not null"`
	Fee        int64      `gorm:"not null;default:0"`
	ChainFee   *int64
	TxID       *string `gorm:"type:varchar(255);index"`
	Block      *int64
	Timestamp  *time.Time
	ParentID   *uuid.UUID `gorm:"type:uuid;index"`
	Comment    string     `gorm:"type:text"`
	Error      string     `gorm:"type:text"`
	Nonce      string     `gorm:"type:varchar(64);index"`
	Tags       string     `gorm:"type:text;not null;default:''"` // comma-joined tag set
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`

	// Relations
	Currency Currency `gorm:"foreignKey:CurrencyID;references:ID"`
	Address  *Address `gorm:"foreignKey:AddressID;references:ID"`
}
