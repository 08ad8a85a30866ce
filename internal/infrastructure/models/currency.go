package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Currency struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Name        string     `gorm:"type:varchar(100);not null"`
	Symbol      string     `gorm:"type:varchar(20);not null;uniqueIndex"`
	Decimals    int32      `gorm:"not null"`
	Pattern     string     `gorm:"type:varchar(50)"`
	FeeDeposit  int64      `gorm:"not null;default:0"`
	FeeMove     int64      `gorm:"not null;default:0"`
	FeeWithdraw int64      `gorm:"not null;default:0"`
	MinWithdraw int64      `gorm:"not null;default:0"`
	WalletID    *uuid.UUID `gorm:"type:uuid;index"` // Nullable
	Enabled     bool       `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`

	// Relations
	Wallet *Wallet `gorm:"foreignKey:WalletID;references:ID"`
}
