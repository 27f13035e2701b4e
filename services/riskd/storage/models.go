package storage

import (
	"time"

	"github.com/google/uuid"
)

// ReserveRecord stores one reserve snapshot of an epoch. The snapshot itself
// is kept as JSON so decimal precision survives every backend.
type ReserveRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Epoch     uint64    `gorm:"not null;uniqueIndex:idx_reserve_epoch_asset"`
	Asset     string    `gorm:"not null;size:128;uniqueIndex:idx_reserve_epoch_asset"`
	Symbol    string    `gorm:"size:32"`
	Payload   string    `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// UserRecord stores one user position snapshot of an epoch.
type UserRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Epoch        uint64    `gorm:"not null;uniqueIndex:idx_user_epoch_account"`
	Account      string    `gorm:"not null;size:128;uniqueIndex:idx_user_epoch_account"`
	HealthFactor string    `gorm:"size:80"`
	Payload      string    `gorm:"type:text;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ReserveRecord) TableName() string { return "risk_reserves" }

func (UserRecord) TableName() string { return "risk_users" }
