package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"lendingrisk/native/lending"
)

var (
	// ErrNotFound is returned when no snapshot exists for the requested key.
	ErrNotFound = errors.New("riskd storage: snapshot not found")
	// ErrDSNRequired is returned when the backing store DSN is missing.
	ErrDSNRequired = errors.New("riskd storage: dsn must be configured")

	errUnsupportedDriver = errors.New("riskd storage: unsupported driver")
	errEmptyMarket       = errors.New("riskd storage: market has no reserves")
)

// Store persists market and user snapshots keyed by epoch.
type Store interface {
	PutMarket(ctx context.Context, market lending.Market) error
	Market(ctx context.Context, epoch uint64) (lending.Market, error)
	PutUser(ctx context.Context, user lending.UserPositionSnapshot) error
	User(ctx context.Context, epoch uint64, user string) (lending.UserPositionSnapshot, error)
	Close() error
}

// Storage is the gorm-backed Store.
type Storage struct {
	db *gorm.DB
}

// Open connects to the configured driver and migrates the schema.
func Open(driver, dsn string) (*Storage, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrDSNRequired
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres":
		dialector = postgres.Open(trimmed)
	case "sqlite", "":
		fileDSN, err := FileDSN(trimmed)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Open(fileDSN)
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB) (*Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if err := db.AutoMigrate(&ReserveRecord{}, &UserRecord{}); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases database resources.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PutMarket replaces every reserve stored for the market epoch.
func (s *Storage) PutMarket(ctx context.Context, market lending.Market) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	if len(market.Reserves) == 0 {
		return errEmptyMarket
	}
	records := make([]ReserveRecord, 0, len(market.Reserves))
	for _, reserve := range market.Reserves {
		payload, err := json.Marshal(reserve)
		if err != nil {
			return fmt.Errorf("encode reserve %s: %w", reserve.Asset, err)
		}
		records = append(records, ReserveRecord{
			ID:      uuid.New(),
			Epoch:   market.Epoch,
			Asset:   normalizeKey(reserve.Asset),
			Symbol:  strings.TrimSpace(reserve.Symbol),
			Payload: string(payload),
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("epoch = ?", market.Epoch).Delete(&ReserveRecord{}).Error; err != nil {
			return fmt.Errorf("clear reserves: %w", err)
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("insert reserves: %w", err)
		}
		return nil
	})
}

// Market loads every reserve recorded for epoch, ordered by asset.
func (s *Storage) Market(ctx context.Context, epoch uint64) (lending.Market, error) {
	if s == nil {
		return lending.Market{}, fmt.Errorf("storage not configured")
	}
	var records []ReserveRecord
	if err := s.db.WithContext(ctx).Where("epoch = ?", epoch).Order("asset").Find(&records).Error; err != nil {
		return lending.Market{}, fmt.Errorf("query reserves: %w", err)
	}
	if len(records) == 0 {
		return lending.Market{}, fmt.Errorf("%w: market at epoch %d", ErrNotFound, epoch)
	}
	market := lending.Market{Epoch: epoch, Reserves: make([]lending.ReserveSnapshot, 0, len(records))}
	for _, record := range records {
		var reserve lending.ReserveSnapshot
		if err := json.Unmarshal([]byte(record.Payload), &reserve); err != nil {
			return lending.Market{}, fmt.Errorf("decode reserve %s: %w", record.Asset, err)
		}
		market.Reserves = append(market.Reserves, reserve)
	}
	return market, nil
}

// PutUser inserts or replaces the user's snapshot for its epoch.
func (s *Storage) PutUser(ctx context.Context, user lending.UserPositionSnapshot) error {
	if s == nil {
		return fmt.Errorf("storage not configured")
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user %s: %w", user.User, err)
	}
	record := UserRecord{
		ID:           uuid.New(),
		Epoch:        user.Epoch,
		Account:      normalizeKey(user.User),
		HealthFactor: user.HealthFactor.String(),
		Payload:      string(payload),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "epoch"}, {Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"health_factor", "payload", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// User loads the user's snapshot for epoch.
func (s *Storage) User(ctx context.Context, epoch uint64, user string) (lending.UserPositionSnapshot, error) {
	if s == nil {
		return lending.UserPositionSnapshot{}, fmt.Errorf("storage not configured")
	}
	var record UserRecord
	err := s.db.WithContext(ctx).Where("epoch = ? AND account = ?", epoch, normalizeKey(user)).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return lending.UserPositionSnapshot{}, fmt.Errorf("%w: user %s at epoch %d", ErrNotFound, user, epoch)
	}
	if err != nil {
		return lending.UserPositionSnapshot{}, fmt.Errorf("query user: %w", err)
	}
	var snapshot lending.UserPositionSnapshot
	if err := json.Unmarshal([]byte(record.Payload), &snapshot); err != nil {
		return lending.UserPositionSnapshot{}, fmt.Errorf("decode user %s: %w", record.Account, err)
	}
	return snapshot, nil
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
