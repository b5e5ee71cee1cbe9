package database

import (
	"context"
	"fmt"

	"trading-journal/internal/config"
	"trading-journal/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the trades table. Existing rows are kept.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Trade{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Store keeps trades in the local SQLite database. It serves as a trade
// source when the journal runs offline and as the target of the mirror.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Name identifies the store as a trade source.
func (s *Store) Name() string {
	return config.SourceLocal
}

// ListTrades returns every stored trade, newest open date first.
func (s *Store) ListTrades(ctx context.Context) ([]models.Trade, error) {
	trades := make([]models.Trade, 0)
	if err := s.db.WithContext(ctx).Order("open_date desc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// InsertTrade stores a new trade, assigning an id when it has none.
func (s *Store) InsertTrade(ctx context.Context, trade models.Trade) (models.Trade, error) {
	if trade.ID == "" {
		trade.ID = models.ID(uuid.NewString())
	}
	if err := s.db.WithContext(ctx).Create(&trade).Error; err != nil {
		return models.Trade{}, fmt.Errorf("failed to insert trade: %w", err)
	}
	return trade, nil
}

// DeleteTrade removes a trade by id. It returns models.ErrTradeNotFound when
// nothing matched.
func (s *Store) DeleteTrade(ctx context.Context, id models.ID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Trade{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete trade %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to delete trade %s: %w", id, models.ErrTradeNotFound)
	}
	return nil
}

// ReplaceAll swaps the stored trades for the given set in one transaction.
// Trades without an id are skipped, since they cannot be matched later.
func (s *Store) ReplaceAll(ctx context.Context, trades []models.Trade) (int, error) {
	kept := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.ID != "" {
			kept = append(kept, t)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Trade{}).Error; err != nil {
			return fmt.Errorf("failed to clear trades: %w", err)
		}
		if len(kept) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(kept, 100).Error; err != nil {
			return fmt.Errorf("failed to store trades: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(kept), nil
}

// Count returns the number of stored trades.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Trade{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return n, nil
}
