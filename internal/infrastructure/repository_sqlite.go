package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

// singletonID is the primary key of the settings and stats rows
const singletonID = 1

// SQLiteRepository implements HistoryRepository and SettingsRepository using SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.HistoryEntry{}, &domain.Stats{}, &domain.Settings{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Append stores an entry and drops everything older than the newest max entries
func (r *SQLiteRepository) Append(entry *domain.HistoryEntry, max int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if max <= 0 {
			return nil
		}

		newest := tx.Model(&domain.HistoryEntry{}).
			Select("id").
			Order("created_at DESC").
			Limit(max)
		return tx.Where("id NOT IN (?)", newest).Delete(&domain.HistoryEntry{}).Error
	})
}

// Recent returns up to limit entries, newest first
func (r *SQLiteRepository) Recent(limit int) ([]*domain.HistoryEntry, error) {
	var entries []*domain.HistoryEntry
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// Clear removes every history entry
func (r *SQLiteRepository) Clear() error {
	return r.db.Where("1 = 1").Delete(&domain.HistoryEntry{}).Error
}

// Count returns the number of stored entries
func (r *SQLiteRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.HistoryEntry{}).Count(&count).Error
	return count, err
}

// GetStats returns the aggregate counters, zeroed when none were saved
func (r *SQLiteRepository) GetStats() (*domain.Stats, error) {
	var stats domain.Stats
	err := r.db.First(&stats, singletonID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.Stats{ID: singletonID}, nil
		}
		return nil, err
	}
	return &stats, nil
}

// SaveStats upserts the aggregate counters
func (r *SQLiteRepository) SaveStats(stats *domain.Stats) error {
	row := *stats
	row.ID = singletonID
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// LoadSettings returns the stored settings, or nil when none were saved
func (r *SQLiteRepository) LoadSettings() (*domain.Settings, error) {
	var settings domain.Settings
	err := r.db.First(&settings, singletonID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

// SaveSettings upserts the settings row
func (r *SQLiteRepository) SaveSettings(settings *domain.Settings) error {
	row := settings.Clone()
	row.ID = singletonID
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
