package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Trainer-Console/server/internal/config"
	"Trainer-Console/server/internal/models"
)

const (
	defaultActionLimit = 50
	maxActionLimit     = 500
)

// MySQLStore keeps the action log.
type MySQLStore struct {
	db *gorm.DB
}

func NewMySQLStore(cfg config.MySQLConfig) (*MySQLStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return NewMySQLStoreWithDB(db)
}

// NewMySQLStoreWithDB migrates the schema on an already opened connection.
func NewMySQLStoreWithDB(db *gorm.DB) (*MySQLStore, error) {
	if err := db.AutoMigrate(&models.ActionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate action log: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordAction appends one row to the action log.
func (s *MySQLStore) RecordAction(ctx context.Context, record *models.ActionRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}
	return nil
}

// RecentActions returns the newest rows first.
func (s *MySQLStore) RecentActions(ctx context.Context, limit int) ([]models.ActionRecord, error) {
	limit = clampActionLimit(limit)

	var records []models.ActionRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	return records, nil
}

func clampActionLimit(limit int) int {
	if limit <= 0 {
		return defaultActionLimit
	}
	if limit > maxActionLimit {
		return maxActionLimit
	}
	return limit
}
