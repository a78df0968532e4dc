// Package alias persists display-name overrides for counterparts. Aliases
// live only on this node and have no server-side representation.
package alias

import (
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type record struct {
	CounterpartID string `gorm:"primaryKey"`
	Alias         string
	UpdatedAt     time.Time
}

func (record) TableName() string { return "aliases" }

// Store is a small key-value table: counterpart id -> alias.
// Writes are last-write-wins.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the sqlite file at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get returns the alias for a counterpart, or "" when none is stored.
func (s *Store) Get(counterpartID string) (string, error) {
	var r record
	err := s.db.First(&r, "counterpart_id = ?", counterpartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return r.Alias, nil
}

// Set stores or replaces the alias for a counterpart.
func (s *Store) Set(counterpartID, alias string) error {
	r := record{CounterpartID: counterpartID, Alias: alias, UpdatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "counterpart_id"}},
		UpdateAll: true,
	}).Create(&r).Error
}

// Remove drops the alias. Removing a missing alias is a no-op.
func (s *Store) Remove(counterpartID string) error {
	return s.db.Delete(&record{}, "counterpart_id = ?", counterpartID).Error
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
