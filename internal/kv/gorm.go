package kv

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// record is one row of the kv_records table. Version implements the
// optimistic compare-and-swap used by Update.
type record struct {
	Key     string `gorm:"primaryKey;size:255"`
	Value   []byte
	Version int64
}

func (record) TableName() string { return "kv_records" }

// Gorm is a Store backed by a SQL database through GORM. The SQLite driver
// covers the single-file local deployment, Postgres the hosted one.
type Gorm struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) a SQLite-backed store at path.
func OpenSQLite(path string) (*Gorm, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), gormConfig())
	if err != nil {
		return nil, err
	}
	return NewGorm(db)
}

// OpenPostgres opens (and migrates) a Postgres-backed store for dsn.
func OpenPostgres(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	return NewGorm(db)
}

// NewGorm wraps an existing GORM handle and ensures the schema exists.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, err
	}
	return &Gorm{db: db}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        time.Now,
	}
}

func (g *Gorm) Get(ctx context.Context, key string) ([]byte, error) {
	var r record
	if err := g.db.WithContext(ctx).First(&r, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.Value, nil
}

func (g *Gorm) Set(ctx context.Context, key string, value []byte) error {
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":   value,
				"version": gorm.Expr("version + 1"),
			}),
		}).
		Create(&record{Key: key, Value: value, Version: 1}).Error
}

func (g *Gorm) Delete(ctx context.Context, key string) error {
	return g.db.WithContext(ctx).Delete(&record{}, "key = ?", key).Error
}

func (g *Gorm) Update(ctx context.Context, key string, fn UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		var current record
		err := g.db.WithContext(ctx).First(&current, "key = ?", key).Error
		exists := true
		if errors.Is(err, gorm.ErrRecordNotFound) {
			exists = false
		} else if err != nil {
			return err
		}

		var old []byte
		if exists {
			old = current.Value
		}
		next, err := fn(old)
		if err != nil {
			return err
		}

		if !exists {
			err = g.db.WithContext(ctx).Create(&record{Key: key, Value: next, Version: 1}).Error
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Another writer created the key first; replay against it.
				continue
			}
			return err
		}

		res := g.db.WithContext(ctx).
			Model(&record{}).
			Where("key = ? AND version = ?", key, current.Version).
			Updates(map[string]interface{}{
				"value":   next,
				"version": current.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the version race.
			continue
		}
		return nil
	}
	return ErrConflict
}
