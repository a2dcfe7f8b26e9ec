package store

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soonab/Soonab-sub000/schema"
)

const gormLogPrefix = "gorm"

type gormDB struct {
	db   *gorm.DB
	inTx bool
}

// NewGormStore wraps an open gorm connection and migrates the tables.
func NewGormStore(db *gorm.DB) (Store, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return &gormDB{db: db}, nil
}

// OpenGormStore opens a postgres or sqlite database.
func OpenGormStore(driver, dsn string) (Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, ErrUnknownDriver
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.WithFields(log.Fields{
			"prefix": gormLogPrefix,
			"driver": driver,
			"error":  err,
		}).Error("open database")
		return nil, err
	}

	if driver == "sqlite" {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return NewGormStore(db)
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Rating{},
		&schema.Score{},
		&schema.Activity{},
		&schema.BrigadeFlag{},
		&schema.ScoreRecord{},
	)
}

func (g *gormDB) conn(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

func (g *gormDB) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if g.inTx {
		return ErrNestedTx
	}
	return g.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormDB{db: tx, inTx: true})
	})
}

func (g *gormDB) Close(_ context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
