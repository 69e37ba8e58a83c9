package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/config"
	"github.com/wellnest/backend/internal/infrastructure/retry"
)

// Database is the gorm handle shared by every repository. It also manages
// transactions: repositories handed the ctx from Transaction join it.
type Database struct {
	DB *gorm.DB
}

var _ shared.TxManager = (*Database)(nil)

// Open connects to PostgreSQL and applies the pool limits from cfg. The
// initial connect is retried by retrier so the API can start alongside a
// database that is still booting.
func Open(ctx context.Context, cfg *config.DatabaseConfig, log gormlogger.Interface, retrier *retry.Retrier) (*Database, error) {
	if log == nil {
		log = gormlogger.Discard
	}
	db, err := retry.Value(ctx, retrier, "postgres.connect", func(ctx context.Context) (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger:                 log,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
			TranslateError:         true,
		})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	d := &Database{DB: db}
	if err := d.configurePool(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// NewDatabaseFromGorm wraps an already opened connection
func NewDatabaseFromGorm(db *gorm.DB) *Database {
	return &Database{DB: db}
}

func (d *Database) sqlDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return sqlDB, nil
}

func (d *Database) configurePool(cfg *config.DatabaseConfig) error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping backs the readiness check
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type txKey struct{}

// Transaction runs fn in one database transaction. A call made with a ctx
// that already carries a transaction reuses it instead of nesting.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx, or db bound to ctx
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// inTx runs fn in the ambient transaction, or opens one
func inTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(tx)
	}
	return db.WithContext(ctx).Transaction(fn)
}
