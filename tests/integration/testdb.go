// Package integration runs the storefront against a real PostgreSQL started
// with testcontainers and migrated with the embedded schema migrations.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/infrastructure/logger"
	"github.com/wellnest/backend/internal/infrastructure/migration"
	"github.com/wellnest/backend/internal/infrastructure/persistence"
	"github.com/wellnest/backend/migrations"
)

// templateDB is migrated once per package run; every test clones it.
const templateDB = "wellnest_template"

var (
	pgMu        sync.Mutex
	pgContainer testcontainers.Container
	pgBaseURL   *url.URL
	dbSeq       atomic.Int64
)

// TestDB is a private, freshly migrated database for one test.
type TestDB struct {
	DB   *gorm.DB
	Name string
	t    *testing.T
}

// NewTestDB clones the migrated template into a new database and drops it
// when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	base := ensureContainer(t)

	name := fmt.Sprintf("wellnest_t%d", dbSeq.Add(1))
	admin := openSQL(t, withDatabase(base, "postgres"))
	defer admin.Close()
	_, err := admin.Exec(fmt.Sprintf(`CREATE DATABASE %s TEMPLATE %s`, name, templateDB))
	require.NoError(t, err, "clone template database")

	db := openGorm(t, withDatabase(base, name))
	tdb := &TestDB{DB: db, Name: name, t: t}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		admin := openSQL(t, withDatabase(base, "postgres"))
		defer admin.Close()
		if _, err := admin.Exec(fmt.Sprintf(`DROP DATABASE IF EXISTS %s WITH (FORCE)`, name)); err != nil {
			t.Logf("drop %s: %v", name, err)
		}
	})
	return tdb
}

// Database wraps the connection the way the server does, so repositories and
// transactions behave as in production.
func (tdb *TestDB) Database() *persistence.Database {
	return persistence.NewDatabaseFromGorm(tdb.DB)
}

// SeedProduct stores a listed product with the given stock.
func (tdb *TestDB) SeedProduct(p *catalog.Product) *catalog.Product {
	tdb.t.Helper()
	require.NoError(tdb.t, persistence.NewGormProductRepository(tdb.DB).Save(context.Background(), p))
	return p
}

// StockOf reads a product's stock straight from the table.
func (tdb *TestDB) StockOf(p *catalog.Product) int {
	tdb.t.Helper()
	var stock int
	require.NoError(tdb.t, tdb.DB.Raw(`SELECT stock FROM products WHERE id = ?`, p.ID).Scan(&stock).Error)
	return stock
}

// TerminateContainer stops the package's PostgreSQL. Call it from TestMain.
func TerminateContainer() {
	pgMu.Lock()
	defer pgMu.Unlock()
	if pgContainer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = pgContainer.Terminate(ctx)
	pgContainer, pgBaseURL = nil, nil
}

func ensureContainer(t *testing.T) *url.URL {
	t.Helper()
	pgMu.Lock()
	defer pgMu.Unlock()
	if pgContainer != nil {
		return pgBaseURL
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(templateDB),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("wellnest"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err == nil {
		pgBaseURL, err = url.Parse(dsn)
	}
	if err != nil {
		_ = container.Terminate(ctx)
		require.NoError(t, err, "postgres dsn")
	}

	tmpl := openSQL(t, pgBaseURL)
	m, err := migration.New(tmpl, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(), "migrate template")
	_ = m.Close()
	// a template cannot be cloned while anyone is connected to it
	_ = tmpl.Close()

	pgContainer = container
	return pgBaseURL
}

func withDatabase(base *url.URL, name string) *url.URL {
	u := *base
	u.Path = "/" + name
	return &u
}

func openSQL(t *testing.T, u *url.URL) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", u.String())
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	return db
}

func openGorm(t *testing.T, u *url.URL) *gorm.DB {
	t.Helper()
	level := gormlogger.Warn
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(u.String()), &gorm.Config{
		Logger:         logger.NewGormLogger(zaptest.NewLogger(t), level),
		TranslateError: true,
	})
	require.NoError(t, err, "connect to %s", u.Path)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db
}
