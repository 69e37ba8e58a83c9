package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQuery = 200 * time.Millisecond

type queryStartKey struct{}

// gormHook registers a before/after pair around one gorm processor
type gormHook struct {
	name      string
	operation string
	before    func(name string, fn func(*gorm.DB)) error
	after     func(name string, fn func(*gorm.DB), before string) error
}

func gormHooks(db *gorm.DB) []gormHook {
	cb := db.Callback()
	return []gormHook{
		{"create", "INSERT",
			func(n string, fn func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, fn) },
			func(n string, fn func(*gorm.DB), b string) error { return cb.Create().After("gorm:create").Before(b).Register(n, fn) }},
		{"query", "SELECT",
			func(n string, fn func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, fn) },
			func(n string, fn func(*gorm.DB), b string) error { return cb.Query().After("gorm:query").Before(b).Register(n, fn) }},
		{"update", "UPDATE",
			func(n string, fn func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, fn) },
			func(n string, fn func(*gorm.DB), b string) error { return cb.Update().After("gorm:update").Before(b).Register(n, fn) }},
		{"delete", "DELETE",
			func(n string, fn func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, fn) },
			func(n string, fn func(*gorm.DB), b string) error { return cb.Delete().After("gorm:delete").Before(b).Register(n, fn) }},
		{"row", "",
			func(n string, fn func(*gorm.DB)) error { return cb.Row().Before("gorm:row").Register(n, fn) },
			func(n string, fn func(*gorm.DB), b string) error { return cb.Row().After("gorm:row").Before(b).Register(n, fn) }},
		{"raw", "",
			func(n string, fn func(*gorm.DB)) error { return cb.Raw().Before("gorm:raw").Register(n, fn) },
			func(n string, fn func(*gorm.DB), b string) error { return cb.Raw().After("gorm:raw").Before(b).Register(n, fn) }},
	}
}

// registerTimed stamps the start time before every statement and calls after
// with the statement's operation once it finishes. Row and raw statements
// take their operation from the SQL text. A non-empty ahead names a callback
// prefix the after hook must run before
func registerTimed(db *gorm.DB, prefix, ahead string, after func(db *gorm.DB, operation string, elapsed time.Duration)) error {
	stamp := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
	}

	var err error
	for _, h := range gormHooks(db) {
		op := h.operation
		finish := func(db *gorm.DB) {
			operation := op
			if operation == "" {
				operation = detectOperationType(db.Statement.SQL.String())
			}
			after(db, operation, elapsedSince(db.Statement.Context))
		}
		err = multierr.Append(err, h.before(prefix+":before_"+h.name, stamp))
		var before string
		if ahead != "" {
			before = ahead + h.name
		}
		err = multierr.Append(err, h.after(prefix+":after_"+h.name, finish, before))
	}
	return err
}

func elapsedSince(ctx context.Context) time.Duration {
	if ctx == nil {
		return 0
	}
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}

func detectOperationType(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}

// DBTracingConfig controls otelgorm spans
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound variables in db.statement. Never enable it in
	// production, statements carry customer emails and phone numbers
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns tracing off with variables stripped
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: defaultSlowQuery,
		DBSystem:        "postgresql",
	}
}

// RegisterDBTracing installs otelgorm and annotates its spans with the
// table, rows affected, failures and a slow_query event
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQuery
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// otelgorm ends its span in "otel:after:<op>"
	err := registerTimed(db, "otel_span", "otel:after:", func(db *gorm.DB, _ string, elapsed time.Duration) {
		annotateQuerySpan(db, elapsed, cfg.SlowQueryThresh)
	})
	if err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func annotateQuerySpan(db *gorm.DB, elapsed, slow time.Duration) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
	if elapsed > slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", slow.Milliseconds()),
		))
	}
}

// DBMetricsConfig controls query and pool metrics
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DefaultDBMetricsConfig samples the pool every 15s
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: defaultSlowQuery,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics records query counts, latency, slow queries and pool usage
type DBMetrics struct {
	queries     *Counter
	latency     *Histogram
	slowQueries *Counter
	pool        *Gauge
	poolMax     *Gauge

	config DBMetricsConfig
	logger *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDBMetrics creates the instruments on meter
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaultSlowQuery
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	m := &DBMetrics{config: cfg, logger: logger, stop: make(chan struct{})}
	var err, e error
	m.queries, e = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}")
	err = multierr.Append(err, e)
	m.latency, e = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	err = multierr.Append(err, e)
	m.slowQueries, e = NewCounter(meter, "db_slow_query_total", "Queries slower than the threshold by table", "{query}")
	err = multierr.Append(err, e)
	m.pool, e = NewGauge(meter, "db_pool_connections", "Pool connections by state", "{connection}")
	err = multierr.Append(err, e)
	m.poolMax, e = NewGauge(meter, "db_pool_connections_max", "Pool connection limit", "{connection}")
	err = multierr.Append(err, e)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery records one finished statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, elapsed time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "OTHER"
	}
	m.queries.Inc(ctx, AttrDBOperation.String(operation))
	m.latency.RecordDuration(ctx, elapsed, AttrDBOperation.String(operation))
	if elapsed > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueries.Inc(ctx, AttrDBTable.String(table))
	}
}

// RecordPoolStats records the current pool state
func (m *DBMetrics) RecordPoolStats(ctx context.Context, stats sql.DBStats) {
	m.poolMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.pool.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.pool.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.pool.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// WatchPool samples sqlDB until ctx ends or Stop is called
func (m *DBMetrics) WatchPool(ctx context.Context, sqlDB *sql.DB) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.RecordPoolStats(ctx, sqlDB.Stats())
		for {
			select {
			case <-ticker.C:
				m.RecordPoolStats(ctx, sqlDB.Stats())
			case <-m.stop:
				m.logger.Debug("Pool stats collection stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends pool sampling. Safe to call more than once
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.wg.Wait()
	})
}

// RegisterDBMetrics hooks query metrics into db and starts pool sampling.
// It returns nil metrics when either metrics or the meter provider is off
func RegisterDBMetrics(ctx context.Context, db *gorm.DB, mp *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled || mp == nil || !mp.IsEnabled() {
		return nil, nil
	}

	m, err := NewDBMetrics(mp.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	err = registerTimed(db, "db_metrics", "", func(db *gorm.DB, operation string, elapsed time.Duration) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		m.RecordQuery(ctx, operation, db.Statement.Table, elapsed)
	})
	if err != nil {
		return nil, err
	}

	m.WatchPool(ctx, sqlDB)
	logger.Info("Database metrics registered", zap.Duration("pool_stats_interval", m.config.PoolStatsInterval))
	return m, nil
}
