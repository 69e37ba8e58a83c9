package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func statement() (string, int64) {
	return `SELECT * FROM "products" WHERE slug = 'neem-capsules'`, 1
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-9")

	cases := []struct {
		name    string
		level   gormlogger.LogLevel
		elapsed time.Duration
		err     error
		want    string
	}{
		{"error", gormlogger.Error, 0, errors.New("deadlock detected"), "SQL error"},
		{"not found is quiet", gormlogger.Info, 0, gormlogger.ErrRecordNotFound, "SQL"},
		{"slow", gormlogger.Warn, time.Second, nil, "Slow SQL"},
		{"fast at warn", gormlogger.Warn, 0, nil, ""},
		{"every statement at info", gormlogger.Info, 0, nil, "SQL"},
		{"silent", gormlogger.Silent, time.Second, errors.New("boom"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			l := NewGormLogger(zap.New(core), tc.level, WithSlowThreshold(100*time.Millisecond))

			l.Trace(ctx, time.Now().Add(-tc.elapsed), statement, tc.err)

			if tc.want == "" {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tc.want, entry.Message)
			assert.Equal(t, "gorm", entry.LoggerName)
			assert.Equal(t, "req-9", entry.ContextMap()["request_id"])
		})
	}
}

func TestGormLogger_SlowThresholdDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(0))

	l.Trace(context.Background(), time.Now().Add(-time.Minute), statement, nil)
	assert.Zero(t, logs.Len())
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), gormlogger.Silent)

	loud := l.LogMode(gormlogger.Info)
	loud.Info(context.Background(), "migrated %d tables", 9)
	l.Info(context.Background(), "not logged")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "migrated 9 tables", logs.All()[0].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("verbose"))
}
