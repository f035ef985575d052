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

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	const stmt = "UPDATE expenses SET is_finalized = true"

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		message string
		zlevel  zapcore.Level
	}{
		{"query at info", gormlogger.Info, time.Now(), nil, "SQL Query", zapcore.DebugLevel},
		{"error", gormlogger.Warn, time.Now(), errors.New("deadlock"), "SQL Error", zapcore.ErrorLevel},
		{"slow", gormlogger.Warn, time.Now().Add(-time.Second), nil, "SLOW SQL", zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level)

			gl.Trace(WithRequestID(context.Background(), "r-1"), tt.begin, sqlFn(stmt, 3), tt.err)

			entries := recorded.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.message, entries[0].Message)
			assert.Equal(t, tt.zlevel, entries[0].Level)
			assert.Equal(t, "r-1", entries[0].ContextMap()["request_id"])
			assert.Equal(t, stmt, entries[0].ContextMap()["sql"])
		})
	}
}

func TestGormLogger_SkipsRecordNotFoundAndSilent(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)

	gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
	gl.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), errors.New("x"))

	assert.Zero(t, recorded.Len())
}

func TestGormLogger_WithoutSQL(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSQL(false), WithSlowThreshold(0))

	gl.Trace(context.Background(), time.Now().Add(-time.Hour), sqlFn("SELECT secret", 1), nil)

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SQL Query", entries[0].Message)
	_, ok := entries[0].ContextMap()["sql"]
	assert.False(t, ok)
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)
	other := gl.LogMode(gormlogger.Error).(*GormLogger)

	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, gormlogger.Error, other.level)
}

func TestGormLogger_Printf(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)

	gl.Info(context.Background(), "hidden %d", 1)
	gl.Warn(context.Background(), "warned %d", 2)
	gl.Error(context.Background(), "failed %s", "x")

	require.Equal(t, 2, recorded.Len())
	assert.Equal(t, "warned 2", recorded.All()[0].Message)
	assert.Equal(t, "failed x", recorded.All()[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("other"))
}
