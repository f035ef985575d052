package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBInstrumentationConfig configures GORM tracing and query metrics.
type DBInstrumentationConfig struct {
	TracingEnabled  bool
	LogFullSQL      bool          // keep bound variables in span statements
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string        // default postgresql
	Meter           metric.Meter  // nil disables query metrics
}

type queryStartKey struct{}

type dbInstrumentation struct {
	cfg         DBInstrumentationConfig
	queryTotal  *Counter
	slowTotal   *Counter
	queryLength *Histogram
}

// InstrumentDB registers otelgorm and the slow-query and metrics callbacks
// on db.
func InstrumentDB(db *gorm.DB, cfg DBInstrumentationConfig, logger *zap.Logger) error {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	in := &dbInstrumentation{cfg: cfg}

	if cfg.Meter != nil {
		var err error
		if in.queryTotal, err = NewCounter(cfg.Meter, "db_query_total", "Database queries by operation and table", "{queries}"); err != nil {
			return err
		}
		if in.slowTotal, err = NewCounter(cfg.Meter, "db_slow_query_total", "Queries slower than the threshold", "{queries}"); err != nil {
			return err
		}
		if in.queryLength, err = NewHistogram(cfg.Meter, HistogramOpts{
			Name:        "db_query_duration_seconds",
			Description: "Database query latency",
			Unit:        "s",
			Boundaries:  DBDurationBuckets,
		}); err != nil {
			return err
		}
	}

	if !cfg.TracingEnabled && cfg.Meter == nil {
		return nil
	}

	if cfg.TracingEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}
	if err := in.register(db); err != nil {
		return err
	}

	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.TracingEnabled),
		zap.Bool("metrics", cfg.Meter != nil),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func (in *dbInstrumentation) register(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.before("coridor:before_"+s.op, in.before); err != nil {
			return err
		}
		op := s.op
		if err := s.after("coridor:after_"+s.op, func(tx *gorm.DB) { in.after(tx, op) }); err != nil {
			return err
		}
	}
	return nil
}

func (in *dbInstrumentation) before(tx *gorm.DB) {
	if tx.Statement.Context != nil {
		tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (in *dbInstrumentation) after(tx *gorm.DB, op string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	slow := elapsed > in.cfg.SlowQueryThresh
	failed := tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound)

	if in.queryTotal != nil {
		attrs := []attribute.KeyValue{AttrDBOperation.String(op), AttrDBTable.String(tx.Statement.Table)}
		in.queryTotal.Inc(ctx, attrs...)
		in.queryLength.RecordDuration(ctx, elapsed, attrs...)
		if slow {
			in.slowTotal.Inc(ctx, attrs...)
		}
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if failed {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, tx.Error.Error())
	}
	if slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
