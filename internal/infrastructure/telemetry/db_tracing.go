package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	// LogFullSQL includes query parameters in spans. Reservation and voucher
	// statements carry customer IDs and trading references, so this stays
	// off outside local development.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin wraps the otelgorm plugin and adds slow-statement
// detection on top of its spans. Ledger statements are the hot path of
// every reserve, so a capacity check crossing the threshold shows up as a
// span event rather than only in aggregate latency.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm registers the otelgorm plugin plus the timing callbacks
// with the given GORM DB instance. No-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// registerTimingCallbacks hooks a start-time capture before and the
// enrichment callback after every statement class gorm runs.
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	before := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, statementStartKey, time.Now())
		}
	}

	var err error
	reg := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	cb := db.Callback()
	reg(cb.Create().Before("gorm:create").Register("cellar_tracing:before_create", before))
	reg(cb.Create().After("gorm:create").Register("cellar_tracing:after_create", p.enrichSpan))
	reg(cb.Query().Before("gorm:query").Register("cellar_tracing:before_query", before))
	reg(cb.Query().After("gorm:query").Register("cellar_tracing:after_query", p.enrichSpan))
	reg(cb.Update().Before("gorm:update").Register("cellar_tracing:before_update", before))
	reg(cb.Update().After("gorm:update").Register("cellar_tracing:after_update", p.enrichSpan))
	reg(cb.Delete().Before("gorm:delete").Register("cellar_tracing:before_delete", before))
	reg(cb.Delete().After("gorm:delete").Register("cellar_tracing:after_delete", p.enrichSpan))
	reg(cb.Row().Before("gorm:row").Register("cellar_tracing:before_row", before))
	reg(cb.Row().After("gorm:row").Register("cellar_tracing:after_row", p.enrichSpan))
	reg(cb.Raw().Before("gorm:raw").Register("cellar_tracing:before_raw", before))
	reg(cb.Raw().After("gorm:raw").Register("cellar_tracing:after_raw", p.enrichSpan))

	return err
}

// enrichSpan runs after each statement: rows affected and table go on the
// otelgorm span, errors other than not-found mark it failed, and statements
// over the threshold get a slow_statement event.
func (p *DBTracingPlugin) enrichSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// Not-found is an expected outcome for conditional lookups, not a failure.
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if start, ok := ctx.Value(statementStartKey).(time.Time); ok {
		elapsed := time.Since(start)
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_statement", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type contextKey string

// statementStartKey carries the statement start time from the before
// callback to the enrichment callback.
const statementStartKey contextKey = "cellar_statement_start"
