package telemetry

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey      = "otel:span"
	maxStatement = 500
)

// GORMTracingPlugin returns a GORM plugin that opens a span per statement
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{}
}

type tracingPlugin struct{}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []struct {
		name string
		err  error
	}{
		{"before_query", cb.Query().Before("gorm:query").Register("telemetry:before_query", before("SELECT"))},
		{"before_create", cb.Create().Before("gorm:create").Register("telemetry:before_create", before("INSERT"))},
		{"before_update", cb.Update().Before("gorm:update").Register("telemetry:before_update", before("UPDATE"))},
		{"before_delete", cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before("DELETE"))},
		{"before_raw", cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", before("RAW"))},
		{"before_row", cb.Row().Before("gorm:row").Register("telemetry:before_row", before("ROW"))},

		{"after_query", cb.Query().After("gorm:query").Register("telemetry:after_query", endSpan)},
		{"after_create", cb.Create().After("gorm:create").Register("telemetry:after_create", endSpan)},
		{"after_update", cb.Update().After("gorm:update").Register("telemetry:after_update", endSpan)},
		{"after_delete", cb.Delete().After("gorm:delete").Register("telemetry:after_delete", endSpan)},
		{"after_raw", cb.Raw().After("gorm:raw").Register("telemetry:after_raw", endSpan)},
		{"after_row", cb.Row().After("gorm:row").Register("telemetry:after_row", endSpan)},
	}

	for _, r := range registrations {
		if r.err != nil {
			return fmt.Errorf("failed to register %s callback: %w", r.name, r.err)
		}
	}
	return nil
}

func before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		startSpan(db, operation)
	}
}

func startSpan(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}

	_, span := otel.Tracer("gorm").Start(ctx, "db."+strings.ToLower(operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", db.Dialector.Name()),
			attribute.String("db.table", table),
			attribute.String("db.operation", operation),
		),
	)
	db.InstanceSet(spanKey, span)
}

func endSpan(db *gorm.DB) {
	raw, exists := db.InstanceGet(spanKey)
	if !exists {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatement {
			sql = sql[:maxStatement] + "... (truncated)"
		}
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))

	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}
