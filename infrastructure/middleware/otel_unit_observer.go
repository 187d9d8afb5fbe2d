package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

// Metric names recorded for unit executions.
const (
	MetricUnitDuration   = "unit_execute"
	MetricUnitExecutions = "unit_executions_total"
)

var _ UnitObserver = (*OTelUnitObserver)(nil)

// OTelUnitObserver implements UnitObserver with OpenTelemetry tracing,
// a metrics collector, and structured logging. It creates one span per
// unit execution and records what the unit produced as span events.
type OTelUnitObserver struct {
	metrics ports.MetricsCollector
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewOTelUnitObserver creates a new observer. metrics may be nil; a nil
// logger uses slog.Default.
func NewOTelUnitObserver(metrics ports.MetricsCollector, logger *slog.Logger) *OTelUnitObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &OTelUnitObserver{
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer("unit-monitor"),
	}
}

// PreExecute starts the unit span.
func (o *OTelUnitObserver) PreExecute(ctx context.Context, info UnitInfo) context.Context {
	ctx, _ = o.tracer.Start(ctx, "UnitMonitor.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", info.Type),
			attribute.String("unit.id", info.ID),
			attribute.String("class.id", info.ClassID),
			attribute.String("execution.id", info.ExecutionID),
		),
	)
	return ctx
}

// PostExecute finalizes the span, records metrics, and logs the outcome.
func (o *OTelUnitObserver) PostExecute(
	ctx context.Context,
	info UnitInfo,
	out domain.State,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("unit failed",
			"unit", info.ID,
			"unit_type", info.Type,
			"class_id", info.ClassID,
			"execution_id", info.ExecutionID,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		o.addOutputEvents(span, out)
		span.SetStatus(codes.Ok, "unit completed")
		o.logger.Debug("unit executed",
			"unit", info.ID,
			"unit_type", info.Type,
			"class_id", info.ClassID,
			"elapsed", elapsed,
		)
	}

	if o.metrics != nil {
		labels := map[string]string{
			"unit":      info.ID,
			"unit_type": info.Type,
			"status":    status,
		}
		o.metrics.RecordLatency(MetricUnitDuration, elapsed, labels)
		o.metrics.RecordCounter(MetricUnitExecutions, 1, labels)
	}
}

// addOutputEvents summarises the report outputs present in out.
func (o *OTelUnitObserver) addOutputEvents(span trace.Span, out domain.State) {
	if palmares, ok := domain.Get(out, domain.KeyPalmares); ok {
		span.AddEvent("palmares.ranked", trace.WithAttributes(
			attribute.String("group", string(palmares.Group)),
			attribute.Int("total", palmares.Stats.Total),
			attribute.Int("passed", palmares.Stats.Passed),
			attribute.Int("failed", palmares.Stats.Failed),
			attribute.Int("unranked", palmares.Stats.Unranked),
		))
	}
	if groups, ok := domain.Get(out, domain.KeySubjectGroups); ok {
		span.AddEvent("subject_groups.built", trace.WithAttributes(
			attribute.Int("groups", len(groups)),
		))
	}
	if repechages, ok := domain.Get(out, domain.KeyRepechages); ok {
		span.AddEvent("repechages.converted", trace.WithAttributes(
			attribute.Int("count", len(repechages)),
		))
	}
}
