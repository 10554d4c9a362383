package application

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/example/room-booking/internal/application"

	// DecisionCounterName counts booking decisions by operation, outcome and reason.
	DecisionCounterName = "booking.decisions"

	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeFailed   = "error"
)

type telemetry struct {
	tracer    trace.Tracer
	decisions metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	decisions, err := mp.Meter(instrumentationName).Int64Counter(
		DecisionCounterName,
		metric.WithDescription("Booking admission and mutation decisions"),
	)
	if err != nil {
		otel.Handle(err)
		decisions = metricnoop.Int64Counter{}
	}

	return telemetry{
		tracer:    tp.Tracer(instrumentationName),
		decisions: decisions,
	}
}

func (t telemetry) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish records the decision for operation and ends span. Rule violations and
// ownership failures are rejections; anything unexpected marks the span as failed.
func (t telemetry) finish(ctx context.Context, span trace.Span, operation string, err error) {
	outcome := outcomeAccepted
	reason := "none"
	if err != nil {
		reason = ErrorKind(err)
		if isExpected(err) {
			outcome = outcomeRejected
		} else {
			outcome = outcomeFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}

	span.SetAttributes(
		attribute.String("booking.outcome", outcome),
		attribute.String("booking.reason", reason),
	)
	span.End()

	t.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	))
}
