package bridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/eventbridge-go/bridge/transport"
)

// startFlushSpan opens a span covering one flush (including transport
// retries) when a tracer is configured. Returns a nil span otherwise.
func (b *Bridge) startFlushSpan(ctx context.Context, batchSize int) (context.Context, trace.Span) {
	if b.cfg.tracer == nil {
		return ctx, nil
	}
	ctx, span := b.cfg.tracer.Start(ctx, "bridge.flush")
	span.SetAttributes(attribute.Int("eventbridge.batch_size", batchSize))
	return ctx, span
}

// endFlushSpan records the flush outcome on the span and ends it.
func endFlushSpan(span trace.Span, res transport.Result) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.String("eventbridge.outcome", res.Status.String()),
		attribute.Int("eventbridge.attempts", res.Attempts),
	)
	if res.HTTPCode != 0 {
		span.SetAttributes(attribute.Int("eventbridge.http_code", res.HTTPCode))
	}
	if !res.OK() {
		span.SetStatus(codes.Error, res.Status.String())
		if res.Err != nil {
			span.RecordError(res.Err)
		}
	}
	span.End()
}
