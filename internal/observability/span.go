package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/choiwab/promptsmith"

// StartStageSpan opens a span around one orchestrator stage (plan, generate,
// judge, refine, compare). Callers must call the returned end func.
func StartStageSpan(ctx context.Context, stage string) (context.Context, func()) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, stage, trace.WithSpanKind(trace.SpanKindInternal))
	return ctx, func() { span.End() }
}
