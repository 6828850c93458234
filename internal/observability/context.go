package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// DetachTraceContext creates a new context.Background() that carries the
// span context from the original request. This allows goroutines to
// create child spans linked to the HTTP request trace without inheriting
// its cancellation.
func DetachTraceContext(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return context.Background()
	}
	return trace.ContextWithRemoteSpanContext(context.Background(), sc)
}

// DetachTraceContextFrom is like DetachTraceContext but roots the new
// context in base instead of context.Background(). Used by the scheduler
// to derive a job goroutine's context from its own long-lived base
// context (cancelled on shutdown) while still carrying the trace span
// from whatever triggered the claim.
func DetachTraceContextFrom(ctx, base context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return base
	}
	return trace.ContextWithRemoteSpanContext(base, sc)
}
