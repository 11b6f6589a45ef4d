// Package telemetry traces test invocations with OpenTelemetry.
//
// Every invocation becomes one root span that starts with PreVerify and ends
// with Teardown. Each phase becomes a child span of it.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"testrig/internal/lifecycle"
)

// DefaultTracerName is used when no tracer name is configured.
const DefaultTracerName = "testrig.lifecycle"

type spanKey struct {
	invocation string
	phase      lifecycle.Phase
}

// Observer is a lifecycle.Observer emitting spans.
type Observer struct {
	tracer trace.Tracer

	mu     sync.Mutex
	roots  map[string]trace.Span
	phases map[spanKey]trace.Span
}

// NewObserver creates an Observer using tp, or the global provider when tp
// is nil.
func NewObserver(tp trace.TracerProvider, name string) *Observer {
	if name == "" {
		name = DefaultTracerName
	}
	var tracer trace.Tracer
	if tp == nil {
		tracer = otel.Tracer(name)
	} else {
		tracer = tp.Tracer(name)
	}
	return &Observer{
		tracer: tracer,
		roots:  make(map[string]trace.Span),
		phases: make(map[spanKey]trace.Span),
	}
}

func (o *Observer) PhaseStarted(ctx context.Context, rc *lifecycle.Context, phase lifecycle.Phase) context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()

	root, ok := o.roots[rc.ID()]
	if !ok {
		_, root = o.tracer.Start(ctx, "testrig.invocation",
			trace.WithAttributes(
				attribute.String("invocation.id", rc.ID()),
				attribute.String("test.type", testType(rc)),
				attribute.String("test.level", rc.Level().String()),
			),
		)
		o.roots[rc.ID()] = root
	}

	ctx, span := o.tracer.Start(trace.ContextWithSpan(ctx, root), "testrig.phase."+phase.String(),
		trace.WithAttributes(
			attribute.String("invocation.id", rc.ID()),
			attribute.String("phase", phase.String()),
		),
	)
	o.phases[spanKey{rc.ID(), phase}] = span
	return ctx
}

func (o *Observer) PhaseFinished(ctx context.Context, rc *lifecycle.Context, phase lifecycle.Phase, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := spanKey{rc.ID(), phase}
	if span, ok := o.phases[key]; ok {
		delete(o.phases, key)
		span.SetAttributes(attribute.Int64("phase.elapsed_ms", elapsed.Milliseconds()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}

	root, ok := o.roots[rc.ID()]
	if !ok {
		return
	}
	if err != nil {
		root.SetStatus(codes.Error, fmt.Sprintf("%s failed", phase))
	}
	if phase == lifecycle.Teardown {
		delete(o.roots, rc.ID())
		root.End()
	}
}

func testType(rc *lifecycle.Context) string {
	if d := rc.Descriptor(); d != nil {
		return d.Type().String()
	}
	return fmt.Sprintf("%T", rc.Test())
}
