// Package invoke is the host-side path from a component name to a result:
// construct, coerce inputs, run, drain streams and release handles. It also
// carries the host policies components must not implement themselves
// (concurrency caps, rate limits) together with logging, metrics and tracing.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultStreamLimit bounds how many items Invoke reads from a stream output.
const DefaultStreamLimit = 10000

// Invoker runs components from a registry.
type Invoker struct {
	reg         *registry.Registry
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
	streamLimit int
	mergeOpts   []component.MergeOption
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) { i.logger = l }
}

// WithMetrics records invocations into m.
func WithMetrics(m *Metrics) Option {
	return func(i *Invoker) { i.metrics = m }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(i *Invoker) { i.tracer = tp.Tracer("workflow-components/invoke") }
}

// WithMaxConcurrent caps the number of invocations running at once.
func WithMaxConcurrent(n int64) Option {
	return func(i *Invoker) {
		if n > 0 {
			i.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithRateLimit limits invocations to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(i *Invoker) {
		if perSecond > 0 {
			i.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithStreamLimit sets how many stream items are collected (0 = unbounded).
func WithStreamLimit(n int) Option {
	return func(i *Invoker) { i.streamLimit = n }
}

// WithTrustedConfig resolves ${...} references in the cfg passed to Invoke.
// Use it only when cfg is written by the operator; without it cfg is literal
// and only descriptor defaults see secrets.
func WithTrustedConfig() Option {
	return func(i *Invoker) { i.mergeOpts = append(i.mergeOpts, component.ExpandOverrides()) }
}

// New creates an Invoker over reg.
func New(reg *registry.Registry, opts ...Option) *Invoker {
	i := &Invoker{
		reg:         reg,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.GetTracerProvider().Tracer("workflow-components/invoke"),
		streamLimit: DefaultStreamLimit,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Registry returns the registry the invoker resolves names against.
func (i *Invoker) Registry() *registry.Registry { return i.reg }

// Invoke builds a fresh instance of the named component with cfg overrides,
// coerces inputs, runs it and releases the instance. Stream outputs are
// collected into a []any before the instance is released.
func (i *Invoker) Invoke(ctx context.Context, name string, cfg, inputs map[string]any) (out any, err error) {
	if i.sem != nil {
		if err := i.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer i.sem.Release(1)
	}
	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, span := i.tracer.Start(ctx, "component.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("component.name", name)),
	)
	start := time.Now()
	if i.metrics != nil {
		i.metrics.InFlight.Inc()
		defer i.metrics.InFlight.Dec()
	}
	defer func() {
		d := time.Since(start)
		outcome := Outcome(err)
		span.SetAttributes(attribute.String("component.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			i.logger.Warn("component failed", "component", name, "outcome", outcome, "duration", d, "error", err)
		} else {
			i.logger.Info("component invoked", "component", name, "duration", d)
		}
		i.metrics.record(name, outcome, d)
		span.End()
	}()

	c, err := i.reg.New(ctx, name, cfg, i.mergeOpts...)
	if err != nil {
		return nil, err
	}
	if closer, ok := c.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil {
				i.logger.Warn("component close failed", "component", name, "error", cerr)
			}
		}()
	}
	span.SetAttributes(attribute.String("component.group", c.Descriptor().Group))

	in, err := component.Coerce(c.Descriptor(), inputs)
	if err != nil {
		return nil, err
	}
	out, err = c.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	if s, ok := out.(component.Stream); ok {
		items, err := component.Collect(ctx, s, i.streamLimit)
		if err != nil {
			return items, fmt.Errorf("%s: stream: %w", name, err)
		}
		span.SetAttributes(attribute.Int("component.stream_items", len(items)))
		return items, nil
	}
	return out, nil
}

// Outcome is the metrics label for err: "success", a failure kind such as
// "invalid_input", "canceled" or "unknown".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, registry.ErrUnknownComponent):
		return "unknown_component"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	if k := component.KindOf(err); k != component.KindUnknown {
		return strings.ReplaceAll(k.String(), " ", "_")
	}
	return "unknown"
}
