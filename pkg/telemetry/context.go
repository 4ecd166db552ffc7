package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry groups the logger, tracer and metrics built from one Config.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

type telemetryContextKey struct{}

// NewTelemetry validates cfg and builds every component from it.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tel := &Telemetry{Config: cfg}
	var err error
	if tel.Logger, err = NewLogger(cfg.Logging); err != nil {
		return nil, err
	}
	if tel.Tracer, err = NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment); err != nil {
		return nil, err
	}
	if tel.Metrics, err = NewMetrics(cfg.Metrics); err != nil {
		return nil, err
	}
	return tel, nil
}

// WithContext stores t, and its logger, in ctx.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	return t.Logger.WithContext(context.WithValue(ctx, telemetryContextKey{}, t))
}

// FromTelemetryContext returns the telemetry stored in ctx, or nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	t, _ := ctx.Value(telemetryContextKey{}).(*Telemetry)
	return t
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.Tracer.Shutdown(ctx)
}

// StartMetricsServer serves metrics when a listen address is configured.
func (t *Telemetry) StartMetricsServer() error {
	if t.Config.Metrics.ListenAddress == "" {
		return nil
	}
	return t.Metrics.StartMetricsServer()
}

// InstrumentedContext is one traced and timed operation, such as a CLI
// command touching the store.
type InstrumentedContext struct {
	// Ctx carries the operation span and logger.
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer
}

// StartOperation opens a span named operation and a logger tagged with it
// and with the trace and span ids. Without telemetry in ctx the span is the
// one already in ctx, usually a no-op.
func StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	ic := &InstrumentedContext{Timer: NewTimer()}

	tel := FromTelemetryContext(ctx)
	if tel == nil {
		ic.Ctx, ic.Span, ic.Logger = ctx, trace.SpanFromContext(ctx), FromContext(ctx)
		return ic
	}

	ctx, ic.Span = tel.Tracer.StartSpan(ctx, operation, attrs...)
	ic.Logger = tel.Logger.WithField("operation", operation)
	if sc := ic.Span.SpanContext(); sc.IsValid() {
		ic.Logger = ic.Logger.WithFields(map[string]any{
			"trace_id": sc.TraceID().String(),
			"span_id":  sc.SpanID().String(),
		})
	}
	ic.Ctx = ic.Logger.WithContext(ctx)
	return ic
}

// End closes the span, marking it failed when err is set.
func (ic *InstrumentedContext) End(err error) {
	defer ic.Span.End()
	if err != nil {
		RecordError(ic.Span, err)
		ic.Logger.WithError(err).Debugf("Operation failed after %s", ic.Timer.Duration())
		return
	}
	RecordSuccess(ic.Span)
}
