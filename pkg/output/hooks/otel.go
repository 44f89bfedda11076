package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/duration"
	"github.com/waftester/reconsuite/pkg/output/dispatcher"
	"github.com/waftester/reconsuite/pkg/output/events"
)

var _ dispatcher.Hook = (*OTelHook)(nil)

const tracerName = "reconsuite/orchestrator"

// OTelHook turns scans into traces: one span per scan and one child span per
// category, timed from the category's own start to its settlement.
type OTelHook struct {
	opts     OTelOptions
	provider *sdktrace.TracerProvider // nil when the provider is injected
	tracer   trace.Tracer

	mu     sync.Mutex
	scans  map[string]scanSpan
	closed bool
}

type scanSpan struct {
	ctx  context.Context
	span trace.Span
}

// OTelOptions configures the OpenTelemetry hook behavior.
type OTelOptions struct {
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: defaults.ToolName).
	ServiceName string

	// Insecure uses a plaintext connection.
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ShutdownTimeout bounds the final flush (default: duration.TelemetryShutdown).
	ShutdownTimeout time.Duration

	// ConnectionTimeout bounds exporter creation (default: duration.TelemetryConnect).
	ConnectionTimeout time.Duration
}

func (o *OTelOptions) applyDefaults() {
	if o.ServiceName == "" {
		o.ServiceName = defaults.ToolName
	}
	if o.Endpoint == "" {
		o.Endpoint = "localhost:4317"
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = duration.TelemetryShutdown
	}
	if o.ConnectionTimeout == 0 {
		o.ConnectionTimeout = duration.TelemetryConnect
	}
}

// NewOTelHook creates a hook exporting to an OTLP gRPC collector and installs
// its tracer provider as the global one. Export failures never block scans.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	opts.applyDefaults()

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("otel: create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	h := newOTelHook(opts, tp)
	h.provider = tp
	return h, nil
}

// NewOTelHookWithProvider creates a hook on an existing tracer provider.
// Close does not shut the provider down.
func NewOTelHookWithProvider(tp trace.TracerProvider, opts OTelOptions) *OTelHook {
	opts.applyDefaults()
	return newOTelHook(opts, tp)
}

func newOTelHook(opts OTelOptions, tp trace.TracerProvider) *OTelHook {
	return &OTelHook{
		opts:   opts,
		tracer: tp.Tracer(tracerName, trace.WithInstrumentationVersion(defaults.Version)),
		scans:  make(map[string]scanSpan),
	}
}

// OnEvent opens, annotates and closes spans.
func (h *OTelHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.ScanStarted:
		h.handleStart(ctx, e)
	case *events.CategorySettled:
		h.handleCategory(e)
	case *events.ScanSettled:
		h.handleSettled(e)
	}
	return nil
}

func (h *OTelHook) handleStart(ctx context.Context, e *events.ScanStarted) {
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = c.String()
	}
	spanCtx, span := h.tracer.Start(ctx, "reconsuite.scan",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(e.Timestamp()),
		trace.WithAttributes(
			attribute.String("scan.id", e.ScanID()),
			attribute.String("scan.domain", e.Domain),
			attribute.StringSlice("scan.categories", names),
		),
	)
	h.scans[e.ScanID()] = scanSpan{ctx: spanCtx, span: span}
}

func (h *OTelHook) handleCategory(e *events.CategorySettled) {
	parent, ok := h.scans[e.ScanID()]
	if !ok {
		return
	}
	end := e.Timestamp()
	_, span := h.tracer.Start(parent.ctx, "reconsuite.category."+e.Category.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(end.Add(-e.Elapsed())),
		trace.WithAttributes(
			attribute.String("category.name", e.Category.String()),
			attribute.Int("category.attempts", e.Attempts),
			attribute.Int("category.items", e.Items),
		),
	)
	if e.OK {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetAttributes(attribute.String("category.failure_kind", e.Kind))
		span.SetStatus(codes.Error, e.Error)
	}
	span.End(trace.WithTimestamp(end))
}

func (h *OTelHook) handleSettled(e *events.ScanSettled) {
	s, ok := h.scans[e.ScanID()]
	if !ok {
		return
	}
	delete(h.scans, e.ScanID())

	s.span.SetAttributes(
		attribute.Int("scan.succeeded", e.Succeeded),
		attribute.Int("scan.failed", len(e.Failed)),
	)
	if e.AllFailed() {
		s.span.SetStatus(codes.Error, "every category failed")
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End(trace.WithTimestamp(e.Timestamp()))
}

// EventTypes returns the event types this hook handles.
func (h *OTelHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeScanStarted,
		events.EventTypeCategorySettled,
		events.EventTypeScanSettled,
	}
}

// Close ends spans of scans that never settled and flushes the provider it
// owns.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for id, s := range h.scans {
		s.span.SetStatus(codes.Error, "scan abandoned")
		s.span.End()
		delete(h.scans, id)
	}

	if h.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
		defer cancel()
		if err := h.provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("otel: shutdown tracer provider: %w", err)
		}
	}
	return nil
}

// Endpoint returns the OTLP endpoint being used.
func (h *OTelHook) Endpoint() string { return h.opts.Endpoint }

// ServiceName returns the service name being used.
func (h *OTelHook) ServiceName() string { return h.opts.ServiceName }
