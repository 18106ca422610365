package middleware

import (
	"context"
	"fmt"

	"github.com/vango-dev/signalslot/pkg/signal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for signal deliveries.
const defaultTracerName = "signalslot"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "signalslot").
	TracerName string

	// TracerProvider supplies the tracer.
	// Default: the global provider from otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Context is the parent of every delivery span (default:
	// context.Background()). Slots have no per-call context, so spans of one
	// propagation wave are siblings rather than a tree.
	Context context.Context

	// Attributes are added to every span.
	Attributes []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithParentContext sets the context delivery spans are started from.
func WithParentContext(ctx context.Context) OTelOption {
	return func(c *OTelConfig) {
		c.Context = ctx
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
}

// OpenTelemetry returns middleware that wraps each delivery to the slot in
// a span named "signal.deliver <name>".
//
// The span carries the slot name and the Go type of the value. Errors are
// recorded on the span and set its status to Error.
//
// Example:
//
//	pour.Connect(middleware.Wrap[string](cup,
//	    middleware.OpenTelemetry[string]("cup", middleware.WithTracerName("teahouse")),
//	))
func OpenTelemetry[T any](name string, opts ...OTelOption) Middleware[T] {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}

	tracer := config.TracerProvider.Tracer(config.TracerName)
	spanName := fmt.Sprintf("signal.deliver %s", name)

	var zero T
	attrs := append([]attribute.KeyValue{
		attribute.String("signal.slot", name),
		attribute.String("signal.value_type", fmt.Sprintf("%T", zero)),
	}, config.Attributes...)

	return func(next signal.Slot[T]) signal.Slot[T] {
		return signal.FuncErr(func(value T) error {
			_, span := tracer.Start(
				config.Context,
				spanName,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			err := next.Receive(value)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return err
		})
	}
}
