package signal

import (
	"fmt"
	"log/slog"
)

// Option is a functional option for configuring signals and value slots.
type Option func(*options)

// options holds configuration shared by Signal, Signal0 and ValueSlot.
type options struct {
	// name identifies the signal in logs and errors.
	name string

	// logger receives debug records for subscription changes.
	// Nil disables logging.
	logger *slog.Logger

	// equal is a func(T, T) bool, checked against T when a ValueSlot is built.
	equal any
}

// WithName sets the name reported in logs and DeliveryError.
//
// Example:
//
//	clicked := signal.NewSignal0(signal.WithName("button.clicked"))
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger enables debug logging of connects, disconnects and changes of
// the blocked gate. Delivery errors are never logged, only returned.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEquals sets the equality function a ValueSlot uses to decide whether
// a new value differs from the stored one. Plain signals ignore it.
//
// The function's type must match the ValueSlot's value type; a mismatch
// panics when the ValueSlot is created.
//
// Example:
//
//	temp := signal.NewValueSlot[float64](signal.WithEquals(func(a, b float64) bool {
//	    return math.Abs(a-b) < 0.1
//	}))
func WithEquals[T any](fn func(a, b T) bool) Option {
	return func(o *options) {
		o.equal = fn
	}
}

// applyOptions applies the given options and returns the resulting config.
func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// equalFor resolves the configured equality function for T.
func equalFor[T any](o options) func(a, b T) bool {
	if o.equal == nil {
		return defaultEquals[T]
	}
	fn, ok := o.equal.(func(a, b T) bool)
	if !ok {
		var zero T
		panic(fmt.Sprintf("signal: WithEquals function %T does not match value type %T", o.equal, zero))
	}
	if fn == nil {
		return defaultEquals[T]
	}
	return fn
}
