package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/vango-dev/signalslot/pkg/signal"
)

// PanicError is returned by slots wrapped with Recover when the wrapped slot
// panicked.
type PanicError struct {
	// Value is the value passed to panic.
	Value any

	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("signal: slot panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Recover returns middleware that converts a panic in the wrapped slot into
// a *PanicError. The signal then stops the pass as it does for any other
// failure, instead of unwinding through the emitter.
func Recover[T any]() Middleware[T] {
	return func(next signal.Slot[T]) signal.Slot[T] {
		return signal.FuncErr(func(value T) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return next.Receive(value)
		})
	}
}

// Isolate returns middleware that reports errors from the wrapped slot to
// onError and then returns nil, so the remaining slots of the pass still
// run. A nil onError drops errors silently.
//
// Combine with Recover to isolate panics too:
//
//	middleware.Wrap(slot, middleware.Isolate[int](report), middleware.Recover[int]())
func Isolate[T any](onError func(error)) Middleware[T] {
	return func(next signal.Slot[T]) signal.Slot[T] {
		return signal.FuncErr(func(value T) error {
			if err := next.Receive(value); err != nil && onError != nil {
				onError(err)
			}
			return nil
		})
	}
}
