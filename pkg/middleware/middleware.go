package middleware

import (
	"reflect"

	"github.com/vango-dev/signalslot/pkg/signal"
)

// Middleware decorates a slot. The returned slot must call next to deliver
// the value, or deliberately skip it.
type Middleware[T any] func(next signal.Slot[T]) signal.Slot[T]

// Chain composes middlewares. The first one is the outermost: it sees the
// value first and the result last.
func Chain[T any](mws ...Middleware[T]) Middleware[T] {
	return func(next signal.Slot[T]) signal.Slot[T] {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				next = mws[i](next)
			}
		}
		return next
	}
}

// Wrap applies mws to slot, outermost first. It returns nil if slot is nil,
// so connecting the result fails the same way connecting slot would.
func Wrap[T any](slot signal.Slot[T], mws ...Middleware[T]) signal.Slot[T] {
	if isNil(slot) {
		return nil
	}
	return Chain(mws...)(slot)
}

// isNil mirrors signal's nil-slot check: a nil interface or an interface
// holding a nil pointer, function, map, channel or slice.
func isNil(slot any) bool {
	if slot == nil {
		return true
	}
	v := reflect.ValueOf(slot)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}
