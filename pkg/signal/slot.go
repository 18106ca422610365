package signal

import "reflect"

// Slot is anything that can receive a value of type T.
//
// Receive is called synchronously on the emitting goroutine. A non-nil
// error aborts the delivery pass it occurred in.
type Slot[T any] interface {
	Receive(value T) error
}

// Unit is the payload of zero-argument events.
type Unit struct{}

// SlotFunc adapts a function to the Slot interface.
//
// Function values are not comparable, so a SlotFunc never matches in
// Disconnect. Use Func or FuncErr when the slot must be disconnected by
// value, or keep the Connection returned by Connect.
type SlotFunc[T any] func(value T) error

// Receive calls f(value).
func (f SlotFunc[T]) Receive(value T) error {
	return f(value)
}

// FuncSlot is a pointer adapter around a function. Two FuncSlots are the
// same slot only if they are the same pointer.
type FuncSlot[T any] struct {
	fn func(T) error
}

// Func returns a slot that calls fn and never fails.
// It returns nil if fn is nil.
func Func[T any](fn func(value T)) *FuncSlot[T] {
	if fn == nil {
		return nil
	}
	return &FuncSlot[T]{fn: func(v T) error {
		fn(v)
		return nil
	}}
}

// FuncErr returns a slot that calls fn and reports its error.
// It returns nil if fn is nil.
func FuncErr[T any](fn func(value T) error) *FuncSlot[T] {
	if fn == nil {
		return nil
	}
	return &FuncSlot[T]{fn: fn}
}

// Func0 returns a zero-argument slot, suitable for Signal0.
// It returns nil if fn is nil.
func Func0(fn func()) *FuncSlot[Unit] {
	if fn == nil {
		return nil
	}
	return &FuncSlot[Unit]{fn: func(Unit) error {
		fn()
		return nil
	}}
}

// Receive implements Slot.
func (f *FuncSlot[T]) Receive(value T) error {
	return f.fn(value)
}

// Adapter forwards values of any type to a zero-argument slot, dropping the
// payload. It lets a data signal trigger a plain event handler.
type Adapter[T any] struct {
	target Slot[Unit]
}

// Adapt returns an Adapter forwarding to target.
// It returns nil if target is nil.
func Adapt[T any](target Slot[Unit]) *Adapter[T] {
	if isNilSlot(target) {
		return nil
	}
	return &Adapter[T]{target: target}
}

// Receive implements Slot.
func (a *Adapter[T]) Receive(T) error {
	return a.target.Receive(Unit{})
}

// MapSlot converts each value with fn before forwarding it to target.
type MapSlot[T, U any] struct {
	fn     func(T) U
	target Slot[U]
}

// Map returns a slot that applies fn to each value and forwards the result.
// It returns nil if fn or target is nil.
//
// Example:
//
//	celsius := signal.NewValueSlot[float64]()
//	label := signal.NewSignal[string]()
//	celsius.Connect(signal.Map(func(c float64) string {
//	    return fmt.Sprintf("%.1f°C", c)
//	}, label))
func Map[T, U any](fn func(T) U, target Slot[U]) *MapSlot[T, U] {
	if fn == nil || isNilSlot(target) {
		return nil
	}
	return &MapSlot[T, U]{fn: fn, target: target}
}

// Receive implements Slot.
func (m *MapSlot[T, U]) Receive(value T) error {
	return m.target.Receive(m.fn(value))
}

// isNilSlot reports whether slot is absent: a nil interface or an interface
// holding a nil pointer, function, map, channel or slice.
func isNilSlot(slot any) bool {
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

// sameSlot reports whether a and b are the same slot. Pointer slots match by
// address. Slots that cannot be compared never match: non-comparable types
// such as SlotFunc, and values of comparable types that hold one, like a
// struct whose interface field contains a func.
func sameSlot(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) {
		return false
	}
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}
