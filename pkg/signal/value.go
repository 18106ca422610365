package signal

import "sync"

// ValueSlot is a signal that remembers the last value it received and only
// re-emits values that differ from it.
//
// Set and Receive share one path: store the value, then emit it if it is
// not equal to the value stored before. Connecting cell a to cell b makes b
// mirror a, with redundant sets absorbed instead of propagated. A chain of
// cells therefore settles as soon as a value stops changing.
//
// A ValueSlot starts absent unless created with NewValueSlotOf. The first
// Set on an absent cell always emits.
type ValueSlot[T any] struct {
	sig     Signal[T]
	updated Signal[T]
	equal   func(a, b T) bool

	mu      sync.RWMutex
	value   T
	present bool
}

// NewValueSlot creates a cell with no value.
//
// Example:
//
//	selected := signal.NewValueSlot[bool](signal.WithName("check.selected"))
func NewValueSlot[T any](opts ...Option) *ValueSlot[T] {
	o := applyOptions(opts)
	v := &ValueSlot[T]{equal: equalFor[T](o)}
	v.sig.init(o)
	if o.name != "" {
		o.name += ".updated"
	}
	v.updated.init(o)
	return v
}

// NewValueSlotOf creates a cell holding initial. Creating it does not emit.
func NewValueSlotOf[T any](initial T, opts ...Option) *ValueSlot[T] {
	v := NewValueSlot[T](opts...)
	v.value = initial
	v.present = true
	return v
}

// Name returns the name set with WithName, or "" if none.
func (v *ValueSlot[T]) Name() string { return v.sig.Name() }

// Get returns the stored value, or the zero value if none was ever set.
func (v *ValueSlot[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Lookup returns the stored value and whether one was ever set.
func (v *ValueSlot[T]) Lookup() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.present
}

// Set stores value. Subscribers are notified only if value differs from
// the previously stored value; the store happens either way. Slots
// connected to Updated are notified on every Set.
//
// Set emits without holding the cell's lock, so a slot may read or set the
// cell it is connected to. Concurrent Sets on one cell are stored in lock
// order but may be delivered in a different order.
func (v *ValueSlot[T]) Set(value T) error {
	v.mu.Lock()
	old, had := v.value, v.present
	v.value, v.present = value, true
	v.mu.Unlock()

	return v.notify(old, had, value)
}

// Update atomically reads the stored value, applies fn, and stores the
// result, notifying subscribers as Set does. fn receives the zero value if
// the cell is absent.
//
// Example:
//
//	count.Update(func(n int) int { return n + 1 })
func (v *ValueSlot[T]) Update(fn func(T) T) error {
	v.mu.Lock()
	old, had := v.value, v.present
	next := fn(old)
	v.value, v.present = next, true
	v.mu.Unlock()

	return v.notify(old, had, next)
}

// Receive implements Slot by calling Set, so cells can be fed by any signal.
func (v *ValueSlot[T]) Receive(value T) error {
	return v.Set(value)
}

// Emit stores value and notifies subscribers without comparing it to the
// stored value. Use it to force a refresh of downstream slots.
func (v *ValueSlot[T]) Emit(value T) error {
	v.mu.Lock()
	v.value, v.present = value, true
	v.mu.Unlock()

	if err := v.updated.Emit(value); err != nil {
		return err
	}
	return v.sig.Emit(value)
}

func (v *ValueSlot[T]) notify(old T, had bool, value T) error {
	if err := v.updated.Emit(value); err != nil {
		return err
	}
	if had && v.equal(old, value) {
		return nil
	}
	return v.sig.Emit(value)
}

// Updated returns the signal fired on every Set, whether or not the value
// changed. Blocking the cell with SetBlocked also blocks Updated.
func (v *ValueSlot[T]) Updated() *Signal[T] {
	return &v.updated
}

// Connect registers slot to receive changed values. See Signal.Connect.
func (v *ValueSlot[T]) Connect(slot Slot[T]) (*Connection, error) {
	return v.sig.Connect(slot)
}

// Disconnect removes the first registration of slot. See Signal.Disconnect.
func (v *ValueSlot[T]) Disconnect(slot Slot[T]) error {
	return v.sig.Disconnect(slot)
}

// DisconnectAll removes every registration. Slots connected to Updated are
// not affected.
func (v *ValueSlot[T]) DisconnectAll() { v.sig.DisconnectAll() }

// Len returns the number of registrations.
func (v *ValueSlot[T]) Len() int { return v.sig.Len() }

// Blocked reports whether emission is currently suppressed.
func (v *ValueSlot[T]) Blocked() bool { return v.sig.Blocked() }

// SetBlocked opens or closes the emission gate of the cell and of Updated.
// Values set while blocked are still stored; unblocking does not emit them.
func (v *ValueSlot[T]) SetBlocked(blocked bool) {
	v.sig.SetBlocked(blocked)
	v.updated.SetBlocked(blocked)
}
