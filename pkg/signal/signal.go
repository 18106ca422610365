package signal

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// entry is one registration in a subscriber set.
type entry[T any] struct {
	id   uint64
	slot Slot[T]
}

// Signal broadcasts values of type T to its connected slots.
//
// The zero value is an empty, unblocked, unnamed signal ready to use.
// A Signal must not be copied after first use.
type Signal[T any] struct {
	id     uint64
	name   string
	logger *slog.Logger

	// subs holds an immutable slice. Writers replace it under mu; Emit reads
	// it without locking.
	subs atomic.Pointer[[]entry[T]]

	// mu serializes writers of subs.
	mu sync.Mutex

	blocked atomic.Bool
}

// NewSignal creates an empty signal.
func NewSignal[T any](opts ...Option) *Signal[T] {
	s := &Signal[T]{}
	s.init(applyOptions(opts))
	return s
}

func (s *Signal[T]) init(o options) {
	s.id = nextID()
	s.name = o.name
	s.logger = o.logger
}

// Name returns the name set with WithName, or "" if none.
func (s *Signal[T]) Name() string {
	return s.name
}

// Connect registers slot. Each emitted value is delivered to slot once per
// registration, so connecting the same slot twice yields two deliveries.
//
// The returned Connection removes exactly this registration, which is the
// only way to disconnect slots that cannot be compared, like SlotFunc.
//
// Returns ErrNilSlot if slot is nil.
func (s *Signal[T]) Connect(slot Slot[T]) (*Connection, error) {
	if isNilSlot(slot) {
		return nil, ErrNilSlot
	}

	e := entry[T]{id: nextID(), slot: slot}
	n := s.add(e)

	s.debug("slot connected", "connection", e.id, "subscribers", n)
	return &Connection{id: e.id, owner: s}, nil
}

// add publishes a copy of the subscriber set with e appended and returns
// the new size.
func (s *Signal[T]) add(e entry[T]) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	next := make([]entry[T], len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, e)
	s.subs.Store(&next)
	return len(next)
}

// Disconnect removes the first registration of slot, leaving the order of
// the others unchanged. Slots are matched by identity: pointer slots by
// address, other comparable slot types with ==. Disconnecting a slot that
// is not connected is a no-op.
//
// Returns ErrNilSlot if slot is nil.
func (s *Signal[T]) Disconnect(slot Slot[T]) error {
	if isNilSlot(slot) {
		return ErrNilSlot
	}

	if id, ok := s.removeFirst(func(e entry[T]) bool { return sameSlot(e.slot, slot) }); ok {
		s.debug("slot disconnected", "connection", id)
	}
	return nil
}

// DisconnectAll removes every registration.
func (s *Signal[T]) DisconnectAll() {
	if n := s.clear(); n > 0 {
		s.debug("all slots disconnected", "removed", n)
	}
}

// clear empties the subscriber set and returns how many entries it held.
func (s *Signal[T]) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.snapshot())
	s.subs.Store(nil)
	return n
}

// Len returns the number of registrations.
func (s *Signal[T]) Len() int {
	return len(s.snapshot())
}

// Emit delivers value to every connected slot in connect order, on the
// calling goroutine. If the signal is blocked, Emit does nothing.
//
// The subscriber set is captured when Emit starts. Slots connected or
// disconnected while the pass runs, from any goroutine, do not change it.
//
// The first slot to fail stops the pass; its error is returned wrapped in a
// *DeliveryError.
func (s *Signal[T]) Emit(value T) error {
	if s.blocked.Load() {
		return nil
	}
	for i, e := range s.snapshot() {
		if err := e.slot.Receive(value); err != nil {
			return &DeliveryError{Signal: s.name, Index: i, Err: err}
		}
	}
	return nil
}

// Receive implements Slot by emitting value, which lets one signal feed
// another.
func (s *Signal[T]) Receive(value T) error {
	return s.Emit(value)
}

// Blocked reports whether emission is currently suppressed.
func (s *Signal[T]) Blocked() bool {
	return s.blocked.Load()
}

// SetBlocked opens or closes the emission gate. While blocked, Emit is a
// no-op; connects and disconnects still work. Values emitted while blocked
// are dropped, not replayed on unblock.
func (s *Signal[T]) SetBlocked(blocked bool) {
	if s.blocked.Swap(blocked) != blocked {
		s.debug("blocked changed", "blocked", blocked)
	}
}

// snapshot returns the current subscriber set. The result must not be
// modified.
func (s *Signal[T]) snapshot() []entry[T] {
	if p := s.subs.Load(); p != nil {
		return *p
	}
	return nil
}

// removeFirst publishes the subscriber set without the first entry match
// accepts, keeping the order of the rest. It returns the removed entry's ID.
func (s *Signal[T]) removeFirst(match func(entry[T]) bool) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	for idx, e := range cur {
		if !match(e) {
			continue
		}
		if len(cur) == 1 {
			s.subs.Store(nil)
			return e.id, true
		}
		next := make([]entry[T], 0, len(cur)-1)
		next = append(next, cur[:idx]...)
		next = append(next, cur[idx+1:]...)
		s.subs.Store(&next)
		return e.id, true
	}
	return 0, false
}

// detach removes the registration with the given ID.
func (s *Signal[T]) detach(id uint64) bool {
	_, ok := s.removeFirst(func(e entry[T]) bool { return e.id == id })
	if ok {
		s.debug("slot disconnected", "connection", id)
	}
	return ok
}

// attached reports whether the registration with the given ID is present.
func (s *Signal[T]) attached(id uint64) bool {
	for _, e := range s.snapshot() {
		if e.id == id {
			return true
		}
	}
	return false
}

func (s *Signal[T]) debug(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if s.name != "" {
		args = append(args, "signal", s.name)
	} else {
		args = append(args, "signal_id", s.id)
	}
	s.logger.Debug(msg, args...)
}

// registry is implemented by every Signal instantiation and lets a
// non-generic Connection reach its owner.
type registry interface {
	detach(id uint64) bool
	attached(id uint64) bool
}

// Connection is the handle of one registration made by Connect.
type Connection struct {
	id    uint64
	owner registry
}

// Disconnect removes this registration. It reports whether the
// registration was still present; calling it again is a no-op.
func (c *Connection) Disconnect() bool {
	if c == nil || c.owner == nil {
		return false
	}
	return c.owner.detach(c.id)
}

// Connected reports whether this registration is still present.
func (c *Connection) Connected() bool {
	if c == nil || c.owner == nil {
		return false
	}
	return c.owner.attached(c.id)
}
