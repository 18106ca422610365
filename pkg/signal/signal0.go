package signal

// Signal0 is a signal without payload, for events where nothing but the
// occurrence matters. Its slots are Slot[Unit]; Func0 builds them from
// plain functions.
type Signal0 struct {
	sig Signal[Unit]
}

// NewSignal0 creates an empty zero-argument signal.
func NewSignal0(opts ...Option) *Signal0 {
	s := &Signal0{}
	s.sig.init(applyOptions(opts))
	return s
}

// Name returns the name set with WithName, or "" if none.
func (s *Signal0) Name() string { return s.sig.Name() }

// Connect registers slot. See Signal.Connect.
func (s *Signal0) Connect(slot Slot[Unit]) (*Connection, error) {
	return s.sig.Connect(slot)
}

// Disconnect removes the first registration of slot. See Signal.Disconnect.
func (s *Signal0) Disconnect(slot Slot[Unit]) error {
	return s.sig.Disconnect(slot)
}

// DisconnectAll removes every registration.
func (s *Signal0) DisconnectAll() { s.sig.DisconnectAll() }

// Len returns the number of registrations.
func (s *Signal0) Len() int { return s.sig.Len() }

// Emit notifies every connected slot. See Signal.Emit.
func (s *Signal0) Emit() error {
	return s.sig.Emit(Unit{})
}

// Receive implements Slot, so a Signal0 can be connected to another.
func (s *Signal0) Receive(Unit) error {
	return s.sig.Emit(Unit{})
}

// Blocked reports whether emission is currently suppressed.
func (s *Signal0) Blocked() bool { return s.sig.Blocked() }

// SetBlocked opens or closes the emission gate. See Signal.SetBlocked.
func (s *Signal0) SetBlocked(blocked bool) { s.sig.SetBlocked(blocked) }
