package signal

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is the class of errors returned when an operation is
// called with an argument it cannot accept. The subscriber set is never
// modified when it is returned.
var ErrInvalidArgument = errors.New("signal: invalid argument")

// ErrNilSlot is returned by Connect and Disconnect when the slot is nil,
// including typed nil pointers and nil functions.
var ErrNilSlot = fmt.Errorf("%w: nil slot", ErrInvalidArgument)

// DeliveryError reports a slot that failed while a signal was emitting.
// Deliveries to the slots after it in the same pass were skipped.
//
// When signals are chained, each hop adds its own DeliveryError, so the
// outermost error names the signal Emit was called on. Use errors.As to
// reach the innermost one or errors.Is to test for a specific cause.
type DeliveryError struct {
	// Signal is the name of the emitting signal, empty if unnamed.
	Signal string

	// Index is the position of the failing slot in the delivery snapshot.
	Index int

	// Err is the error returned by the slot.
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Signal == "" {
		return fmt.Sprintf("signal: slot %d failed: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("signal: %s: slot %d failed: %v", e.Signal, e.Index, e.Err)
}

// Unwrap returns the slot's error for errors.Is/As support.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}
