// Package signal provides typed, in-process signals and slots.
//
// A Signal broadcasts values to every connected Slot. Delivery is
// synchronous, happens on the emitting goroutine, and follows connect order.
// A Signal is itself a Slot, so signals can be chained into arbitrary
// propagation graphs:
//
//	clicked := signal.NewSignal0()
//	handler := signal.Func0(func() { fmt.Println("clicked") })
//	clicked.Connect(handler)
//	clicked.Emit()
//
// # Slots and Identity
//
// Slot[T] is a one-method capability. Func, FuncErr and Func0 wrap plain
// functions in pointer adapters. Disconnect matches by identity, so keep
// the adapter you connected:
//
//	slot := signal.Func(func(v int) { fmt.Println(v) })
//	sig.Connect(slot)
//	sig.Disconnect(slot) // works
//	sig.Disconnect(signal.Func(func(v int) { fmt.Println(v) })) // no-op
//
// Function values are not comparable in Go. A SlotFunc can be connected,
// but it can only be removed through the Connection returned by Connect
// or by DisconnectAll.
//
// # Value Cells
//
// ValueSlot[T] stores the last value it received and re-emits only when a
// new value differs from the previous one. Connecting cells builds chains
// that settle once values stop changing:
//
//	a := signal.NewValueSlot[int]()
//	b := signal.NewValueSlot[int]()
//	a.Connect(b)
//	a.Set(5) // b.Get() == 5
//	a.Set(5) // no notification anywhere
//
// # Thread Safety
//
// All types are safe for concurrent use. The subscriber set is
// copy-on-write: Emit iterates the set as it was when Emit started, so
// connects and disconnects issued concurrently or from inside a slot never
// affect a delivery pass that is already running.
//
// # Errors
//
// The first failing slot aborts the delivery pass and its error is returned
// from Emit wrapped in a *DeliveryError. Panics are not recovered. Wrap
// slots with the middleware package when a subscriber must not break its
// siblings.
//
// No cycle detection is performed. A cyclic wiring of plain signals recurses
// until the stack is exhausted.
package signal
