package signal

import (
	"errors"
	"math"
	"testing"
)

func TestValueSlotInitialState(t *testing.T) {
	absent := NewValueSlot[string]()
	if v, ok := absent.Lookup(); ok || v != "" {
		t.Errorf("expected absent zero value, got %q, %v", v, ok)
	}

	present := NewValueSlotOf(3)
	if v, ok := present.Lookup(); !ok || v != 3 {
		t.Errorf("expected present 3, got %d, %v", v, ok)
	}
}

func TestValueSlotSetSameValueIsSilent(t *testing.T) {
	cell := NewValueSlot[string]()
	r := newRecorder[string]()
	cell.Connect(r)

	cell.Set("x")
	cell.Set("x")

	if got := r.got(); !equalSlices(got, []string{"x"}) {
		t.Errorf("expected one notification, got %v", got)
	}
	if cell.Get() != "x" {
		t.Errorf("expected value x, got %q", cell.Get())
	}
}

func TestValueSlotNaNIsIdempotent(t *testing.T) {
	cell := NewValueSlot[float64]()
	n := 0
	cell.Connect(Func(func(float64) { n++ }))

	cell.Set(math.NaN())
	cell.Set(math.NaN())
	if n != 1 {
		t.Errorf("expected 1 notification, got %d", n)
	}

	cell.Set(1)
	if n != 2 {
		t.Errorf("expected a change away from NaN to notify, got %d", n)
	}

	small := NewValueSlotOf(float32(math.NaN()))
	m := 0
	small.Connect(Func(func(float32) { m++ }))
	small.Set(float32(math.NaN()))
	if m != 0 {
		t.Errorf("expected float32 NaN to equal NaN, got %d notifications", m)
	}
}

func TestValueSlotFirstSetFromAbsentEmits(t *testing.T) {
	cell := NewValueSlot[int]()
	r := newRecorder[int]()
	cell.Connect(r)

	// The zero value still counts as a change from absent.
	cell.Set(0)
	if got := r.got(); !equalSlices(got, []int{0}) {
		t.Errorf("expected first Set to emit, got %v", got)
	}

	initialised := NewValueSlotOf(0)
	r2 := newRecorder[int]()
	initialised.Connect(r2)
	initialised.Set(0)
	if r2.count() != 0 {
		t.Errorf("expected Set equal to initial value to be silent, got %d", r2.count())
	}
}

func TestValueSlotPropagation(t *testing.T) {
	a := NewValueSlot[int]()
	b := NewValueSlot[int]()
	bSubs := newRecorder[int]()

	a.Connect(b)
	b.Connect(bSubs)

	a.Set(5)
	if b.Get() != 5 {
		t.Fatalf("expected b to mirror a, got %d", b.Get())
	}

	a.Set(5)
	if got := bSubs.got(); !equalSlices(got, []int{5}) {
		t.Errorf("expected b's subscribers notified once, got %v", got)
	}

	c := NewValueSlot[int]()
	a.Connect(c)
	a.Set(5)
	if _, ok := c.Lookup(); ok {
		t.Errorf("expected c to stay absent after a no-op set, got %d", c.Get())
	}

	a.Set(6)
	if c.Get() != 6 || b.Get() != 6 {
		t.Errorf("expected b and c to be 6, got %d and %d", b.Get(), c.Get())
	}
}

func TestValueSlotCycleSettles(t *testing.T) {
	a := NewValueSlot[int]()
	b := NewValueSlot[int]()
	c := NewValueSlot[int]()
	r := newRecorder[int]()

	a.Connect(b)
	b.Connect(c)
	c.Connect(a)
	c.Connect(r)

	if err := a.Set(1); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	if a.Get() != 1 || b.Get() != 1 || c.Get() != 1 {
		t.Errorf("expected all cells to hold 1, got %d %d %d", a.Get(), b.Get(), c.Get())
	}
	if r.count() != 1 {
		t.Errorf("expected the cycle to settle after one wave, got %d notifications", r.count())
	}
}

func TestValueSlotUpdatedFiresOnEverySet(t *testing.T) {
	cell := NewValueSlot[int]()
	updated := newRecorder[int]()
	changed := newRecorder[int]()
	cell.Updated().Connect(updated)
	cell.Connect(changed)

	cell.Set(1)
	cell.Set(1)
	cell.Set(2)

	if got := updated.got(); !equalSlices(got, []int{1, 1, 2}) {
		t.Errorf("expected every set on Updated, got %v", got)
	}
	if got := changed.got(); !equalSlices(got, []int{1, 2}) {
		t.Errorf("expected only changes on the cell, got %v", got)
	}
}

func TestValueSlotBlocked(t *testing.T) {
	cell := NewValueSlot[int]()
	r := newRecorder[int]()
	u := newRecorder[int]()
	cell.Connect(r)
	cell.Updated().Connect(u)

	cell.SetBlocked(true)
	cell.Set(4)
	if cell.Get() != 4 {
		t.Errorf("expected value stored while blocked, got %d", cell.Get())
	}
	if !cell.Blocked() || !cell.Updated().Blocked() {
		t.Error("expected cell and Updated to be blocked")
	}

	cell.SetBlocked(false)
	if r.count() != 0 || u.count() != 0 {
		t.Errorf("expected no replay on unblock, got %d and %d", r.count(), u.count())
	}

	cell.Set(4)
	if r.count() != 0 {
		t.Errorf("expected set equal to stored value to stay silent, got %d", r.count())
	}
	cell.Set(5)
	if got := r.got(); !equalSlices(got, []int{5}) {
		t.Errorf("expected [5], got %v", got)
	}
}

func TestValueSlotWithEquals(t *testing.T) {
	cell := NewValueSlotOf(20.0, WithEquals(func(a, b float64) bool {
		return math.Abs(a-b) < 0.5
	}))
	r := newRecorder[float64]()
	cell.Connect(r)

	cell.Set(20.2)
	if r.count() != 0 {
		t.Errorf("expected change below tolerance to be silent, got %d", r.count())
	}
	if cell.Get() != 20.2 {
		t.Errorf("expected value stored anyway, got %v", cell.Get())
	}

	cell.Set(21)
	if got := r.got(); !equalSlices(got, []float64{21}) {
		t.Errorf("expected [21], got %v", got)
	}
}

func TestValueSlotWithEqualsTypeMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for mismatched WithEquals")
		}
	}()
	NewValueSlot[string](WithEquals(func(a, b int) bool { return a == b }))
}

func TestValueSlotEmitForces(t *testing.T) {
	cell := NewValueSlotOf("a")
	r := newRecorder[string]()
	cell.Connect(r)

	cell.Emit("a")
	cell.Emit("b")

	if got := r.got(); !equalSlices(got, []string{"a", "b"}) {
		t.Errorf("expected forced emits, got %v", got)
	}
	if cell.Get() != "b" {
		t.Errorf("expected Emit to store, got %q", cell.Get())
	}
}

func TestValueSlotUpdate(t *testing.T) {
	count := NewValueSlot[int]()
	r := newRecorder[int]()
	count.Connect(r)

	count.Update(func(n int) int { return n + 1 })
	count.Update(func(n int) int { return n + 1 })
	count.Update(func(n int) int { return n })

	if count.Get() != 2 {
		t.Errorf("expected 2, got %d", count.Get())
	}
	if got := r.got(); !equalSlices(got, []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", got)
	}
}

func TestValueSlotReceiveFromSignal(t *testing.T) {
	pour := NewSignal[string]()
	content := NewValueSlot[string]()
	pour.Connect(content)

	pour.Emit("tea")
	if content.Get() != "tea" {
		t.Errorf("expected tea, got %q", content.Get())
	}

	pour.Disconnect(content)
	pour.Emit("coffee")
	if content.Get() != "tea" {
		t.Errorf("expected disconnected cell to keep tea, got %q", content.Get())
	}
}

func TestValueSlotReentrantRead(t *testing.T) {
	cell := NewValueSlot[int]()
	var seen int
	cell.Connect(Func(func(int) {
		seen = cell.Get()
	}))

	cell.Set(9)
	if seen != 9 {
		t.Errorf("expected slot to read the new value, got %d", seen)
	}
}

func TestValueSlotPointerEquality(t *testing.T) {
	type tea struct{ kind string }
	cell := NewValueSlot[*tea]()
	r := newRecorder[*tea]()
	cell.Connect(r)

	green := &tea{kind: "green"}
	cell.Set(green)
	cell.Set(green)
	cell.Set(&tea{kind: "green"})
	cell.Set(&tea{kind: "black"})

	if r.count() != 2 {
		t.Errorf("expected identical and equal pointers to be silent, got %d notifications", r.count())
	}
}

func TestValueSlotInterfaceType(t *testing.T) {
	cell := NewValueSlot[any]()
	r := newRecorder[any]()
	cell.Connect(r)

	cell.Set(1)
	cell.Set("1")
	cell.Set("1")
	cell.Set(nil)

	if r.count() != 3 {
		t.Errorf("expected 3 notifications for mixed dynamic types, got %d", r.count())
	}
}

func TestValueSlotSubscriberError(t *testing.T) {
	cell := NewValueSlot[int](WithName("level"))
	boom := errors.New("boom")
	cell.Connect(FuncErr(func(int) error { return boom }))

	err := cell.Set(1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var de *DeliveryError
	if !errors.As(err, &de) || de.Signal != "level" {
		t.Errorf("expected DeliveryError from level, got %v", err)
	}
	if cell.Get() != 1 {
		t.Errorf("expected value stored despite failure, got %d", cell.Get())
	}
}

func TestValueSlotNamesAndCounts(t *testing.T) {
	cell := NewValueSlot[int](WithName("temp"))
	if cell.Name() != "temp" {
		t.Errorf("expected name temp, got %q", cell.Name())
	}
	if cell.Updated().Name() != "temp.updated" {
		t.Errorf("expected updated name temp.updated, got %q", cell.Updated().Name())
	}

	r := newRecorder[int]()
	cell.Connect(r)
	cell.Updated().Connect(r)
	if cell.Len() != 1 {
		t.Errorf("expected 1 registration, got %d", cell.Len())
	}

	cell.DisconnectAll()
	if cell.Len() != 0 || cell.Updated().Len() != 1 {
		t.Errorf("expected DisconnectAll to leave Updated alone, got %d and %d", cell.Len(), cell.Updated().Len())
	}
	if err := cell.Disconnect(nil); !errors.Is(err, ErrNilSlot) {
		t.Errorf("expected ErrNilSlot, got %v", err)
	}
}
