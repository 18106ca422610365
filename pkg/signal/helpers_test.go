package signal

import "sync"

// recorder is a pointer slot that records every value it receives.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
	err    error
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{}
}

func (r *recorder[T]) Receive(v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
	return r.err
}

func (r *recorder[T]) got() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

func (r *recorder[T]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// orderLog records which named slot fired, in order.
type orderLog struct {
	mu    sync.Mutex
	names []string
}

func (l *orderLog) slot(name string) *FuncSlot[int] {
	return Func(func(int) {
		l.mu.Lock()
		l.names = append(l.names, name)
		l.mu.Unlock()
	})
}

func (l *orderLog) got() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
