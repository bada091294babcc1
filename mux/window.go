package mux

import "sync"

// A Window counts the bytes still permitted on one direction of a channel.
// It is consumed as data is sent or received and replenished by window
// adjust messages. The Window itself never blocks; waiting for budget is
// the data path's job.
type Window struct {
	mu        sync.Mutex
	capacity  uint32
	available uint32
}

// NewWindow returns a window with the given starting budget. The capacity
// is an advisory sizing hint: peers may grant more than it through
// adjustments.
func NewWindow(capacity uint32) *Window {
	return &Window{capacity: capacity, available: capacity}
}

// Consume decrements the budget by n as one indivisible step. It returns
// ErrInsufficientWindow, leaving the budget untouched, when n exceeds it.
func (w *Window) Consume(n uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n > w.available {
		return ErrInsufficientWindow
	}
	w.available -= n
	return nil
}

// Adjust grows the budget by n. It reports false if the grant would
// overflow the counter, which only a misbehaving peer can cause.
func (w *Window) Adjust(n uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.available+n < w.available {
		return false
	}
	w.available += n
	return true
}

// Available returns a snapshot of the remaining budget.
func (w *Window) Available() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.available
}

// Capacity returns the advisory capacity the window was created with.
func (w *Window) Capacity() uint32 {
	return w.capacity
}
