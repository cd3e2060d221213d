// Package debounce collapses bursts of calls into one trailing call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delays fn until wait has passed without another Call. Only the
// argument of the last Call in a burst is delivered.
type Debouncer[T any] struct {
	wait time.Duration
	fn   func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	arg     T
}

// New returns a Debouncer that calls fn once wait has elapsed after the last Call.
func New[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{wait: wait, fn: fn}
}

// Call records arg and restarts the timer.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.arg = arg
	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Flush runs a pending call right away. It is a no-op when nothing is pending.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.mu.Unlock()
	d.fire(gen)
}

// Stop drops a pending call.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	var zero T
	d.arg = zero
}

// fire delivers the pending argument unless a newer Call superseded gen.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	arg := d.arg
	d.pending = false
	var zero T
	d.arg = zero
	d.mu.Unlock()

	d.fn(arg)
}
