// Package ksync provides busy-waiting mutual exclusion for code that must
// never sleep: a test-and-set SpinLock and a FIFO TicketLock. Both guard a
// payload that is only reachable while the lock is held.
//
// Waiters spin with a processor relax hint and never park. Every
// yieldEvery spins they let the Go scheduler run, so that a holder that was
// preempted on an oversubscribed host can get back on a CPU; the waiter stays
// runnable and its place in line is unchanged.
package ksync

import (
	"runtime"
	"sync/atomic"
)

const yieldEvery = 1 << 10

// spin is one iteration of a wait loop.
func spin(n int) {
	cpuRelax()
	if n%yieldEvery == yieldEvery-1 {
		runtime.Gosched()
	}
}

// SpinLock is a test-and-set lock around a payload of type T. It is not
// fair. The zero value is unlocked and holds the zero T.
type SpinLock[T any] struct {
	held atomic.Bool
	data T
}

// NewSpinLock returns an unlocked lock holding v.
func NewSpinLock[T any](v T) *SpinLock[T] {
	return &SpinLock[T]{data: v}
}

// TryLock makes a single acquisition attempt. On success it returns the
// payload and true; the caller must call Unlock. It never blocks.
func (l *SpinLock[T]) TryLock() (*T, bool) {
	if l.held.CompareAndSwap(false, true) {
		return &l.data, true
	}
	return nil, false
}

// Lock spins until the lock is acquired and returns the payload.
func (l *SpinLock[T]) Lock() *T {
	for n := 0; ; n++ {
		// Spin on a plain load so waiters do not bounce the cache line
		// with failed CAS attempts.
		if !l.held.Load() && l.held.CompareAndSwap(false, true) {
			return &l.data
		}
		spin(n)
	}
}

// Unlock releases the lock. Only the holder may call it, and the payload
// pointer must not be used afterwards.
func (l *SpinLock[T]) Unlock() {
	l.held.Store(false)
}

// Locked reports whether the lock is currently held. The answer may be
// stale by the time the caller looks at it.
func (l *SpinLock[T]) Locked() bool { return l.held.Load() }

// Do runs fn with the lock held, releasing it even if fn panics.
func (l *SpinLock[T]) Do(fn func(*T)) {
	v := l.Lock()
	defer l.Unlock()
	fn(v)
}
