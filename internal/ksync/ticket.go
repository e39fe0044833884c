package ksync

import "sync/atomic"

// TicketLock is a FIFO lock around a payload of type T. Each acquirer draws
// the next ticket and waits until it is being served, so the lock is granted
// in the order tickets were drawn. There is no TryLock: a drawn ticket must
// be served.
//
// Counters are 32-bit and wrap; only equality is ever compared.
type TicketLock[T any] struct {
	next    atomic.Uint32
	serving atomic.Uint32
	data    T
}

// NewTicketLock returns an unlocked lock holding v.
func NewTicketLock[T any](v T) *TicketLock[T] {
	return &TicketLock[T]{data: v}
}

// Lock draws a ticket and spins until it is served. The returned guard is
// the only way to reach the payload; release it with Unlock, typically
// deferred.
func (l *TicketLock[T]) Lock() *Guard[T] {
	ticket := l.next.Add(1) - 1
	for n := 0; l.serving.Load() != ticket; n++ {
		spin(n)
	}
	return &Guard[T]{lock: l, ticket: ticket}
}

// With runs fn with the lock held, releasing it on every exit path.
func (l *TicketLock[T]) With(fn func(*T)) {
	g := l.Lock()
	defer g.Unlock()
	fn(g.Value())
}

// Serving returns the ticket currently being served.
func (l *TicketLock[T]) Serving() uint32 { return l.serving.Load() }

// NextTicket returns the ticket the next acquirer will draw.
func (l *TicketLock[T]) NextTicket() uint32 { return l.next.Load() }

// Guard is proof that its goroutine holds a TicketLock. It must not be
// shared between goroutines.
type Guard[T any] struct {
	lock     *TicketLock[T]
	ticket   uint32
	released bool
}

// Value returns the payload. It panics once the guard has been released.
func (g *Guard[T]) Value() *T {
	if g.released {
		panic("ksync: use of released ticket lock guard")
	}
	return &g.lock.data
}

// Ticket returns the ticket this guard was served on.
func (g *Guard[T]) Ticket() uint32 { return g.ticket }

// Unlock serves the next ticket. Only the first call has an effect, so it
// is safe to both defer Unlock and call it early.
func (g *Guard[T]) Unlock() {
	if g.released {
		return
	}
	g.released = true
	g.lock.serving.Add(1)
}
