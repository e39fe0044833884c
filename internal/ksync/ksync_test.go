package ksync

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSpinLockTryLock(t *testing.T) {
	l := NewSpinLock(42)

	v, ok := l.TryLock()
	require.True(t, ok)
	assert.Equal(t, 42, *v)
	assert.True(t, l.Locked())

	v2, ok := l.TryLock()
	assert.False(t, ok, "second TryLock must fail while held")
	assert.Nil(t, v2)

	l.Unlock()
	assert.False(t, l.Locked())
	_, ok = l.TryLock()
	assert.True(t, ok)
	l.Unlock()
}

func TestSpinLockTryLockExactlyOneWins(t *testing.T) {
	var l SpinLock[struct{}]
	const contenders = 16

	var wins atomic.Int32
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := l.TryLock(); ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.True(t, l.Locked())
}

func TestSpinLockMutualExclusion(t *testing.T) {
	l := NewSpinLock(0)
	const workers, iters = 8, 2000

	var inside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				v := l.Lock()
				if inside.Add(1) != 1 {
					t.Error("two holders inside the critical section")
				}
				*v++
				inside.Add(-1)
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	v, ok := l.TryLock()
	require.True(t, ok)
	assert.Equal(t, workers*iters, *v)
	l.Unlock()
}

func TestSpinLockDoReleasesOnPanic(t *testing.T) {
	l := NewSpinLock("payload")
	assert.Panics(t, func() {
		l.Do(func(s *string) { panic(*s) })
	})
	assert.False(t, l.Locked())

	l.Do(func(s *string) { *s = "changed" })
	v := l.Lock()
	assert.Equal(t, "changed", *v)
	l.Unlock()
}

func TestTicketLockServesInTicketOrder(t *testing.T) {
	l := NewTicketLock([]uint32(nil))
	const workers, iters = 6, 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				g := l.Lock()
				*g.Value() = append(*g.Value(), g.Ticket())
				g.Unlock()
			}
		}()
	}
	wg.Wait()

	g := l.Lock()
	defer g.Unlock()
	order := *g.Value()
	require.Len(t, order, workers*iters)
	for i, ticket := range order {
		require.Equal(t, uint32(i), ticket, "acquisition %d", i)
	}
	assert.Equal(t, uint32(workers*iters), g.Ticket())
}

func TestTicketLockServingAdvancesOncePerRelease(t *testing.T) {
	var l TicketLock[int]

	g := l.Lock()
	assert.Equal(t, uint32(0), g.Ticket())
	assert.Equal(t, uint32(1), l.NextTicket())
	assert.Equal(t, uint32(0), l.Serving())

	g.Unlock()
	assert.Equal(t, uint32(1), l.Serving())
	g.Unlock()
	assert.Equal(t, uint32(1), l.Serving(), "second Unlock must not advance")
}

func TestTicketLockGuardReleasedOnEveryPath(t *testing.T) {
	l := NewTicketLock(0)

	func() {
		g := l.Lock()
		defer g.Unlock()
		*g.Value() = 1
	}()
	assert.Equal(t, uint32(1), l.Serving())

	assert.Panics(t, func() {
		l.With(func(v *int) { panic("boom") })
	})
	assert.Equal(t, uint32(2), l.Serving())

	l.With(func(v *int) { *v++ })
	assert.Equal(t, uint32(3), l.Serving())
	assert.Equal(t, l.NextTicket(), l.Serving())
}

func TestTicketLockGuardValueAfterUnlockPanics(t *testing.T) {
	l := NewTicketLock(0)
	g := l.Lock()
	g.Unlock()
	assert.Panics(t, func() { g.Value() })
}

func TestTicketLockWraps(t *testing.T) {
	var l TicketLock[int]
	l.next.Store(math.MaxUint32)
	l.serving.Store(math.MaxUint32)

	g := l.Lock()
	assert.Equal(t, uint32(math.MaxUint32), g.Ticket())
	g.Unlock()

	g = l.Lock()
	assert.Equal(t, uint32(0), g.Ticket())
	g.Unlock()
	assert.Equal(t, uint32(1), l.Serving())
}

func TestTicketLockMutualExclusion(t *testing.T) {
	l := NewTicketLock(0)
	const workers, iters = 4, 500

	var inside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				l.With(func(v *int) {
					if inside.Add(1) != 1 {
						t.Error("two holders inside the critical section")
					}
					*v++
					inside.Add(-1)
				})
			}
		}()
	}
	wg.Wait()

	l.With(func(v *int) { assert.Equal(t, workers*iters, *v) })
}

func BenchmarkSpinLockUncontended(b *testing.B) {
	var l SpinLock[int]
	for i := 0; i < b.N; i++ {
		v := l.Lock()
		*v++
		l.Unlock()
	}
}

func BenchmarkTicketLockUncontended(b *testing.B) {
	var l TicketLock[int]
	for i := 0; i < b.N; i++ {
		g := l.Lock()
		*g.Value()++
		g.Unlock()
	}
}
