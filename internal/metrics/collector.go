// Package metrics collects counters for the kernel boundary surface and the
// FPU context managers.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Entry names a boundary entry point.
type Entry uint8

const (
	Copy Entry = iota
	Move
	Fill
	Length
	Compare
	CompareN
	FindByte
	CountByte
	FindTerminated
	CopyPage
	ZeroPage
	PagesEqual
	Checksum

	numEntries
)

var entryNames = [numEntries]string{
	"copy", "move", "fill", "length", "compare", "compare_n", "find_byte",
	"count_byte", "find_terminated", "copy_page", "zero_page", "pages_equal", "checksum",
}

func (e Entry) String() string {
	if e < numEntries {
		return entryNames[e]
	}
	return fmt.Sprintf("Entry(%d)", uint8(e))
}

// Snapshot is a point-in-time view of the counters, safe to marshal to JSON.
type Snapshot struct {
	Calls          map[string]int64   `json:"calls"`
	BytesProcessed int64              `json:"bytes_processed"`
	FPURestores    int64              `json:"fpu_restores"`
	FPUSaves       int64              `json:"fpu_saves"`
	FPUSkipped     int64              `json:"fpu_skipped"` // begin/end before init
	Throughput     map[string]float64 `json:"throughput_bytes_per_second"`
	UptimeSeconds  float64            `json:"uptime_seconds"`
}

// Collector is a thread-safe metrics store. The hot-path counters are plain
// atomics; only throughput samples take the mutex.
type Collector struct {
	startTime time.Time

	calls       [numEntries]atomic.Int64
	bytes       atomic.Int64
	fpuRestores atomic.Int64
	fpuSaves    atomic.Int64
	fpuSkipped  atomic.Int64

	mu         sync.Mutex
	throughput map[string][]float64
}

// NewCollector creates and starts a Collector.
func NewCollector() *Collector {
	return &Collector{
		startTime:  time.Now(),
		throughput: make(map[string][]float64),
	}
}

// RecordCall counts one call to e that touched n bytes.
func (c *Collector) RecordCall(e Entry, n int) {
	c.calls[e].Add(1)
	c.bytes.Add(int64(n))
}

// RecordFPU counts a begin (restore) or end (save) transition. Calls that
// were ignored because the subsystem was not initialized count as skipped.
func (c *Collector) RecordFPU(begin, skipped bool) {
	switch {
	case skipped:
		c.fpuSkipped.Add(1)
	case begin:
		c.fpuRestores.Add(1)
	default:
		c.fpuSaves.Add(1)
	}
}

// RecordThroughput adds a timed measurement under label, typically a
// strategy name from a benchmark run.
func (c *Collector) RecordThroughput(label string, n int64, d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := append(c.throughput[label], float64(n)/d.Seconds())
	// Cap samples at 1000 entries.
	if len(s) > 1000 {
		s = s[len(s)-1000:]
	}
	c.throughput[label] = s
}

// Calls returns the number of calls recorded for e.
func (c *Collector) Calls(e Entry) int64 { return c.calls[e].Load() }

// Snapshot returns current metrics as an immutable value.
func (c *Collector) Snapshot() Snapshot {
	snap := Snapshot{
		Calls:          make(map[string]int64),
		BytesProcessed: c.bytes.Load(),
		FPURestores:    c.fpuRestores.Load(),
		FPUSaves:       c.fpuSaves.Load(),
		FPUSkipped:     c.fpuSkipped.Load(),
		Throughput:     make(map[string]float64),
		UptimeSeconds:  time.Since(c.startTime).Seconds(),
	}
	for e := Entry(0); e < numEntries; e++ {
		if n := c.calls[e].Load(); n > 0 {
			snap.Calls[e.String()] = n
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for label, samples := range c.throughput {
		snap.Throughput[label] = average(samples)
	}
	return snap
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
