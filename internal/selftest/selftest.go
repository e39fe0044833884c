// Package selftest checks every bulk strategy against the Scalar reference
// over a fixed corpus of lengths, alignments and contents.
//
// All strategies are plain Go, so every level can be checked on any host
// regardless of which one the dispatch table would select.
package selftest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hartyporpoise/hwrt/internal/bulk"
)

// ErrMismatch is wrapped by every result whose strategy disagreed with the
// Scalar reference.
var ErrMismatch = errors.New("strategy disagrees with scalar reference")

// maxOffset is the largest misalignment applied to buffers. Offsets cover
// every position within a machine word.
const maxOffset = 8

// lengths covers every size around the 8/16/32-byte strides, then a few
// page-scale sizes.
var lengths = func() []int {
	var out []int
	for n := 0; n <= 70; n++ {
		out = append(out, n)
	}
	return append(out, 127, 128, 129, 255, 256, 1000, 4095, 4096)
}()

// Result is the outcome for one (level, op) pair.
type Result struct {
	Level bulk.Level
	Op    bulk.Op
	Cases int
	Err   error
}

// Passed reports whether every case matched.
func (r Result) Passed() bool { return r.Err == nil }

// Report is the outcome of a Run.
type Report struct {
	Results  []Result
	Duration time.Duration
}

// Cases returns the total number of cases checked.
func (r Report) Cases() int {
	n := 0
	for _, res := range r.Results {
		n += res.Cases
	}
	return n
}

// Err joins every failed result, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Run checks each level in levels (every level if none are given) against
// the Scalar reference. Pairs run concurrently, bounded by GOMAXPROCS. The
// returned error is non-nil only if ctx ends first; mismatches are reported
// in the Report.
func Run(ctx context.Context, levels ...bulk.Level) (Report, error) {
	if len(levels) == 0 {
		levels = bulk.Levels()
	}
	start := time.Now()
	ref := bulk.ForLevel(bulk.Scalar)

	var (
		mu      sync.Mutex
		results []Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, l := range levels {
		tbl := bulk.ForLevel(l)
		for _, op := range bulk.Ops() {
			g.Go(func() error {
				res, err := check(gctx, ref, tbl, l, op)
				if err != nil {
					return err
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				return nil
			})
		}
	}
	err := g.Wait()

	// Stable order: by level, then by op.
	sorted := make([]Result, 0, len(results))
	for _, l := range levels {
		for _, op := range bulk.Ops() {
			for _, res := range results {
				if res.Level == l && res.Op == op {
					sorted = append(sorted, res)
				}
			}
		}
	}
	return Report{Results: sorted, Duration: time.Since(start)}, err
}

type caseFunc func(ref, tbl *bulk.Table, rng *rand.Rand, n, off int) error

var cases = map[bulk.Op]caseFunc{
	bulk.OpCopy:       checkCopy,
	bulk.OpFill:       checkFill,
	bulk.OpLength:     checkLength,
	bulk.OpCompare:    checkCompare,
	bulk.OpMemCompare: checkMemCompare,
	bulk.OpFindByte:   checkFindByte,
	bulk.OpCountByte:  checkCountByte,
}

func check(ctx context.Context, ref, tbl *bulk.Table, l bulk.Level, op bulk.Op) (Result, error) {
	res := Result{Level: l, Op: op}
	fn, ok := cases[op]
	if !ok {
		return res, nil
	}
	// Seeded per op so every level sees the same inputs.
	rng := rand.New(rand.NewPCG(uint64(op)+1, 0x68777274))
	for _, n := range lengths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		for off := 0; off < maxOffset; off++ {
			res.Cases++
			if err := fn(ref, tbl, rng, n, off); err != nil {
				res.Err = fmt.Errorf("%w: %s/%s len=%d offset=%d: %v", ErrMismatch, l, op, n, off, err)
				return res, nil
			}
		}
	}
	return res, nil
}

func random(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Uint32())
	}
	return b
}

// nonZero is random with every byte in [1, 255].
func nonZero(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(1 + rng.IntN(255))
	}
	return b
}

// placed returns a buffer with p copied at offset off and guard bytes after.
func placed(p []byte, off int) []byte {
	buf := make([]byte, off+len(p)+maxOffset)
	for i := range buf {
		buf[i] = 0xA5
	}
	copy(buf[off:], p)
	return buf
}

func checkCopy(ref, tbl *bulk.Table, rng *rand.Rand, n, off int) error {
	src := placed(random(rng, n), off)
	want := placed(nil, off+n)
	got := placed(nil, off+n)
	ref.Copy(want[off:], src[off:off+n])
	tbl.Copy(got[off:], src[off:off+n])
	if !bytes.Equal(want, got) {
		return errors.New("destination differs")
	}
	return nil
}

func checkFill(ref, tbl *bulk.Table, rng *rand.Rand, n, off int) error {
	c := byte(rng.Uint32())
	want := placed(random(rng, n), off)
	got := bytes.Clone(want)
	ref.Fill(want[off:off+n], c)
	tbl.Fill(got[off:off+n], c)
	if !bytes.Equal(want, got) {
		return fmt.Errorf("fill with %#02x differs", c)
	}
	return nil
}

func checkLength(ref, tbl *bulk.Table, rng *rand.Rand, n, off int) error {
	s := nonZero(rng, n)
	// Either no terminator or one at a random position.
	if n > 0 && rng.IntN(4) != 0 {
		s[rng.IntN(n)] = 0
	}
	buf := placed(s, off)[off : off+n]
	if want, got := ref.Length(buf), tbl.Length(buf); want != got {
		return fmt.Errorf("got %d, want %d", got, want)
	}
	return nil
}

// stringPair returns two terminated strings that share a prefix and then
// differ in one byte, possibly with the high bit set.
func stringPair(rng *rand.Rand, n int) (a, b []byte) {
	a = append(nonZero(rng, n), 0)
	b = bytes.Clone(a)
	if n > 0 {
		i := rng.IntN(n + 1)
		switch rng.IntN(3) {
		case 0:
			b[i] = byte(0x80 + rng.IntN(128))
		case 1:
			b[i] = 0
		}
	}
	return a, b
}

func checkCompare(ref, tbl *bulk.Table, rng *rand.Rand, n, off int) error {
	a, b := stringPair(rng, n)
	pa, pb := placed(a, off)[off:off+len(a)], placed(b, maxOffset-1-off)[maxOffset-1-off:maxOffset-1-off+len(b)]
	if want, got := ref.Compare(pa, pb), tbl.Compare(pa, pb); want != got {
		return fmt.Errorf("compare got %d, want %d", got, want)
	}
	if want, got := ref.Compare(pb, pa), tbl.Compare(pb, pa); want != got {
		return fmt.Errorf("reversed compare got %d, want %d", got, want)
	}
	limit := rng.IntN(n + 2)
	if want, got := ref.CompareN(pa, pb, limit), tbl.CompareN(pa, pb, limit); want != got {
		return fmt.Errorf("compare_n(%d) got %d, want %d", limit, got, want)
	}
	return nil
}

func checkMemCompare(ref, tbl *bulk.Table, rng *rand.Rand, n, off int) error {
	a := random(rng, n)
	b := bytes.Clone(a)
	if n > 0 && rng.IntN(3) != 0 {
		b[rng.IntN(n)] ^= byte(1 + rng.IntN(255))
	}
	if n > 0 && rng.IntN(5) == 0 {
		b = b[:rng.IntN(n)]
	}
	pa := placed(a, off)[off : off+len(a)]
	if want, got := ref.MemCompare(pa, b), tbl.MemCompare(pa, b); want != got {
		return fmt.Errorf("got %d, want %d", got, want)
	}
	if ref.Equal(pa, b) != tbl.Equal(pa, b) {
		return errors.New("equal differs")
	}
	return nil
}

// smallAlphabet draws from four values so that searches hit often.
func smallAlphabet(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = []byte{0, 'a', 0x80, 0xFF}[rng.IntN(4)]
	}
	return b
}

func checkFindByte(ref, tbl *bulk.Table, rng *rand.Rand, n, off int) error {
	h := placed(smallAlphabet(rng, n), off)[off : off+n]
	for _, c := range []byte{0, 'a', 0x80, 0xFF, 'z'} {
		if want, got := ref.FindByte(h, c), tbl.FindByte(h, c); want != got {
			return fmt.Errorf("find %#02x got %d, want %d", c, got, want)
		}
		if want, got := ref.FindTerminated(h, c), tbl.FindTerminated(h, c); want != got {
			return fmt.Errorf("find_terminated %#02x got %d, want %d", c, got, want)
		}
	}
	return nil
}

func checkCountByte(ref, tbl *bulk.Table, rng *rand.Rand, n, off int) error {
	h := placed(smallAlphabet(rng, n), off)[off : off+n]
	for _, c := range []byte{0, 'a', 0x80, 0xFF, 'z'} {
		if want, got := ref.CountByte(h, c), tbl.CountByte(h, c); want != got {
			return fmt.Errorf("count %#02x got %d, want %d", c, got, want)
		}
	}
	return nil
}
