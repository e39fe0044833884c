package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hartyporpoise/hwrt/internal/bulk"
	"github.com/hartyporpoise/hwrt/internal/ksync"
)

type benchFlags struct {
	size     string
	duration time.Duration
	levels   []string
	workers  int
	locks    bool
}

func newBenchCmd(gf *globalFlags) *cobra.Command {
	var bf benchFlags
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure throughput of every strategy, the FPU hooks and the locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, gf)
			if err != nil {
				return err
			}
			defer e.log.Sync()

			size, err := humanize.ParseBytes(bf.size)
			if err != nil {
				return fmt.Errorf("--size: %w", err)
			}
			if size == 0 {
				return fmt.Errorf("--size must be positive")
			}
			levels, err := parseLevels(bf.levels)
			if err != nil {
				return err
			}
			if len(levels) == 0 {
				levels = bulk.Levels()
			}

			runBulkBench(e, levels, int(size), bf.duration)
			runFPUBench(e, bf.duration)
			if bf.locks {
				if err := runLockBench(cmd.Context(), e, bf.workers, bf.duration); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&bf.size, "size", "64KiB", "Buffer size per call")
	f.DurationVar(&bf.duration, "duration", 200*time.Millisecond, "Time spent on each measurement")
	f.StringSliceVar(&bf.levels, "level", nil, "Strategies to measure; default all")
	f.BoolVar(&bf.locks, "locks", false, "Also measure spin and ticket lock hand-off")
	f.IntVar(&bf.workers, "workers", runtime.GOMAXPROCS(0), "Goroutines contending in the lock benchmark")
	return cmd
}

// benchInputs holds buffers shared by every bulk measurement.
type benchInputs struct {
	src, dst []byte
	str      []byte // non-zero bytes then a terminator
}

func newBenchInputs(size int) benchInputs {
	in := benchInputs{src: make([]byte, size), dst: make([]byte, size), str: make([]byte, size)}
	for i := range in.src {
		in.src[i] = byte(i*7 + 1)
		in.str[i] = byte(1 + i%250)
	}
	in.str[size-1] = 0
	return in
}

// measure calls fn until d has elapsed and returns the call count and the
// time actually spent.
func measure(d time.Duration, fn func()) (int64, time.Duration) {
	var n int64
	start := time.Now()
	for {
		for i := 0; i < 16; i++ {
			fn()
		}
		n += 16
		if el := time.Since(start); el >= d {
			return n, el
		}
	}
}

func runBulkBench(e *env, levels []bulk.Level, size int, d time.Duration) {
	in := newBenchInputs(size)
	str2 := append([]byte(nil), in.str...)
	ops := []struct {
		op bulk.Op
		fn func(t *bulk.Table)
	}{
		{bulk.OpCopy, func(t *bulk.Table) { t.Copy(in.dst, in.src) }},
		{bulk.OpFill, func(t *bulk.Table) { t.Fill(in.dst, 0x5A) }},
		{bulk.OpLength, func(t *bulk.Table) { t.Length(in.str) }},
		{bulk.OpCompare, func(t *bulk.Table) { t.Compare(in.str, str2) }},
		{bulk.OpMemCompare, func(t *bulk.Table) { t.MemCompare(in.src, in.src) }},
		{bulk.OpFindByte, func(t *bulk.Table) { t.FindByte(in.str, 0xFF) }},
		{bulk.OpCountByte, func(t *bulk.Table) { t.CountByte(in.src, 0x5A) }},
	}

	selected := e.sub.Table()
	fmt.Printf("%s %s per call, %s per measurement\n", titleStyle.Render("Bulk operations:"), humanize.IBytes(uint64(size)), d)
	tbl := newTable(append([]string{"Operation"}, levelNames(levels)...)...)
	for _, o := range ops {
		row := []string{o.op.String()}
		for _, l := range levels {
			t := bulk.ForLevel(l)
			n, el := measure(d, func() { o.fn(t) })
			bytes := n * int64(size)
			e.sub.Metrics().RecordThroughput(l.String()+"/"+o.op.String(), bytes, el)
			cell := humanize.IBytes(uint64(float64(bytes)/el.Seconds())) + "/s"
			if selected.Level(o.op) == l {
				cell += " *"
			}
			row = append(row, cell)
		}
		tbl.Row(row...)
	}
	fmt.Println(tbl.String())
	fmt.Println("  * strategy selected for this processor")
	fmt.Println()
}

func levelNames(levels []bulk.Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = l.String()
	}
	return out
}

// runFPUBench measures begin/end pairs on the kernel context. The goroutine
// stays on one thread so the saved image belongs to one core's registers.
func runFPUBench(e *env, d time.Duration) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	info := e.sub.Info()
	n, el := measure(d, func() {
		e.sub.FPUBegin()
		e.sub.FPUEnd()
	})
	rate := float64(n) / el.Seconds()
	fmt.Printf("%s %s pairs/s (%s image)\n\n", titleStyle.Render("FPU begin/end:"),
		humanize.Comma(int64(rate)), info.FPUFormat)
	e.log.Debug("fpu bench", zap.Int64("pairs", n), zap.Duration("elapsed", el))
}

// runLockBench has workers goroutines increment a shared counter under each
// lock for d and checks that no increment was lost.
func runLockBench(ctx context.Context, e *env, workers int, d time.Duration) error {
	if workers < 1 {
		workers = 1
	}
	spin := ksync.NewSpinLock(int64(0))
	ticket := ksync.NewTicketLock(int64(0))
	locks := []struct {
		name string
		inc  func()
		read func() int64
	}{
		{"spin", func() { spin.Do(func(v *int64) { *v++ }) }, func() int64 {
			v := spin.Lock()
			defer spin.Unlock()
			return *v
		}},
		{"ticket", func() { ticket.With(func(v *int64) { *v++ }) }, func() int64 {
			g := ticket.Lock()
			defer g.Unlock()
			return *g.Value()
		}},
	}

	tbl := newTable("Lock", "Workers", "Acquisitions/s")
	for _, l := range locks {
		counts := make([]int64, workers)
		g, gctx := errgroup.WithContext(ctx)
		start := time.Now()
		for w := range workers {
			g.Go(func() error {
				for time.Since(start) < d {
					if err := gctx.Err(); err != nil {
						return err
					}
					for i := 0; i < 64; i++ {
						l.inc()
					}
					counts[w] += 64
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		el := time.Since(start)

		var total int64
		for _, c := range counts {
			total += c
		}
		if got := l.read(); got != total {
			return fmt.Errorf("%s lock lost updates: counter %d, increments %d", l.name, got, total)
		}
		e.sub.Metrics().RecordThroughput("lock/"+l.name, total, el)
		tbl.Row(l.name, fmt.Sprint(workers), humanize.Comma(int64(float64(total)/el.Seconds())))
	}
	fmt.Println(titleStyle.Render("Locks:"))
	fmt.Println(tbl.String())
	return nil
}
