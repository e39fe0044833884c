// Package kernel is the boundary surface the rest of the kernel calls into:
// one-time bring-up, FPU begin/end hooks, and bulk memory and string
// entry points routed through the capability dispatch table.
package kernel

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hartyporpoise/hwrt/internal/bulk"
	"github.com/hartyporpoise/hwrt/internal/config"
	"github.com/hartyporpoise/hwrt/internal/cpu"
	"github.com/hartyporpoise/hwrt/internal/fpu"
	"github.com/hartyporpoise/hwrt/internal/metrics"
	"github.com/hartyporpoise/hwrt/internal/platform"
)

var scalarTable = bulk.ForLevel(bulk.Scalar)

// Subsystem owns the feature registry, the FPU manager(s) and the dispatch
// table for one machine.
type Subsystem struct {
	machine  platform.Machine
	registry *cpu.Registry
	cfg      config.Config
	log      *zap.Logger
	metrics  *metrics.Collector

	initMu sync.Mutex
	ready  atomic.Bool
	global *fpu.Manager
	arena  *fpu.Arena
	table  atomic.Pointer[bulk.Table]
}

// Option configures a Subsystem.
type Option func(*Subsystem)

// WithRegistry uses r instead of a private registry. If r is already
// initialized its flag set is used as is and configured disabled features
// are not applied.
func WithRegistry(r *cpu.Registry) Option {
	return func(s *Subsystem) { s.registry = r }
}

// WithConfig sets the configuration applied at Init.
func WithConfig(cfg config.Config) Option {
	return func(s *Subsystem) { s.cfg = cfg }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Subsystem) { s.log = l }
}

// WithMetrics sets the collector that boundary calls are counted in.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Subsystem) { s.metrics = c }
}

// New returns an uninitialized subsystem for m. Until Init runs, FPU hooks
// are no-ops and bulk entry points use the scalar strategy.
func New(m platform.Machine, opts ...Option) *Subsystem {
	s := &Subsystem{
		machine:  m,
		registry: cpu.NewRegistry(),
		cfg:      config.Default(),
		log:      zap.NewNop(),
		metrics:  metrics.NewCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.table.Store(scalarTable)
	return s
}

// Init detects capabilities, configures the FPU, builds the manager(s) and
// the dispatch table, and marks the subsystem ready. It runs once; later
// calls log a warning and return.
func (s *Subsystem) Init() {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready.Load() {
		s.log.Warn("subsystem already initialized")
		return
	}

	if s.registry.Ready() && len(s.cfg.DisabledFeatures) > 0 {
		s.log.Warn("cpu registry already initialized, disabled features not applied",
			zap.Strings("disabled", s.cfg.DisabledFeatures))
	}
	fs := s.registry.Init(s.machine, cpu.WithDisabled(s.disabled()...), cpu.WithLogger(s.log))
	if _, ok := s.machine.(*platform.HostMachine); ok {
		if diff := s.registry.CrossCheck(cpu.HostHints()); len(diff) > 0 {
			s.log.Warn("cpu feature detection disagrees with golang.org/x/sys/cpu", zap.Stringers("features", diff))
		}
	}

	fpu.Bringup(s.machine, fs)
	s.global = fpu.NewManager(s.machine, fs)
	if s.cfg.FPUScope == config.ScopePerContext {
		s.arena = fpu.NewArena(s.machine, fs, s.cfg.Contexts)
	}

	tbl := bulk.Select(fs)
	s.table.Store(tbl)
	s.ready.Store(true)

	fields := []zap.Field{
		zap.Stringer("variant", s.registry.Variant()),
		zap.Stringer("fpu_format", s.global.Format()),
		zap.String("fpu_scope", string(s.scope())),
	}
	for _, op := range bulk.Ops() {
		fields = append(fields, zap.Stringer("dispatch."+op.String(), tbl.Level(op)))
	}
	s.log.Info("subsystem initialized", fields...)
}

// disabled resolves the configured feature names. Unknown names are logged
// and skipped; Init itself never fails.
func (s *Subsystem) disabled() []cpu.Feature {
	var out []cpu.Feature
	for _, name := range s.cfg.DisabledFeatures {
		f, ok := cpu.ParseFeature(name)
		if !ok {
			s.log.Warn("ignoring unknown disabled feature", zap.String("feature", name))
			continue
		}
		out = append(out, f)
	}
	return out
}

func (s *Subsystem) scope() config.Scope {
	if s.arena != nil {
		return config.ScopePerContext
	}
	return config.ScopeGlobal
}

// Ready reports whether Init has completed.
func (s *Subsystem) Ready() bool { return s.ready.Load() }

// Registry returns the feature registry.
func (s *Subsystem) Registry() *cpu.Registry { return s.registry }

// Table returns the dispatch table currently in use.
func (s *Subsystem) Table() *bulk.Table { return s.table.Load() }

// Metrics returns the collector boundary calls are counted in.
func (s *Subsystem) Metrics() *metrics.Collector { return s.metrics }

// FPUBegin hands the unit to the kernel context, restoring its saved image.
// It does nothing before Init.
func (s *Subsystem) FPUBegin() {
	if !s.ready.Load() {
		s.metrics.RecordFPU(true, true)
		return
	}
	s.begin(s.global)
}

// FPUEnd saves the kernel context's registers. It does nothing before Init.
func (s *Subsystem) FPUEnd() {
	if !s.ready.Load() {
		s.metrics.RecordFPU(false, true)
		return
	}
	s.end(s.global)
}

// FPUBeginContext is FPUBegin for context id. Under global scope every id
// shares the single manager. An id outside the arena is ignored.
func (s *Subsystem) FPUBeginContext(id int) {
	if !s.ready.Load() {
		s.metrics.RecordFPU(true, true)
		return
	}
	s.begin(s.manager(id))
}

// FPUEndContext is FPUEnd for context id.
func (s *Subsystem) FPUEndContext(id int) {
	if !s.ready.Load() {
		s.metrics.RecordFPU(false, true)
		return
	}
	s.end(s.manager(id))
}

func (s *Subsystem) manager(id int) *fpu.Manager {
	if s.arena == nil {
		return s.global
	}
	mg := s.arena.Context(id)
	if mg == nil {
		s.log.Debug("fpu context out of range", zap.Int("context", id), zap.Int("contexts", s.arena.Len()))
	}
	return mg
}

func (s *Subsystem) begin(mg *fpu.Manager) {
	if mg == nil || mg.Active() {
		return
	}
	mg.BeginUse()
	s.metrics.RecordFPU(true, false)
}

func (s *Subsystem) end(mg *fpu.Manager) {
	if mg == nil || !mg.Active() {
		return
	}
	mg.EndUse()
	s.metrics.RecordFPU(false, false)
}
