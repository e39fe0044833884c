package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hartyporpoise/hwrt/internal/bulk"
	"github.com/hartyporpoise/hwrt/internal/config"
	"github.com/hartyporpoise/hwrt/internal/cpu"
	"github.com/hartyporpoise/hwrt/internal/fpu"
	"github.com/hartyporpoise/hwrt/internal/platform"
)

func newSim(t *testing.T, profile platform.SimOption, opts ...Option) (*Subsystem, *platform.Sim) {
	t.Helper()
	m := platform.NewSim(profile)
	return New(m, opts...), m
}

func TestBeforeInit(t *testing.T) {
	s, m := newSim(t, platform.ProfileModern())

	assert.False(t, s.Ready())
	s.FPUBegin()
	s.FPUEnd()
	s.FPUBeginContext(3)
	s.FPUEndContext(3)

	saves, restores := m.Transfers(fpu.ExtendedWithVector)
	assert.Zero(t, saves)
	assert.Zero(t, restores)
	assert.Equal(t, int64(4), s.Metrics().Snapshot().FPUSkipped)

	for _, op := range bulk.Ops() {
		assert.Equal(t, bulk.Scalar, s.Table().Level(op), op.String())
	}
	dst := make([]byte, 3)
	s.Copy(dst, []byte("abc"))
	assert.Equal(t, "abc", string(dst))

	info := s.Info()
	assert.False(t, info.Ready)
	assert.Empty(t, info.Features)
	assert.Empty(t, info.FPUFormat)
}

func TestInit(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, m := newSim(t, platform.ProfileModern(), WithLogger(zap.New(core)))

	s.Init()
	require.True(t, s.Ready())
	assert.True(t, s.Registry().HasVector256())
	assert.Equal(t, 1, m.Resets())

	cr0, cr4 := m.ControlRegisters()
	assert.Zero(t, cr0&platform.CR0EM)
	assert.Equal(t, uint64(platform.CR4OSFXSR|platform.CR4OSXMMEXCPT|platform.CR4OSXSAVE), cr4)

	for _, op := range bulk.Ops() {
		assert.Equal(t, bulk.Vector256, s.Table().Level(op), op.String())
	}
	assert.Equal(t, 1, logs.FilterMessage("subsystem initialized").Len())

	s.Init()
	assert.Equal(t, 1, m.Resets(), "second Init must not bring the FPU up again")
	_, writes := m.Control()
	assert.Equal(t, 1, writes)
	assert.Equal(t, 1, logs.FilterMessage("subsystem already initialized").Len())
}

func TestInitDisabledFeatures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := config.Default()
	cfg.DisabledFeatures = []string{"avx2", "xsave", "bogus"}
	s, _ := newSim(t, platform.ProfileModern(), WithConfig(cfg), WithLogger(zap.New(core)))

	s.Init()
	assert.Equal(t, bulk.Vector128, s.Table().Level(bulk.OpCopy))
	assert.Equal(t, bulk.Vector128, s.Table().Level(bulk.OpCompare))
	assert.Equal(t, 1, logs.FilterField(zap.String("feature", "bogus")).Len())

	info := s.Info()
	assert.Equal(t, []string{"XSAVE", "AVX2"}, info.Disabled)
	assert.Equal(t, fpu.Extended.String(), info.FPUFormat)
	assert.Equal(t, "vector128", info.Dispatch["count_byte"])
}

func TestInitSharedRegistryKeepsItsFeatures(t *testing.T) {
	m := platform.NewSim(platform.ProfileModern())
	reg := cpu.NewRegistry()
	reg.Init(m)

	core, logs := observer.New(zapcore.WarnLevel)
	cfg := config.Default()
	cfg.DisabledFeatures = []string{"avx2"}
	s := New(m, WithRegistry(reg), WithConfig(cfg), WithLogger(zap.New(core)))
	s.Init()

	assert.True(t, reg.HasAVX2())
	assert.Equal(t, bulk.Vector256, s.Table().Level(bulk.OpCopy))
	warned := logs.FilterMessage("cpu registry already initialized, disabled features not applied")
	require.Equal(t, 1, warned.Len())
	assert.Equal(t, []any{"avx2"}, warned.All()[0].ContextMap()["disabled"])

	// Nothing to warn about without configured features.
	core, logs = observer.New(zapcore.WarnLevel)
	New(m, WithRegistry(reg), WithLogger(zap.New(core))).Init()
	assert.Zero(t, logs.Len())
}

func TestInitLegacy(t *testing.T) {
	s, m := newSim(t, platform.ProfileNoFPU())
	s.Init()

	info := s.Info()
	assert.Equal(t, "legacy (no math unit)", info.Variant)
	assert.Equal(t, fpu.Basic.String(), info.FPUFormat)
	for _, op := range bulk.Ops() {
		assert.Equal(t, bulk.Scalar, s.Table().Level(op))
	}

	// FPU hooks still run the Basic save/restore pair.
	s.FPUBegin()
	s.FPUEnd()
	saves, restores := m.Transfers(fpu.Basic)
	assert.Equal(t, 1, saves)
	assert.Equal(t, 1, restores)
}

func TestFPUBeginEndRoundTrip(t *testing.T) {
	s, m := newSim(t, platform.ProfileModern())
	s.Init()
	regs := m.Registers()

	s.FPUBegin()
	s.FPUBegin()
	regs[64] = 0x99
	s.FPUEnd()
	s.FPUEnd()

	regs[64] = 0
	s.FPUBegin()
	assert.Equal(t, byte(0x99), regs[64])
	s.FPUEnd()

	snap := s.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.FPURestores)
	assert.Equal(t, int64(2), snap.FPUSaves)
}

func TestPerContextScope(t *testing.T) {
	cfg := config.Default()
	cfg.FPUScope = config.ScopePerContext
	cfg.Contexts = 2
	s, m := newSim(t, platform.ProfileSSE2(), WithConfig(cfg))
	s.Init()

	info := s.Info()
	assert.Equal(t, "per-context", info.FPUScope)
	assert.Equal(t, 2, info.Contexts)

	regs := m.Registers()
	s.FPUBeginContext(0)
	regs[100] = 0xAA
	s.FPUEndContext(0)

	s.FPUBeginContext(1)
	assert.Zero(t, regs[100])
	regs[100] = 0xBB
	s.FPUEndContext(1)

	s.FPUBeginContext(0)
	assert.Equal(t, byte(0xAA), regs[100])
	s.FPUEndContext(0)

	before, _ := m.Transfers(fpu.Extended)
	s.FPUBeginContext(7)
	s.FPUEndContext(7)
	after, _ := m.Transfers(fpu.Extended)
	assert.Equal(t, before, after, "out-of-range context is ignored")
}

func TestGlobalScopeSharesManager(t *testing.T) {
	s, m := newSim(t, platform.ProfileSSE2())
	s.Init()
	regs := m.Registers()

	s.FPUBeginContext(5)
	regs[100] = 0xCD
	s.FPUEndContext(5)

	regs[100] = 0
	s.FPUBegin()
	assert.Equal(t, byte(0xCD), regs[100])
	s.FPUEnd()
}

func TestDefaultSubsystem(t *testing.T) {
	SubsystemInit()
	SubsystemInit()
	assert.True(t, Default.Ready())
	assert.Same(t, cpu.Default, Default.Registry())
	assert.True(t, cpu.Default.Ready())
}
