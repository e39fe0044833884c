// Package cpu detects processor capabilities once at boot and answers
// capability queries for the rest of the runtime layer.
// Detection is best-effort: a capability that cannot be confirmed is
// reported as absent, so callers always fall back to a path that works
// on the oldest hardware.
package cpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hartyporpoise/hwrt/internal/platform"
)

// Variant classifies a core by how it must be treated at bring-up.
type Variant uint8

const (
	// LegacyNoMathUnit has no identification instruction and no x87 unit.
	LegacyNoMathUnit Variant = iota
	// LegacyWithMathUnit has no identification instruction but an x87 unit.
	LegacyWithMathUnit
	// Modern supports the identification instruction.
	Modern
)

func (v Variant) String() string {
	switch v {
	case LegacyNoMathUnit:
		return "legacy (no math unit)"
	case LegacyWithMathUnit:
		return "legacy (math unit)"
	case Modern:
		return "modern"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// Classify maps a flag set to its variant.
func Classify(fs Features) Variant {
	switch {
	case fs.Identified:
		return Modern
	case fs.MathUnit():
		return LegacyWithMathUnit
	default:
		return LegacyNoMathUnit
	}
}

// ProbeSupport reports whether m implements the identification instruction.
// It has no other side effects.
func ProbeSupport(m platform.Machine) bool {
	return m.IdentifySupported()
}

// Detect queries m and returns its capability flag set. When identification
// is unsupported every flag stays false except FPU, which comes from the
// legacy math-unit probe.
func Detect(m platform.Machine) Features {
	var fs Features
	if !ProbeSupport(m) {
		if m.MathUnitPresent() {
			fs.set(FPU)
		}
		return fs
	}
	fs.Identified = true

	maxLeaf, ebx, ecx, edx := m.CPUID(platform.LeafVendor, 0)
	fs.MaxLeaf = maxLeaf
	fs.Vendor = vendorString(ebx, edx, ecx)

	var ecx1, edx1 uint32
	if maxLeaf >= platform.LeafFeatures {
		_, _, ecx1, edx1 = m.CPUID(platform.LeafFeatures, 0)
	}
	for _, b := range []struct {
		reg  uint32
		mask uint32
		f    Feature
	}{
		{edx1, platform.EDXFPU, FPU},
		{edx1, platform.EDXMMX, MMX},
		{edx1, platform.EDXSSE, SSE},
		{edx1, platform.EDXSSE2, SSE2},
		{edx1, platform.EDXCX8, CX8},
		{edx1, platform.EDXFXSR, FXSR},
		{ecx1, platform.ECXSSE3, SSE3},
		{ecx1, platform.ECXSSSE3, SSSE3},
		{ecx1, platform.ECXSSE41, SSE41},
		{ecx1, platform.ECXSSE42, SSE42},
		{ecx1, platform.ECXXSAVE, XSAVE},
		{ecx1, platform.ECXOSXSAVE, OSXSAVE},
	} {
		if b.reg&b.mask != 0 {
			fs.set(b.f)
		}
	}

	// AVX needs the OS to save both XMM and YMM state, otherwise using it
	// corrupts other tasks.
	osYMM := false
	if fs.Has(OSXSAVE) {
		const want = platform.XCR0SSE | platform.XCR0AVX
		osYMM = m.XCR0()&want == want
	}
	if ecx1&platform.ECXAVX != 0 && osYMM {
		fs.set(AVX)
	}
	if maxLeaf >= platform.LeafExtFeatures && fs.Has(AVX) {
		if _, ebx7, _, _ := m.CPUID(platform.LeafExtFeatures, 0); ebx7&platform.EBX7AVX2 != 0 {
			fs.set(AVX2)
		}
	}

	if maxLeaf >= platform.LeafXSave && fs.ExtendedSave() {
		_, size, _, _ := m.CPUID(platform.LeafXSave, 0)
		fs.XSaveSize = int(size)
	}

	fs.MaxExtendedLeaf, _, _, _ = m.CPUID(platform.LeafExtendedBase, 0)
	return fs
}

func vendorString(ebx, edx, ecx uint32) string {
	var b [12]byte
	binary.LittleEndian.PutUint32(b[0:], ebx)
	binary.LittleEndian.PutUint32(b[4:], edx)
	binary.LittleEndian.PutUint32(b[8:], ecx)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b[:])
}

// Option configures Registry.Init.
type Option func(*options)

type options struct {
	disabled []Feature
	log      *zap.Logger
}

// WithDisabled forces the listed capabilities off after detection.
func WithDisabled(fs ...Feature) Option {
	return func(o *options) { o.disabled = append(o.disabled, fs...) }
}

// WithLogger sets the logger used to report the detection result.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// Registry holds the capability flag set of the boot core. It is written
// exactly once by Init and is read-only afterwards; every query made before
// Init returns false.
type Registry struct {
	once     sync.Once
	ready    atomic.Bool
	detected Features
	fs       Features
	variant  Variant
}

// NewRegistry returns an uninitialized registry.
func NewRegistry() *Registry { return &Registry{} }

// Default is the process-wide registry.
var Default = NewRegistry()

// Init detects the capabilities of m and publishes them. Only the first call
// has any effect; later calls return the already published set.
func (r *Registry) Init(m platform.Machine, opts ...Option) Features {
	r.once.Do(func() {
		o := options{log: zap.NewNop()}
		for _, opt := range opts {
			opt(&o)
		}

		r.detected = Detect(m)
		r.fs = r.detected.Without(o.disabled...)
		r.variant = Classify(r.fs)
		r.ready.Store(true)

		o.log.Info("cpu features detected",
			zap.String("variant", r.variant.String()),
			zap.String("vendor", r.fs.Vendor),
			zap.String("features", r.fs.Summary()),
			zap.Int("xsave_size", r.fs.XSaveSize))
		if len(o.disabled) > 0 {
			o.log.Info("cpu features disabled by configuration", zap.Stringers("disabled", o.disabled))
		}
	})
	return r.Features()
}

// Ready reports whether Init has completed.
func (r *Registry) Ready() bool { return r.ready.Load() }

// Features returns the published flag set, or the zero set before Init.
func (r *Registry) Features() Features {
	if !r.ready.Load() {
		return Features{}
	}
	return r.fs
}

// Detected returns the flag set as reported by the hardware, before any
// features were disabled by configuration.
func (r *Registry) Detected() Features {
	if !r.ready.Load() {
		return Features{}
	}
	return r.detected
}

// Variant returns the legacy-variant classification. Before Init it is
// LegacyNoMathUnit.
func (r *Registry) Variant() Variant {
	if !r.ready.Load() {
		return LegacyNoMathUnit
	}
	return r.variant
}

// Has reports whether f is present. It is false before Init.
func (r *Registry) Has(f Feature) bool { return r.Features().Has(f) }

// Raw feature queries; false before Init.
func (r *Registry) HasFPU() bool     { return r.Has(FPU) }
func (r *Registry) HasMMX() bool     { return r.Has(MMX) }
func (r *Registry) HasSSE() bool     { return r.Has(SSE) }
func (r *Registry) HasSSE2() bool    { return r.Has(SSE2) }
func (r *Registry) HasSSE3() bool    { return r.Has(SSE3) }
func (r *Registry) HasSSSE3() bool   { return r.Has(SSSE3) }
func (r *Registry) HasSSE41() bool   { return r.Has(SSE41) }
func (r *Registry) HasSSE42() bool   { return r.Has(SSE42) }
func (r *Registry) HasCX8() bool     { return r.Has(CX8) }
func (r *Registry) HasFXSR() bool    { return r.Has(FXSR) }
func (r *Registry) HasXSAVE() bool   { return r.Has(XSAVE) }
func (r *Registry) HasOSXSAVE() bool { return r.Has(OSXSAVE) }
func (r *Registry) HasAVX() bool     { return r.Has(AVX) }
func (r *Registry) HasAVX2() bool    { return r.Has(AVX2) }

// Capability classes.
func (r *Registry) HasVector128() bool        { return r.Features().Vector128() }
func (r *Registry) HasVector256() bool        { return r.Features().Vector256() }
func (r *Registry) HasStringAccelerate() bool { return r.Features().StringAccelerate() }
func (r *Registry) HasExtendedSave() bool     { return r.Features().ExtendedSave() }
func (r *Registry) HasMathUnit() bool         { return r.Features().MathUnit() }

// Summary returns a short human-readable string of present features.
func (r *Registry) Summary() string { return r.Features().Summary() }

// CrossCheck compares the hardware-reported set with hints from another
// detection source and returns every feature the two disagree on.
func (r *Registry) CrossCheck(h Hints) []Feature {
	det := r.Detected()
	var out []Feature
	for _, f := range h.Known {
		if det.Has(f) != h.Has(f) {
			out = append(out, f)
		}
	}
	return out
}
