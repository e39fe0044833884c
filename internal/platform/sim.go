package platform

import (
	"encoding/binary"
	"sync"
)

// simRegisterFile is the size of the simulated register file. It is large
// enough for every image the simulator can be asked to save.
const simRegisterFile = 4096

// Initial control register values of a freshly booted simulated core:
// protected mode, extension type set, and FPU emulation still on.
const (
	simInitialCR0 = 1<<0 | 1<<4 | CR0EM
	simInitialCR4 = 0
)

type leafKey struct{ leaf, subleaf uint32 }

// Sim is a deterministic Machine for tests and for hosts without the x86
// instruction set. Its register file is a flat byte array in image layout:
// Save copies the first ImageSize bytes out, Restore copies them back in.
type Sim struct {
	mu sync.Mutex

	identify bool
	mathUnit bool
	leaves   map[leafKey][4]uint32
	xcr0     uint64

	regs     []byte
	cr0      uint64
	cr4      uint64
	control  ControlBits
	writes   int
	resets   int
	saves    [3]int
	restores [3]int
}

// SimOption configures a Sim.
type SimOption func(*Sim)

// NewSim returns a simulated machine. Without options it behaves like a core
// that has no identification instruction and no math unit.
func NewSim(opts ...SimOption) *Sim {
	s := &Sim{
		leaves: make(map[leafKey][4]uint32),
		regs:   make([]byte, simRegisterFile),
		cr0:    simInitialCR0,
		cr4:    simInitialCR4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithLeaf programs the result of CPUID(leaf, subleaf).
func WithLeaf(leaf, subleaf, eax, ebx, ecx, edx uint32) SimOption {
	return func(s *Sim) {
		s.leaves[leafKey{leaf, subleaf}] = [4]uint32{eax, ebx, ecx, edx}
	}
}

// WithIdentify sets whether the ID-bit toggle sticks.
func WithIdentify(ok bool) SimOption {
	return func(s *Sim) { s.identify = ok }
}

// WithMathUnit sets the result of the legacy math-unit probe.
func WithMathUnit(ok bool) SimOption {
	return func(s *Sim) { s.mathUnit = ok }
}

// WithXCR0 sets the value returned by XCR0.
func WithXCR0(v uint64) SimOption {
	return func(s *Sim) { s.xcr0 = v }
}

func vendorWords(vendor string) (ebx, edx, ecx uint32) {
	var b [12]byte
	copy(b[:], vendor)
	return binary.LittleEndian.Uint32(b[0:4]),
		binary.LittleEndian.Uint32(b[4:8]),
		binary.LittleEndian.Uint32(b[8:12])
}

// ProfileModern is a core with SSE through SSE4.2, AVX2 and an OS-enabled
// XSAVE area of 832 bytes (x87 + SSE + AVX).
func ProfileModern() SimOption {
	return func(s *Sim) {
		b, d, c := vendorWords("GenuineIntel")
		WithIdentify(true)(s)
		WithMathUnit(true)(s)
		WithLeaf(LeafVendor, 0, LeafXSave, b, c, d)(s)
		WithLeaf(LeafFeatures, 0, 0x000906ea, 0,
			ECXSSE3|ECXSSSE3|ECXSSE41|ECXSSE42|ECXXSAVE|ECXOSXSAVE|ECXAVX,
			EDXFPU|EDXCX8|EDXMMX|EDXFXSR|EDXSSE|EDXSSE2)(s)
		WithLeaf(LeafExtFeatures, 0, 0, EBX7AVX2, 0, 0)(s)
		WithLeaf(LeafXSave, 0, XCR0X87|XCR0SSE|XCR0AVX, 832, 832, 0)(s)
		WithLeaf(LeafExtendedBase, 0, 0x80000008, 0, 0, 0)(s)
		WithXCR0(XCR0X87 | XCR0SSE | XCR0AVX)(s)
	}
}

// ProfileSSE2 is an early 64-bit core: FXSR and SSE2 but no XSAVE or AVX.
func ProfileSSE2() SimOption {
	return func(s *Sim) {
		b, d, c := vendorWords("AuthenticAMD")
		WithIdentify(true)(s)
		WithMathUnit(true)(s)
		WithLeaf(LeafVendor, 0, LeafFeatures, b, c, d)(s)
		WithLeaf(LeafFeatures, 0, 0x00000f48, 0, 0,
			EDXFPU|EDXCX8|EDXMMX|EDXFXSR|EDXSSE|EDXSSE2)(s)
		WithLeaf(LeafExtendedBase, 0, 0x80000018, 0, 0, 0)(s)
	}
}

// ProfileLegacyFPU is a pre-identification core with a math coprocessor.
func ProfileLegacyFPU() SimOption {
	return func(s *Sim) {
		WithIdentify(false)(s)
		WithMathUnit(true)(s)
	}
}

// ProfileNoFPU is a pre-identification core without a math coprocessor.
func ProfileNoFPU() SimOption {
	return func(s *Sim) {
		WithIdentify(false)(s)
		WithMathUnit(false)(s)
	}
}

func (s *Sim) IdentifySupported() bool { return s.identify }

// CPUID returns the programmed leaf, or zeros when identification is
// unsupported or the leaf was never programmed.
func (s *Sim) CPUID(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32) {
	if !s.identify {
		return 0, 0, 0, 0
	}
	r := s.leaves[leafKey{leaf, subleaf}]
	return r[0], r[1], r[2], r[3]
}

func (s *Sim) XCR0() uint64 {
	if s.leaves[leafKey{LeafFeatures, 0}][2]&ECXOSXSAVE == 0 {
		return 0
	}
	return s.xcr0
}

func (s *Sim) MathUnitPresent() bool { return s.mathUnit }

func (s *Sim) WriteControl(bits ControlBits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.control = bits
	s.writes++
	s.cr0, s.cr4 = bits.Apply(s.cr0, s.cr4)
}

// ResetFPU loads the FNINIT state into the register file: default control
// word, empty tag word, and default MXCSR.
func (s *Sim) ResetFPU() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.regs)
	binary.LittleEndian.PutUint16(s.regs[0:], DefaultFCW)
	binary.LittleEndian.PutUint32(s.regs[24:], DefaultMXCSR)
	s.resets++
}

func (s *Sim) imageSize(f SaveFormat) int {
	_, ebx, _, _ := s.CPUID(LeafXSave, 0)
	return f.ImageSize(int(ebx))
}

// Save copies the register file into area. FNSAVE reinitializes the x87
// unit after storing, so Basic saves reset the control and tag words.
func (s *Sim) Save(f SaveFormat, area []byte) {
	checkArea(f, area)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.imageSize(f)
	copy(area[:n], s.regs[:n])
	if f == Basic {
		binary.LittleEndian.PutUint16(s.regs[0:], DefaultFCW)
		binary.LittleEndian.PutUint16(s.regs[4:], 0)
		binary.LittleEndian.PutUint16(s.regs[8:], 0xFFFF)
	}
	s.saves[f]++
}

func (s *Sim) Restore(f SaveFormat, area []byte) {
	checkArea(f, area)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.imageSize(f)
	copy(s.regs[:n], area[:n])
	s.restores[f]++
}

// Registers returns the live simulated register file. Writing to it stands
// in for a task executing floating-point instructions. The slice is not
// guarded by the Sim's lock: use it from one goroutine, between Save and
// Restore calls, as tests do.
func (s *Sim) Registers() []byte { return s.regs }

// Control returns the last bits written and the number of writes.
func (s *Sim) Control() (ControlBits, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control, s.writes
}

// ControlRegisters returns the simulated CR0 and CR4.
func (s *Sim) ControlRegisters() (cr0, cr4 uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cr0, s.cr4
}

// Resets returns how many times ResetFPU ran.
func (s *Sim) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Transfers returns the save and restore counts for format f.
func (s *Sim) Transfers(f SaveFormat) (saves, restores int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[f], s.restores[f]
}

var simProfiles = map[string]func() SimOption{
	"modern":     ProfileModern,
	"sse2":       ProfileSSE2,
	"legacy-fpu": ProfileLegacyFPU,
	"no-fpu":     ProfileNoFPU,
}

// SimProfile returns the named profile: modern, sse2, legacy-fpu or no-fpu.
func SimProfile(name string) (SimOption, bool) {
	p, ok := simProfiles[name]
	if !ok {
		return nil, false
	}
	return p(), true
}

// SimProfiles lists the profile names accepted by SimProfile.
func SimProfiles() []string {
	return []string{"modern", "sse2", "legacy-fpu", "no-fpu"}
}
