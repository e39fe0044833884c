//go:build amd64

package platform

import "sync"

// Implemented in host_amd64.s.
func cpuid(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32)
func xgetbv() (eax, edx uint32)
func identifySupported() bool
func fninit()
func ldmxcsr(v uint32)
func fnsave(addr *byte)
func frstor(addr *byte)
func fxsave64(addr *byte)
func fxrstor64(addr *byte)
func xsave64(addr *byte)
func xrstor64(addr *byte)

// HostMachine drives the processor the current process runs on.
//
// Under a hosted OS the control registers belong to the kernel, so
// WriteControl records the requested bits without applying them; the OS has
// already enabled FXSR/XSAVE for user code if it advertises them.
type HostMachine struct {
	mu      sync.Mutex
	control ControlBits
	writes  int
}

var host = &HostMachine{}

// Host returns the machine backed by the running processor.
func Host() *HostMachine { return host }

func (h *HostMachine) IdentifySupported() bool { return identifySupported() }

func (h *HostMachine) CPUID(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32) {
	return cpuid(leaf, subleaf)
}

func (h *HostMachine) XCR0() uint64 {
	_, _, ecx, _ := cpuid(1, 0)
	if ecx&ECXOSXSAVE == 0 {
		return 0
	}
	eax, edx := xgetbv()
	return uint64(edx)<<32 | uint64(eax)
}

// MathUnitPresent reads CPUID.1:EDX.FPU. Every amd64 part has one.
func (h *HostMachine) MathUnitPresent() bool {
	_, _, _, edx := cpuid(1, 0)
	return edx&EDXFPU != 0
}

func (h *HostMachine) WriteControl(bits ControlBits) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.control = bits
	h.writes++
}

// Control returns the last bits passed to WriteControl and how many times it
// was called.
func (h *HostMachine) Control() (ControlBits, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.control, h.writes
}

func (h *HostMachine) ResetFPU() {
	fninit()
	_, _, _, edx := cpuid(1, 0)
	if edx&EDXSSE != 0 {
		ldmxcsr(DefaultMXCSR)
	}
}

func (h *HostMachine) Save(f SaveFormat, area []byte) {
	checkArea(f, area)
	switch f {
	case ExtendedWithVector:
		xsave64(&area[0])
	case Extended:
		fxsave64(&area[0])
	default:
		fnsave(&area[0])
	}
}

func (h *HostMachine) Restore(f SaveFormat, area []byte) {
	checkArea(f, area)
	switch f {
	case ExtendedWithVector:
		xrstor64(&area[0])
	case Extended:
		fxrstor64(&area[0])
	default:
		frstor(&area[0])
	}
}
