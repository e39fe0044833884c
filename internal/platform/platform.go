// Package platform is the narrow boundary between the runtime layer and the
// processor. Everything above it (feature registry, FPU manager, bulk
// dispatch) talks to a Machine and never issues instructions directly, so the
// same logic runs against real hardware or the deterministic simulator.
package platform

import "fmt"

// Machine is the set of privileged or instruction-level operations the
// runtime layer needs. Implementations must be safe to call from the
// initializing core only; nothing here synchronizes.
type Machine interface {
	// IdentifySupported reports whether the CPU identification instruction
	// exists, by toggling the ID bit (bit 21) of the flags register and
	// checking whether the change sticks. The original flags are restored.
	IdentifySupported() bool

	// CPUID executes the identification instruction for leaf/subleaf.
	CPUID(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32)

	// XCR0 returns the extended control register 0. Only meaningful when
	// the OS has enabled XSAVE (CPUID.1:ECX.OSXSAVE).
	XCR0() uint64

	// MathUnitPresent probes for a legacy floating-point coprocessor. Used
	// only when identification is unsupported.
	MathUnitPresent() bool

	// WriteControl applies the CR0/CR4 bits required for FPU and vector use.
	WriteControl(bits ControlBits)

	// ResetFPU reinitializes the floating-point unit (FNINIT) and loads the
	// default MXCSR when vector state exists.
	ResetFPU()

	// Save writes the live register state into area using the instruction
	// for format f. area must be aligned for f and at least f's image size.
	Save(f SaveFormat, area []byte)

	// Restore loads register state from area using the instruction for f.
	Restore(f SaveFormat, area []byte)
}

// SaveFormat selects the save/restore instruction pair and image layout.
type SaveFormat uint8

const (
	// Basic is the legacy FNSAVE/FRSTOR image (x87 only).
	Basic SaveFormat = iota
	// Extended is the FXSAVE/FXRSTOR image (x87 + SSE).
	Extended
	// ExtendedWithVector is the XSAVE/XRSTOR image (x87 + SSE + AVX and up).
	ExtendedWithVector
)

const (
	// BasicSize is the size of the FNSAVE image in 32-bit protected-mode layout.
	BasicSize = 108
	// ExtendedSize is the size of the FXSAVE image.
	ExtendedSize = 512
	// XSaveHeaderSize is the XSAVE header that follows the legacy region.
	XSaveHeaderSize = 64
	// MinXSaveSize is the legacy region plus the XSAVE header.
	MinXSaveSize = ExtendedSize + XSaveHeaderSize
)

func (f SaveFormat) String() string {
	switch f {
	case Basic:
		return "basic"
	case Extended:
		return "extended"
	case ExtendedWithVector:
		return "extended+vector"
	default:
		return fmt.Sprintf("SaveFormat(%d)", uint8(f))
	}
}

// Alignment is the required alignment of an image of format f.
func (f SaveFormat) Alignment() int {
	switch f {
	case ExtendedWithVector:
		return 64
	case Extended:
		return 16
	default:
		return 4
	}
}

// ImageSize returns the number of bytes an image of format f occupies.
// xsaveSize is the CPU-reported XSAVE area size and is only consulted for
// ExtendedWithVector.
func (f SaveFormat) ImageSize(xsaveSize int) int {
	switch f {
	case ExtendedWithVector:
		if xsaveSize < MinXSaveSize {
			return MinXSaveSize
		}
		return xsaveSize
	case Extended:
		return ExtendedSize
	default:
		return BasicSize
	}
}

// Control register bits touched during FPU bring-up.
const (
	CR0MP = 1 << 1 // monitor coprocessor
	CR0EM = 1 << 2 // emulation; must be clear for hardware FPU use
	CR0NE = 1 << 5 // native x87 error reporting

	CR4OSFXSR     = 1 << 9  // OS supports FXSAVE/FXRSTOR
	CR4OSXMMEXCPT = 1 << 10 // OS handles SIMD floating-point exceptions
	CR4OSXSAVE    = 1 << 18 // OS supports XSAVE and XGETBV
)

// ControlBits is a set/clear mask pair for CR0 and a set mask for CR4.
type ControlBits struct {
	CR0Set   uint64
	CR0Clear uint64
	CR4Set   uint64
}

// Apply returns cr0/cr4 after the masks are applied.
func (b ControlBits) Apply(cr0, cr4 uint64) (uint64, uint64) {
	return (cr0 &^ b.CR0Clear) | b.CR0Set, cr4 | b.CR4Set
}

// DefaultMXCSR masks every SIMD floating-point exception and selects
// round-to-nearest.
const DefaultMXCSR = 0x1F80

// DefaultFCW masks every x87 exception, selects 64-bit precision and
// round-to-nearest. This is the value FNINIT leaves behind.
const DefaultFCW = 0x037F

var (
	_ Machine = (*HostMachine)(nil)
	_ Machine = (*Sim)(nil)
)
