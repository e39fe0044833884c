package platform

// CPUID leaves consulted by the runtime layer.
const (
	LeafVendor       = 0x0
	LeafFeatures     = 0x1
	LeafExtFeatures  = 0x7
	LeafXSave        = 0xD
	LeafExtendedBase = 0x80000000
)

// CPUID.1:EDX bits.
const (
	EDXFPU  = 1 << 0
	EDXCX8  = 1 << 8
	EDXMMX  = 1 << 23
	EDXFXSR = 1 << 24
	EDXSSE  = 1 << 25
	EDXSSE2 = 1 << 26
)

// CPUID.1:ECX bits.
const (
	ECXSSE3    = 1 << 0
	ECXSSSE3   = 1 << 9
	ECXSSE41   = 1 << 19
	ECXSSE42   = 1 << 20
	ECXXSAVE   = 1 << 26
	ECXOSXSAVE = 1 << 27
	ECXAVX     = 1 << 28
)

// CPUID.7.0:EBX bits.
const (
	EBX7AVX2 = 1 << 5
)

// XCR0 state-component bits.
const (
	XCR0X87 = 1 << 0
	XCR0SSE = 1 << 1
	XCR0AVX = 1 << 2
)
