package cpu

import "strings"

// Features is the capability flag set of one core. The zero value has every
// capability absent.
type Features struct {
	bits uint32

	// Identified is true when the identification instruction was available.
	Identified bool

	// Vendor is the 12-byte vendor string from leaf 0 (e.g. "GenuineIntel").
	Vendor string

	// MaxLeaf is the highest standard leaf.
	MaxLeaf uint32

	// MaxExtendedLeaf is the highest extended leaf (0x8000_0000 range).
	MaxExtendedLeaf uint32

	// XSaveSize is the XSAVE area size for the components currently enabled
	// in XCR0. Zero unless XSAVE and OSXSAVE are both present.
	XSaveSize int
}

// Has reports whether f is present.
func (fs Features) Has(f Feature) bool {
	return f < numFeatures && fs.bits&(1<<f) != 0
}

func (fs *Features) set(f Feature) { fs.bits |= 1 << f }

// Without returns a copy with the listed features cleared. Clearing XSAVE or
// OSXSAVE also drops the XSAVE size, since no extended-save image is usable.
func (fs Features) Without(drop ...Feature) Features {
	for _, f := range drop {
		fs.bits &^= 1 << f
	}
	if !fs.Has(XSAVE) || !fs.Has(OSXSAVE) {
		fs.XSaveSize = 0
	}
	return fs
}

// With returns a copy with the listed features set.
func (fs Features) With(add ...Feature) Features {
	for _, f := range add {
		fs.set(f)
	}
	return fs
}

// Vector128 reports 128-bit vector support (SSE2).
func (fs Features) Vector128() bool { return fs.Has(SSE2) }

// Vector256 reports usable 256-bit integer vectors (AVX2 with OS support).
func (fs Features) Vector256() bool { return fs.Has(AVX2) }

// StringAccelerate reports the SSE4.2 string instructions.
func (fs Features) StringAccelerate() bool { return fs.Has(SSE42) }

// ExtendedSave reports a usable XSAVE area.
func (fs Features) ExtendedSave() bool { return fs.Has(XSAVE) && fs.Has(OSXSAVE) }

// MathUnit reports the legacy x87 math unit.
func (fs Features) MathUnit() bool { return fs.Has(FPU) }

// List returns the present features in detection order.
func (fs Features) List() []Feature {
	var out []Feature
	for f := Feature(0); f < numFeatures; f++ {
		if fs.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Summary returns a short human-readable list of present features.
func (fs Features) Summary() string {
	list := fs.List()
	if len(list) == 0 {
		return "none detected"
	}
	parts := make([]string, len(list))
	for i, f := range list {
		parts[i] = f.String()
	}
	return strings.Join(parts, " ")
}
