package cpu

import (
	"fmt"
	"strings"
)

// Feature names one instruction-set extension tracked by the registry.
type Feature uint8

const (
	// FPU is the legacy x87 math unit.
	FPU Feature = iota
	MMX
	SSE
	SSE2
	SSE3
	SSSE3
	SSE41
	SSE42
	// CX8 is the 8-byte compare-and-exchange instruction (CMPXCHG8B).
	CX8
	// FXSR is FXSAVE/FXRSTOR.
	FXSR
	XSAVE
	// OSXSAVE means the OS has enabled XSAVE and XGETBV.
	OSXSAVE
	// AVX is only reported when the OS saves YMM state.
	AVX
	// AVX2 is only reported when AVX is usable.
	AVX2

	numFeatures
)

var featureNames = [numFeatures]string{
	FPU:     "FPU",
	MMX:     "MMX",
	SSE:     "SSE",
	SSE2:    "SSE2",
	SSE3:    "SSE3",
	SSSE3:   "SSSE3",
	SSE41:   "SSE4.1",
	SSE42:   "SSE4.2",
	CX8:     "CX8",
	FXSR:    "FXSR",
	XSAVE:   "XSAVE",
	OSXSAVE: "OSXSAVE",
	AVX:     "AVX",
	AVX2:    "AVX2",
}

func (f Feature) String() string {
	if f < numFeatures {
		return featureNames[f]
	}
	return fmt.Sprintf("Feature(%d)", uint8(f))
}

// AllFeatures lists every tracked feature in detection order.
func AllFeatures() []Feature {
	out := make([]Feature, numFeatures)
	for i := range out {
		out[i] = Feature(i)
	}
	return out
}

// ParseFeature maps a user-supplied name to a Feature. Matching ignores case,
// dots and underscores, so "sse4.1", "SSE41" and "sse4_1" are equivalent.
// "cmpxchg8b" is accepted for CX8.
func ParseFeature(name string) (Feature, bool) {
	key := normalizeName(name)
	if key == "CMPXCHG8B" {
		return CX8, true
	}
	for i, n := range featureNames {
		if normalizeName(n) == key {
			return Feature(i), true
		}
	}
	return 0, false
}

func normalizeName(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(".", "", "_", "", "-", "").Replace(s)
}
