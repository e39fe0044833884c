// Host hints for x86-64 from golang.org/x/sys/cpu. The library applies the
// same OS-support checks as Detect (XCR0 for AVX), so on a healthy host the
// two sources agree on every feature it knows about.
package cpu

import "golang.org/x/sys/cpu"

// HostHints returns what golang.org/x/sys/cpu reports for this host.
func HostHints() Hints {
	h := newHints()
	h.add(SSE2, cpu.X86.HasSSE2)
	h.add(SSE3, cpu.X86.HasSSE3)
	h.add(SSSE3, cpu.X86.HasSSSE3)
	h.add(SSE41, cpu.X86.HasSSE41)
	h.add(SSE42, cpu.X86.HasSSE42)
	h.add(OSXSAVE, cpu.X86.HasOSXSAVE)
	h.add(AVX, cpu.X86.HasAVX)
	h.add(AVX2, cpu.X86.HasAVX2)

	// Not tracked by the registry, shown for reference only.
	h.extra("AVX512F", cpu.X86.HasAVX512F)
	h.extra("FMA", cpu.X86.HasFMA)
	return h
}
