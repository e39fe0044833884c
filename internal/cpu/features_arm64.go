// Host hints for ARM64 (Apple Silicon, AWS Graviton, etc.).
package cpu

import "golang.org/x/sys/cpu"

// HostHints returns what golang.org/x/sys/cpu reports for this host. None of
// the registry features exist on ARM64, so only Extra is populated.
func HostHints() Hints {
	h := newHints()
	// NEON is mandatory on ARMv8-A.
	h.extra("ASIMD", true)
	h.extra("SVE", cpu.ARM64.HasSVE)
	h.extra("ATOMICS", cpu.ARM64.HasATOMICS)
	return h
}
