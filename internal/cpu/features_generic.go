// Fallback host hints for architectures x/sys/cpu is not consulted on.

//go:build !amd64 && !arm64

package cpu

// HostHints returns empty hints.
func HostHints() Hints {
	return newHints()
}
