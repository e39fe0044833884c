package cpu

import "runtime"

// Hints is a second opinion on the host's capabilities, taken from
// golang.org/x/sys/cpu. It is used to cross-check the registry and to show
// non-x86 vector extensions the registry does not track.
type Hints struct {
	// Arch is runtime.GOARCH.
	Arch string

	// Known lists the registry features the hint source can see.
	Known []Feature

	present Features

	// Extra names architecture-specific extensions outside the registry
	// (e.g. ASIMD and SVE on arm64) that the host reports as present.
	Extra []string
}

func newHints() Hints { return Hints{Arch: runtime.GOARCH} }

func (h *Hints) add(f Feature, ok bool) {
	h.Known = append(h.Known, f)
	if ok {
		h.present.set(f)
	}
}

func (h *Hints) extra(name string, ok bool) {
	if ok {
		h.Extra = append(h.Extra, name)
	}
}

// Has reports whether the hint source saw f.
func (h Hints) Has(f Feature) bool { return h.present.Has(f) }
