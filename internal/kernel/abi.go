package kernel

import (
	"math"
	"unsafe"

	"github.com/hartyporpoise/hwrt/internal/metrics"
)

// Raw-pointer forms of the entry points, for callers that hold addresses
// rather than slices (the C ABI in cmd/libhwrt). Zero-terminated strings are
// scanned one page at a time so a scan never touches a page past the one
// holding the terminator.

// Bytes views n bytes at p as a slice. It returns nil for n == 0.
func Bytes(p unsafe.Pointer, n uintptr) []byte {
	if n == 0 || p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

// Memcpy copies n bytes from src to dst and returns dst.
func (s *Subsystem) Memcpy(dst, src unsafe.Pointer, n uintptr) unsafe.Pointer {
	if n > 0 {
		s.Copy(Bytes(dst, n), Bytes(src, n))
	}
	return dst
}

// Memmove is Memcpy for overlapping ranges.
func (s *Subsystem) Memmove(dst, src unsafe.Pointer, n uintptr) unsafe.Pointer {
	if n > 0 {
		s.Move(Bytes(dst, n), Bytes(src, n))
	}
	return dst
}

// Memset fills n bytes at dst with the low byte of c and returns dst.
func (s *Subsystem) Memset(dst unsafe.Pointer, c int, n uintptr) unsafe.Pointer {
	if n > 0 {
		s.Fill(Bytes(dst, n), byte(c))
	}
	return dst
}

// Strlen returns the length of the zero-terminated string at p.
func (s *Subsystem) Strlen(p unsafe.Pointer) uintptr {
	n := s.strnlen(p, ^uintptr(0))
	s.metrics.RecordCall(metrics.Length, int(n))
	return n
}

// Strcmp compares the zero-terminated strings at a and b.
func (s *Subsystem) Strcmp(a, b unsafe.Pointer) int {
	return s.Compare(s.cstring(a, ^uintptr(0)), s.cstring(b, ^uintptr(0)))
}

// Strncmp compares at most n bytes of the strings at a and b. Any n past
// math.MaxInt, SIZE_MAX included, behaves like Strcmp.
func (s *Subsystem) Strncmp(a, b unsafe.Pointer, n uintptr) int {
	if n == 0 {
		return 0
	}
	if n > math.MaxInt {
		n = math.MaxInt
	}
	return s.CompareN(s.cstring(a, n), s.cstring(b, n), int(n))
}

// Strchr returns a pointer to the first c in the string at p, or nil.
// Searching for 0 returns a pointer to the terminator.
func (s *Subsystem) Strchr(p unsafe.Pointer, c int) unsafe.Pointer {
	str := s.cstring(p, ^uintptr(0))
	i := s.FindTerminated(str, byte(c))
	if i < 0 {
		return nil
	}
	return unsafe.Add(p, i)
}

// cstring returns the string at p including its terminator, or the first
// limit bytes if no terminator comes first.
func (s *Subsystem) cstring(p unsafe.Pointer, limit uintptr) []byte {
	n := s.strnlen(p, limit)
	if n < limit {
		n++
	}
	return Bytes(p, n)
}

// strnlen scans at most limit bytes at p for a terminator, one page-bounded
// chunk at a time.
func (s *Subsystem) strnlen(p unsafe.Pointer, limit uintptr) uintptr {
	t := s.table.Load()
	var n uintptr
	for n < limit {
		addr := unsafe.Add(p, n)
		chunk := PageSize - uintptr(addr)%PageSize
		if chunk > limit-n {
			chunk = limit - n
		}
		i := t.Length(unsafe.Slice((*byte)(addr), chunk))
		n += uintptr(i)
		if uintptr(i) < chunk {
			break
		}
	}
	return n
}
