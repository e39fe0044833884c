package kernel

import (
	"encoding/binary"

	"github.com/hartyporpoise/hwrt/internal/bulk"
	"github.com/hartyporpoise/hwrt/internal/metrics"
	"github.com/hartyporpoise/hwrt/internal/platform"
)

// PageSize is the granule of the page helpers.
const PageSize = platform.PageSize

// Copy copies len(src) bytes into dst. The ranges must not overlap.
func (s *Subsystem) Copy(dst, src []byte) {
	s.metrics.RecordCall(metrics.Copy, len(src))
	s.table.Load().Copy(dst, src)
}

// Move copies len(src) bytes into dst; the ranges may overlap.
func (s *Subsystem) Move(dst, src []byte) {
	s.metrics.RecordCall(metrics.Move, len(src))
	bulk.Move(dst, src)
}

// Fill sets every byte of dst to c.
func (s *Subsystem) Fill(dst []byte, c byte) {
	s.metrics.RecordCall(metrics.Fill, len(dst))
	s.table.Load().Fill(dst, c)
}

// Length returns the index of the first zero byte of str, or len(str).
func (s *Subsystem) Length(str []byte) int {
	n := s.table.Load().Length(str)
	s.metrics.RecordCall(metrics.Length, n)
	return n
}

// Compare orders two zero-terminated strings; see bulk.Table.Compare.
func (s *Subsystem) Compare(a, b []byte) int {
	s.metrics.RecordCall(metrics.Compare, 0)
	return s.table.Load().Compare(a, b)
}

// CompareN is Compare over at most n bytes.
func (s *Subsystem) CompareN(a, b []byte, n int) int {
	s.metrics.RecordCall(metrics.CompareN, 0)
	return s.table.Load().CompareN(a, b, n)
}

// FindByte returns the index of the first c in h, or -1.
func (s *Subsystem) FindByte(h []byte, c byte) int {
	s.metrics.RecordCall(metrics.FindByte, len(h))
	return s.table.Load().FindByte(h, c)
}

// CountByte returns the number of occurrences of c in h.
func (s *Subsystem) CountByte(h []byte, c byte) int {
	s.metrics.RecordCall(metrics.CountByte, len(h))
	return s.table.Load().CountByte(h, c)
}

// FindTerminated returns the index of c within the zero-terminated string
// str, or -1.
func (s *Subsystem) FindTerminated(str []byte, c byte) int {
	s.metrics.RecordCall(metrics.FindTerminated, 0)
	return s.table.Load().FindTerminated(str, c)
}

// CopyPage copies one page from src to dst.
func (s *Subsystem) CopyPage(dst, src []byte) {
	s.metrics.RecordCall(metrics.CopyPage, PageSize)
	s.table.Load().Copy(dst[:PageSize], src[:PageSize])
}

// ZeroPage clears one page at dst.
func (s *Subsystem) ZeroPage(dst []byte) {
	s.metrics.RecordCall(metrics.ZeroPage, PageSize)
	s.table.Load().Fill(dst[:PageSize], 0)
}

// PagesEqual reports whether the pages at a and b hold the same bytes.
func (s *Subsystem) PagesEqual(a, b []byte) bool {
	s.metrics.RecordCall(metrics.PagesEqual, PageSize)
	return s.table.Load().Equal(a[:PageSize], b[:PageSize])
}

// Checksum returns the one's-complement checksum of b; see Checksum.
func (s *Subsystem) Checksum(b []byte) uint16 {
	s.metrics.RecordCall(metrics.Checksum, len(b))
	return Checksum(b)
}

// Checksum computes the Internet checksum of b as the kernel's network
// stack stores it: 16-bit words are read in little-endian (host) order, an
// odd trailing byte is added as the low byte of a final word, carries are
// folded back in, and the result is complemented. Stored little-endian, it
// is the big-endian checksum of RFC 1071.
func Checksum(b []byte) uint16 {
	var sum uint64
	i := 0
	for ; i+1 < len(b); i += 2 {
		sum += uint64(binary.LittleEndian.Uint16(b[i:]))
	}
	if i < len(b) {
		sum += uint64(b[i])
	}
	for sum>>16 != 0 {
		sum = sum&0xFFFF + sum>>16
	}
	return ^uint16(sum)
}
