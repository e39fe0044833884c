package bulk

import "bytes"

// The Vector256 strategy delegates to the Go runtime, whose memmove,
// memclr, IndexByte, Count and Compare are hand-written assembly that
// switches to AVX2 when the processor has it.

func copyRuntime(dst, src []byte) { copy(dst, src) }

func fillRuntime(dst []byte, c byte) {
	if c == 0 {
		clear(dst)
		return
	}
	dst[0] = c
	for n := 1; n < len(dst); n *= 2 {
		copy(dst[n:], dst[:n])
	}
}

func lengthRuntime(s []byte) int {
	if i := bytes.IndexByte(s, 0); i >= 0 {
		return i
	}
	return len(s)
}

func compareRuntime(a, b []byte) int {
	return bytes.Compare(a[:lengthRuntime(a)], b[:lengthRuntime(b)])
}

func memCompareRuntime(a, b []byte) int { return bytes.Compare(a, b) }

func findByteRuntime(h []byte, c byte) int { return bytes.IndexByte(h, c) }

func countByteRuntime(h []byte, c byte) int { return bytes.Count(h, []byte{c}) }
