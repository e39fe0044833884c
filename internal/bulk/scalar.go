package bulk

func copyScalar(dst, src []byte) {
	for i := range src {
		dst[i] = src[i]
	}
}

func fillScalar(dst []byte, c byte) {
	for i := range dst {
		dst[i] = c
	}
}

func lengthScalar(s []byte) int {
	for i, c := range s {
		if c == 0 {
			return i
		}
	}
	return len(s)
}

func compareScalar(a, b []byte) int {
	return compareFrom(a, b, 0)
}

// compareFrom is the byte-wise compare starting at offset i, with the end
// of either slice read as a terminator.
func compareFrom(a, b []byte, i int) int {
	for ; ; i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		if ca != cb {
			return sign(int(ca) - int(cb))
		}
		if ca == 0 {
			return 0
		}
	}
}

func memCompareScalar(a, b []byte) int {
	return memCompareFrom(a, b, 0)
}

func memCompareFrom(a, b []byte, i int) int {
	n := min(len(a), len(b))
	for ; i < n; i++ {
		if a[i] != b[i] {
			return sign(int(a[i]) - int(b[i]))
		}
	}
	return sign(len(a) - len(b))
}

func findByteScalar(h []byte, c byte) int {
	for i, x := range h {
		if x == c {
			return i
		}
	}
	return -1
}

func countByteScalar(h []byte, c byte) int {
	n := 0
	for _, x := range h {
		if x == c {
			n++
		}
	}
	return n
}
