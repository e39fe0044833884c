package bulk

import (
	"encoding/binary"
	"math/bits"
)

// The Vector128 strategy processes two 64-bit words (16 bytes) per step
// where the loop body allows it, and one word otherwise.

const (
	wordSize = 8
	lanes    = 0x0101010101010101
	low7     = 0x7f7f7f7f7f7f7f7f
)

// zeroBytes returns a word with the high bit of each byte set exactly where
// x has a zero byte. Unlike the classic (x-0x01..)&^x&0x80.. trick it has no
// false positives, so it is safe for counting.
func zeroBytes(x uint64) uint64 {
	y := (x & low7) + low7
	return ^(y | x | low7)
}

// firstByte returns the byte index of the lowest flagged byte in mask.
func firstByte(mask uint64) int { return bits.TrailingZeros64(mask) / 8 }

func copyWords(dst, src []byte) {
	n := len(src)
	i := 0
	for ; i+2*wordSize <= n; i += 2 * wordSize {
		lo := binary.LittleEndian.Uint64(src[i:])
		hi := binary.LittleEndian.Uint64(src[i+wordSize:])
		binary.LittleEndian.PutUint64(dst[i:], lo)
		binary.LittleEndian.PutUint64(dst[i+wordSize:], hi)
	}
	for ; i+wordSize <= n; i += wordSize {
		binary.LittleEndian.PutUint64(dst[i:], binary.LittleEndian.Uint64(src[i:]))
	}
	for ; i < n; i++ {
		dst[i] = src[i]
	}
}

func fillWords(dst []byte, c byte) {
	w := uint64(c) * lanes
	n := len(dst)
	i := 0
	for ; i+2*wordSize <= n; i += 2 * wordSize {
		binary.LittleEndian.PutUint64(dst[i:], w)
		binary.LittleEndian.PutUint64(dst[i+wordSize:], w)
	}
	for ; i+wordSize <= n; i += wordSize {
		binary.LittleEndian.PutUint64(dst[i:], w)
	}
	for ; i < n; i++ {
		dst[i] = c
	}
}

func lengthWords(s []byte) int {
	i := 0
	for ; i+wordSize <= len(s); i += wordSize {
		if m := zeroBytes(binary.LittleEndian.Uint64(s[i:])); m != 0 {
			return i + firstByte(m)
		}
	}
	for ; i < len(s); i++ {
		if s[i] == 0 {
			return i
		}
	}
	return len(s)
}

// compareWords skips whole words that are equal and contain no terminator,
// then settles the rest byte by byte.
func compareWords(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for ; i+wordSize <= n; i += wordSize {
		x := binary.LittleEndian.Uint64(a[i:])
		if x != binary.LittleEndian.Uint64(b[i:]) || zeroBytes(x) != 0 {
			break
		}
	}
	return compareFrom(a, b, i)
}

// memCompareWords loads words big-endian so that integer order matches
// lexicographic byte order.
func memCompareWords(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for ; i+wordSize <= n; i += wordSize {
		x := binary.BigEndian.Uint64(a[i:])
		y := binary.BigEndian.Uint64(b[i:])
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return memCompareFrom(a, b, i)
}

func findByteWords(h []byte, c byte) int {
	pat := uint64(c) * lanes
	i := 0
	for ; i+wordSize <= len(h); i += wordSize {
		if m := zeroBytes(binary.LittleEndian.Uint64(h[i:]) ^ pat); m != 0 {
			return i + firstByte(m)
		}
	}
	for ; i < len(h); i++ {
		if h[i] == c {
			return i
		}
	}
	return -1
}

func countByteWords(h []byte, c byte) int {
	pat := uint64(c) * lanes
	n := 0
	i := 0
	for ; i+2*wordSize <= len(h); i += 2 * wordSize {
		n += bits.OnesCount64(zeroBytes(binary.LittleEndian.Uint64(h[i:]) ^ pat))
		n += bits.OnesCount64(zeroBytes(binary.LittleEndian.Uint64(h[i+wordSize:]) ^ pat))
	}
	for ; i+wordSize <= len(h); i += wordSize {
		n += bits.OnesCount64(zeroBytes(binary.LittleEndian.Uint64(h[i:]) ^ pat))
	}
	for ; i < len(h); i++ {
		if h[i] == c {
			n++
		}
	}
	return n
}
