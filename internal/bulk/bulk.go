// Package bulk provides memory and string primitives in several strategies
// and picks the most capable one the processor supports.
//
// Every strategy of an operation is observably identical to the Scalar
// strategy, which is the reference. String operations treat the end of the
// slice as an implicit terminator when no zero byte is present.
package bulk

import (
	"fmt"

	"github.com/hartyporpoise/hwrt/internal/cpu"
)

// Level is an implementation strategy, ordered by capability. Levels are
// strategy tiers, not instruction-set guarantees: Vector256 defers to the Go
// runtime, which picks its own instructions whatever the registry reports.
type Level uint8

const (
	// Scalar works one byte at a time and runs everywhere.
	Scalar Level = iota
	// Vector128 works on 16-byte strides of machine words.
	Vector128
	// Vector256 hands off to the Go runtime's AVX2 routines.
	Vector256

	numLevels
)

func (l Level) String() string {
	switch l {
	case Scalar:
		return "scalar"
	case Vector128:
		return "vector128"
	case Vector256:
		return "vector256"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// ParseLevel maps a level name back to its Level.
func ParseLevel(s string) (Level, error) {
	for l := Scalar; l < numLevels; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("bulk: unknown level %q", s)
}

// Levels lists every strategy, least capable first.
func Levels() []Level { return []Level{Scalar, Vector128, Vector256} }

// Op names a dispatched operation.
type Op uint8

const (
	OpCopy Op = iota
	OpFill
	OpLength
	OpCompare
	OpMemCompare
	OpFindByte
	OpCountByte

	numOps
)

var opNames = [numOps]string{"copy", "fill", "length", "compare", "memcompare", "find_byte", "count_byte"}

func (o Op) String() string {
	if o < numOps {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Ops lists every dispatched operation.
func Ops() []Op {
	out := make([]Op, numOps)
	for i := range out {
		out[i] = Op(i)
	}
	return out
}

type impl struct {
	copy       func(dst, src []byte)
	fill       func(dst []byte, c byte)
	length     func(s []byte) int
	compare    func(a, b []byte) int
	memCompare func(a, b []byte) int
	findByte   func(h []byte, c byte) int
	countByte  func(h []byte, c byte) int
}

var impls = [numLevels]impl{
	Scalar: {
		copy:       copyScalar,
		fill:       fillScalar,
		length:     lengthScalar,
		compare:    compareScalar,
		memCompare: memCompareScalar,
		findByte:   findByteScalar,
		countByte:  countByteScalar,
	},
	Vector128: {
		copy:       copyWords,
		fill:       fillWords,
		length:     lengthWords,
		compare:    compareWords,
		memCompare: memCompareWords,
		findByte:   findByteWords,
		countByte:  countByteWords,
	},
	Vector256: {
		copy:       copyRuntime,
		fill:       fillRuntime,
		length:     lengthRuntime,
		compare:    compareRuntime,
		memCompare: memCompareRuntime,
		findByte:   findByteRuntime,
		countByte:  countByteRuntime,
	},
}

// Table is a dispatch table: one chosen strategy per operation. It is
// immutable once built and safe for concurrent use.
type Table struct {
	levels [numOps]Level
	fns    impl
}

// Select builds the table for flag set fs. Each operation gets the most
// capable strategy whose capability is present: Vector256, then Vector128,
// then Scalar. Compare's word-wise strategy is gated on the string
// acceleration capability rather than plain 128-bit vectors.
func Select(fs cpu.Features) *Table {
	t := &Table{}
	for _, op := range Ops() {
		t.levels[op] = pick(op, fs)
	}
	t.bind()
	return t
}

func pick(op Op, fs cpu.Features) Level {
	switch {
	case fs.Vector256():
		return Vector256
	case op == OpCompare:
		if fs.StringAccelerate() {
			return Vector128
		}
		return Scalar
	case fs.Vector128():
		return Vector128
	default:
		return Scalar
	}
}

// ForLevel builds a table that uses level l for every operation.
func ForLevel(l Level) *Table {
	t := &Table{}
	for _, op := range Ops() {
		t.levels[op] = l
	}
	t.bind()
	return t
}

func (t *Table) bind() {
	t.fns = impl{
		copy:       impls[t.levels[OpCopy]].copy,
		fill:       impls[t.levels[OpFill]].fill,
		length:     impls[t.levels[OpLength]].length,
		compare:    impls[t.levels[OpCompare]].compare,
		memCompare: impls[t.levels[OpMemCompare]].memCompare,
		findByte:   impls[t.levels[OpFindByte]].findByte,
		countByte:  impls[t.levels[OpCountByte]].countByte,
	}
}

// Level returns the strategy chosen for op.
func (t *Table) Level(op Op) Level { return t.levels[op] }

// Copy copies len(src) bytes into dst, which must be at least as long. The
// two ranges must not overlap; use Move for overlapping ranges.
func (t *Table) Copy(dst, src []byte) {
	if len(src) == 0 {
		return
	}
	t.fns.copy(dst[:len(src)], src)
}

// Fill sets every byte of dst to c.
func (t *Table) Fill(dst []byte, c byte) {
	if len(dst) == 0 {
		return
	}
	t.fns.fill(dst, c)
}

// Length returns the index of the first zero byte in s, or len(s).
func (t *Table) Length(s []byte) int { return t.fns.length(s) }

// Compare orders the zero-terminated strings at a and b by their first
// differing byte, read as unsigned. It returns -1, 0 or +1.
func (t *Table) Compare(a, b []byte) int { return t.fns.compare(a, b) }

// CompareN is Compare limited to the first n bytes of each string.
func (t *Table) CompareN(a, b []byte, n int) int {
	return t.fns.compare(truncate(a, n), truncate(b, n))
}

// MemCompare orders a and b byte-wise over their full lengths, ignoring
// zero bytes; a shorter slice that is a prefix of the other sorts first.
// It returns -1, 0 or +1.
func (t *Table) MemCompare(a, b []byte) int { return t.fns.memCompare(a, b) }

// Equal reports whether a and b hold the same bytes.
func (t *Table) Equal(a, b []byte) bool {
	return len(a) == len(b) && t.fns.memCompare(a, b) == 0
}

// FindByte returns the index of the first c in h, or -1.
func (t *Table) FindByte(h []byte, c byte) int { return t.fns.findByte(h, c) }

// CountByte returns the number of occurrences of c in h.
func (t *Table) CountByte(h []byte, c byte) int { return t.fns.countByte(h, c) }

// FindTerminated returns the index of the first c within the zero-terminated
// string s, or -1. Searching for 0 finds the terminator itself, and returns
// -1 if s has none.
func (t *Table) FindTerminated(s []byte, c byte) int {
	n := t.fns.length(s)
	if c == 0 {
		if n < len(s) {
			return n
		}
		return -1
	}
	return t.fns.findByte(s[:n], c)
}

// Move copies len(src) bytes into dst and tolerates overlap. It is not
// dispatched: the builtin copy already picks the fastest safe direction.
func Move(dst, src []byte) int {
	return copy(dst[:len(src)], src)
}

func truncate(s []byte, n int) []byte {
	if n < 0 {
		n = 0
	}
	if n < len(s) {
		return s[:n]
	}
	return s
}

func sign(d int) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}
