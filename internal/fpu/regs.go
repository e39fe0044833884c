package fpu

import "strings"

// Exceptions is the six-bit floating-point exception set shared by the x87
// status word, the x87 control word masks, and MXCSR.
type Exceptions uint8

const (
	InvalidOperation Exceptions = 1 << iota
	Denormal
	DivideByZero
	Overflow
	Underflow
	Precision

	AllExceptions = InvalidOperation | Denormal | DivideByZero | Overflow | Underflow | Precision
)

var exceptionNames = [...]string{"IE", "DE", "ZE", "OE", "UE", "PE"}

func (e Exceptions) String() string {
	if e == 0 {
		return "none"
	}
	var parts []string
	for i, n := range exceptionNames {
		if e&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// RoundingMode is the two-bit rounding control field.
type RoundingMode uint8

const (
	RoundNearest RoundingMode = iota
	RoundDown
	RoundUp
	RoundTowardZero
)

func (r RoundingMode) String() string {
	return [...]string{"nearest", "down", "up", "toward-zero"}[r&3]
}

// PrecisionControl is the x87 precision control field.
type PrecisionControl uint8

const (
	PrecisionSingle   PrecisionControl = 0
	PrecisionReserved PrecisionControl = 1
	PrecisionDouble   PrecisionControl = 2
	PrecisionExtended PrecisionControl = 3
)

// ControlWord is the x87 FPU control word.
type ControlWord uint16

// Masked returns the exceptions that are masked (do not trap).
func (w ControlWord) Masked() Exceptions { return Exceptions(w) & AllExceptions }

func (w ControlWord) Precision() PrecisionControl { return PrecisionControl(w>>8) & 3 }
func (w ControlWord) Rounding() RoundingMode      { return RoundingMode(w>>10) & 3 }

// StatusWord is the x87 FPU status word.
type StatusWord uint16

// Raised returns the sticky exception flags.
func (w StatusWord) Raised() Exceptions { return Exceptions(w) & AllExceptions }

func (w StatusWord) StackFault() bool   { return w&(1<<6) != 0 }
func (w StatusWord) ErrorSummary() bool { return w&(1<<7) != 0 }
func (w StatusWord) Busy() bool         { return w&(1<<15) != 0 }

// Top is the index of the register at the top of the x87 stack.
func (w StatusWord) Top() int { return int(w>>11) & 7 }

// ConditionCodes returns C0 through C3.
func (w StatusWord) ConditionCodes() (c0, c1, c2, c3 bool) {
	return w&(1<<8) != 0, w&(1<<9) != 0, w&(1<<10) != 0, w&(1<<14) != 0
}

// MXCSR is the SSE control and status register.
type MXCSR uint32

// Raised returns the sticky exception flags.
func (m MXCSR) Raised() Exceptions { return Exceptions(m) & AllExceptions }

// Masked returns the exceptions that are masked.
func (m MXCSR) Masked() Exceptions { return Exceptions(m>>7) & AllExceptions }

func (m MXCSR) DenormalsAreZero() bool { return m&(1<<6) != 0 }
func (m MXCSR) Rounding() RoundingMode { return RoundingMode(m>>13) & 3 }
func (m MXCSR) FlushToZero() bool      { return m&(1<<15) != 0 }
