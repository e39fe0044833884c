package fpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControlWordDecode(t *testing.T) {
	w := ControlWord(0x037F)
	assert.Equal(t, AllExceptions, w.Masked())
	assert.Equal(t, PrecisionExtended, w.Precision())
	assert.Equal(t, RoundNearest, w.Rounding())

	w = ControlWord(0x0C7A)
	assert.Equal(t, Denormal|Overflow|Underflow|Precision, w.Masked())
	assert.Equal(t, PrecisionSingle, w.Precision())
	assert.Equal(t, RoundTowardZero, w.Rounding())
}

func TestStatusWordDecode(t *testing.T) {
	// Busy, C3, TOP=5, ES, SF, IE.
	w := StatusWord(1<<15 | 1<<14 | 5<<11 | 1<<7 | 1<<6 | 1)
	assert.True(t, w.Busy())
	assert.Equal(t, 5, w.Top())
	assert.True(t, w.ErrorSummary())
	assert.True(t, w.StackFault())
	assert.Equal(t, InvalidOperation, w.Raised())
	c0, c1, c2, c3 := w.ConditionCodes()
	assert.False(t, c0)
	assert.False(t, c1)
	assert.False(t, c2)
	assert.True(t, c3)
}

func TestMXCSRDecode(t *testing.T) {
	m := MXCSR(0x1F80)
	assert.Equal(t, AllExceptions, m.Masked())
	assert.Equal(t, Exceptions(0), m.Raised())
	assert.Equal(t, RoundNearest, m.Rounding())
	assert.False(t, m.FlushToZero())
	assert.False(t, m.DenormalsAreZero())

	m = MXCSR(1<<15 | 2<<13 | 1<<6 | 1<<2)
	assert.True(t, m.FlushToZero())
	assert.True(t, m.DenormalsAreZero())
	assert.Equal(t, RoundUp, m.Rounding())
	assert.Equal(t, DivideByZero, m.Raised())
	assert.Equal(t, Exceptions(0), m.Masked())
}

func TestExceptionsString(t *testing.T) {
	assert.Equal(t, "none", Exceptions(0).String())
	assert.Equal(t, "IE|ZE|PE", (InvalidOperation | DivideByZero | Precision).String())
	assert.Equal(t, "toward-zero", RoundTowardZero.String())
}
