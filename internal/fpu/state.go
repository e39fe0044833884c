// Package fpu manages floating-point and vector register state across
// execution contexts. A Manager owns one saved image and swaps it in and out
// of the hardware lazily: restore when a context starts using the unit, save
// when it stops.
package fpu

import (
	"encoding/binary"

	"github.com/hartyporpoise/hwrt/internal/cpu"
	"github.com/hartyporpoise/hwrt/internal/platform"
)

// Format is the save/restore instruction family of an image.
type Format = platform.SaveFormat

const (
	Basic              = platform.Basic
	Extended           = platform.Extended
	ExtendedWithVector = platform.ExtendedWithVector
)

// Offsets into the saved images.
const (
	basicFCW = 0
	basicFSW = 4
	basicFTW = 8

	fxFCW      = 0
	fxFSW      = 2
	fxFTW      = 4
	fxMXCSR    = 24
	xsaveHdrBV = platform.ExtendedSize
)

// SelectFormat picks the richest format the flag set can use:
// ExtendedWithVector, then Extended, then Basic.
func SelectFormat(fs cpu.Features) Format {
	switch {
	case fs.ExtendedSave():
		return ExtendedWithVector
	case fs.Has(cpu.FXSR):
		return Extended
	default:
		return Basic
	}
}

// State is an aligned register image tagged with its format.
type State struct {
	format Format
	image  []byte
}

// NewState allocates an image for format, sized from xsaveSize when the
// format is ExtendedWithVector, and seeds it with the clean state.
func NewState(format Format, xsaveSize int) *State {
	s := &State{
		format: format,
		image:  platform.AlignedBytes(format.ImageSize(xsaveSize), platform.ExtendedWithVector.Alignment()),
	}
	s.Reset()
	return s
}

// Reset overwrites the image with the architectural clean state: every x87
// and SIMD exception masked, round-to-nearest, an empty register stack, and
// for XSAVE an all-zero header so every component loads its init value.
// An all-zero image would unmask every exception on restore.
func (s *State) Reset() {
	clear(s.image)
	switch s.format {
	case Basic:
		binary.LittleEndian.PutUint16(s.image[basicFCW:], platform.DefaultFCW)
		binary.LittleEndian.PutUint16(s.image[basicFTW:], 0xFFFF)
	default:
		binary.LittleEndian.PutUint16(s.image[fxFCW:], platform.DefaultFCW)
		binary.LittleEndian.PutUint32(s.image[fxMXCSR:], platform.DefaultMXCSR)
	}
}

// Format returns the image's format.
func (s *State) Format() Format { return s.format }

// Bytes returns the raw image. The slice aliases the state.
func (s *State) Bytes() []byte { return s.image }

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	n := &State{
		format: s.format,
		image:  platform.AlignedBytes(len(s.image), platform.ExtendedWithVector.Alignment()),
	}
	copy(n.image, s.image)
	return n
}

// ControlWord returns the saved x87 control word.
func (s *State) ControlWord() ControlWord {
	return ControlWord(binary.LittleEndian.Uint16(s.image[basicFCW:]))
}

// StatusWord returns the saved x87 status word.
func (s *State) StatusWord() StatusWord {
	if s.format == Basic {
		return StatusWord(binary.LittleEndian.Uint16(s.image[basicFSW:]))
	}
	return StatusWord(binary.LittleEndian.Uint16(s.image[fxFSW:]))
}

// TagWord returns the saved x87 tag word. Basic images hold the full 16-bit
// word (0xFFFF when empty). The extended formats hold the abridged 8-bit
// form, one bit per register with 0 meaning empty.
func (s *State) TagWord() uint16 {
	if s.format == Basic {
		return binary.LittleEndian.Uint16(s.image[basicFTW:])
	}
	return uint16(s.image[fxFTW])
}

// MXCSR returns the saved SIMD control/status register. ok is false for
// Basic images, which carry no SIMD state.
func (s *State) MXCSR() (m MXCSR, ok bool) {
	if s.format == Basic {
		return 0, false
	}
	return MXCSR(binary.LittleEndian.Uint32(s.image[fxMXCSR:])), true
}

// XStateBV returns the XSAVE header's component bitmap. ok is false unless
// the image is ExtendedWithVector.
func (s *State) XStateBV() (bv uint64, ok bool) {
	if s.format != ExtendedWithVector {
		return 0, false
	}
	return binary.LittleEndian.Uint64(s.image[xsaveHdrBV:]), true
}
