package platform

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignedBytes(t *testing.T) {
	for _, align := range []int{4, 16, 64, PageSize} {
		for _, size := range []int{1, 108, 512, 832} {
			b := AlignedBytes(size, align)
			require.Len(t, b, size)
			assert.Equal(t, 0, AlignOffset(b, align), "size=%d align=%d", size, align)
		}
	}
	assert.Nil(t, AlignedBytes(0, 64))
}

func TestImageSize(t *testing.T) {
	assert.Equal(t, BasicSize, Basic.ImageSize(4096))
	assert.Equal(t, ExtendedSize, Extended.ImageSize(4096))
	assert.Equal(t, MinXSaveSize, ExtendedWithVector.ImageSize(0))
	assert.Equal(t, 832, ExtendedWithVector.ImageSize(832))
}

func TestControlBitsApply(t *testing.T) {
	bits := ControlBits{CR0Set: CR0MP | CR0NE, CR0Clear: CR0EM, CR4Set: CR4OSFXSR}
	cr0, cr4 := bits.Apply(CR0EM|1, 0)
	assert.Equal(t, uint64(1|CR0MP|CR0NE), cr0)
	assert.Equal(t, uint64(CR4OSFXSR), cr4)
}

func TestSimProfiles(t *testing.T) {
	t.Run("modern", func(t *testing.T) {
		s := NewSim(ProfileModern())
		require.True(t, s.IdentifySupported())
		_, ebx, ecx, edx := s.CPUID(LeafVendor, 0)
		var v [12]byte
		binary.LittleEndian.PutUint32(v[0:], ebx)
		binary.LittleEndian.PutUint32(v[4:], edx)
		binary.LittleEndian.PutUint32(v[8:], ecx)
		assert.Equal(t, "GenuineIntel", string(v[:]))
		assert.Equal(t, uint64(XCR0X87|XCR0SSE|XCR0AVX), s.XCR0())
	})
	t.Run("sse2 has no xcr0", func(t *testing.T) {
		s := NewSim(ProfileSSE2())
		assert.Zero(t, s.XCR0())
	})
	t.Run("legacy answers zeros", func(t *testing.T) {
		s := NewSim(ProfileLegacyFPU())
		assert.False(t, s.IdentifySupported())
		assert.True(t, s.MathUnitPresent())
		a, b, c, d := s.CPUID(LeafFeatures, 0)
		assert.Zero(t, a|b|c|d)
	})
	t.Run("no fpu", func(t *testing.T) {
		assert.False(t, NewSim(ProfileNoFPU()).MathUnitPresent())
	})
	t.Run("by name", func(t *testing.T) {
		for _, name := range SimProfiles() {
			p, ok := SimProfile(name)
			require.True(t, ok, name)
			NewSim(p)
		}
		_, ok := SimProfile("pentium")
		assert.False(t, ok)
	})
}

func TestSimWriteControl(t *testing.T) {
	s := NewSim(ProfileModern())
	s.WriteControl(ControlBits{CR0Set: CR0MP | CR0NE, CR0Clear: CR0EM, CR4Set: CR4OSFXSR | CR4OSXSAVE})
	cr0, cr4 := s.ControlRegisters()
	assert.Zero(t, cr0&CR0EM)
	assert.NotZero(t, cr0&CR0MP)
	assert.NotZero(t, cr0&CR0NE)
	assert.Equal(t, uint64(CR4OSFXSR|CR4OSXSAVE), cr4)
	_, n := s.Control()
	assert.Equal(t, 1, n)
}

func TestSimSaveRestore(t *testing.T) {
	s := NewSim(ProfileModern())
	s.ResetFPU()
	assert.Equal(t, 1, s.Resets())
	assert.Equal(t, uint16(DefaultFCW), binary.LittleEndian.Uint16(s.Registers()))

	regs := s.Registers()
	for i := range regs[:832] {
		regs[i] = byte(i * 7)
	}
	area := AlignedBytes(832, 64)
	s.Save(ExtendedWithVector, area)
	assert.Equal(t, regs[:832], area)

	clear(regs)
	s.Restore(ExtendedWithVector, area)
	for i := range regs[:832] {
		require.Equal(t, byte(i*7), regs[i], "offset %d", i)
	}
	saves, restores := s.Transfers(ExtendedWithVector)
	assert.Equal(t, 1, saves)
	assert.Equal(t, 1, restores)
}

func TestSimBasicSaveReinitializes(t *testing.T) {
	s := NewSim(ProfileLegacyFPU())
	regs := s.Registers()
	binary.LittleEndian.PutUint16(regs[0:], 0x0272)
	binary.LittleEndian.PutUint16(regs[8:], 0x0000)

	area := AlignedBytes(BasicSize, 4)
	s.Save(Basic, area)
	assert.Equal(t, uint16(0x0272), binary.LittleEndian.Uint16(area[0:]))
	assert.Equal(t, uint16(DefaultFCW), binary.LittleEndian.Uint16(regs[0:]))
	assert.Equal(t, uint16(0xFFFF), binary.LittleEndian.Uint16(regs[8:]))
}

func TestCheckAreaPanics(t *testing.T) {
	s := NewSim(ProfileModern())
	assert.Panics(t, func() { s.Save(Extended, make([]byte, 16)) })

	buf := AlignedBytes(ExtendedSize+1, 16)
	assert.Panics(t, func() { s.Save(Extended, buf[1:]) })
}

func TestAllocPages(t *testing.T) {
	p, err := AllocPages(2)
	require.NoError(t, err)
	defer func() { require.NoError(t, p.Free()) }()

	require.Len(t, p.Bytes(), 2*PageSize)
	assert.Equal(t, 0, AlignOffset(p.Bytes(), PageSize))
	assert.Len(t, p.Page(1), PageSize)
	for _, b := range p.Bytes() {
		require.Zero(t, b)
	}

	_, err = AllocPages(0)
	assert.Error(t, err)
}
