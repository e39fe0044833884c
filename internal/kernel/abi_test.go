package kernel

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartyporpoise/hwrt/internal/platform"
)

// The raw-pointer entry points scan past the end of a string up to the end
// of its page, so the tests use mapped pages rather than Go heap slices.
func mapped(t *testing.T, n int) []byte {
	t.Helper()
	p, err := platform.AllocPages(n)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Free() })
	return p.Bytes()
}

func put(buf []byte, off int, s string) unsafe.Pointer {
	copy(buf[off:], s)
	buf[off+len(s)] = 0
	return unsafe.Pointer(&buf[off])
}

func TestRawMemFunctions(t *testing.T) {
	s, _ := newSim(t, platform.ProfileModern())
	s.Init()
	mem := mapped(t, 1)

	src := unsafe.Pointer(&mem[0])
	dst := unsafe.Pointer(&mem[100])
	copy(mem, "payload")

	assert.Equal(t, dst, s.Memcpy(dst, src, 7))
	assert.Equal(t, "payload", string(mem[100:107]))

	assert.Equal(t, dst, s.Memset(dst, 0x41, 3))
	assert.Equal(t, "AAAload", string(mem[100:107]))

	s.Memmove(unsafe.Pointer(&mem[101]), dst, 6)
	assert.Equal(t, "AAAAloa", string(mem[100:107]))

	assert.Equal(t, dst, s.Memcpy(dst, nil, 0))
	assert.Equal(t, dst, s.Memset(dst, 0, 0))
}

func TestRawStringFunctions(t *testing.T) {
	for _, profile := range []platform.SimOption{platform.ProfileModern(), platform.ProfileSSE2(), platform.ProfileNoFPU()} {
		s, _ := newSim(t, profile)
		s.Init()
		mem := mapped(t, 2)

		// "boundary" straddles the first page end.
		a := put(mem, PageSize-4, "boundary")
		b := put(mem, 0, "boundarz")
		c := put(mem, 64, "bound")

		assert.Equal(t, uintptr(8), s.Strlen(a))
		assert.Equal(t, uintptr(0), s.Strlen(put(mem, 200, "")))
		assert.Equal(t, -1, s.Strcmp(a, b))
		assert.Equal(t, 1, s.Strcmp(b, c))
		assert.Equal(t, 0, s.Strcmp(a, a))
		assert.Equal(t, 0, s.Strncmp(a, b, 7))
		assert.Equal(t, -1, s.Strncmp(a, b, 8))
		assert.Equal(t, 0, s.Strncmp(a, c, 5))
		assert.Equal(t, 1, s.Strncmp(a, c, 6))
		assert.Equal(t, 0, s.Strncmp(a, b, 0))
		assert.Equal(t, -1, s.Strncmp(a, b, ^uintptr(0)), "SIZE_MAX bound")
		assert.Equal(t, 1, s.Strncmp(a, c, math.MaxInt+1))
		assert.Equal(t, 0, s.Strncmp(a, a, ^uintptr(0)))

		assert.Equal(t, unsafe.Add(a, 4), s.Strchr(a, 'd'))
		assert.Equal(t, unsafe.Add(a, 8), s.Strchr(a, 0))
		assert.Nil(t, s.Strchr(a, 'q'))
	}
}

func TestBytes(t *testing.T) {
	assert.Nil(t, Bytes(nil, 4))
	mem := mapped(t, 1)
	assert.Len(t, Bytes(unsafe.Pointer(&mem[0]), 16), 16)
}
