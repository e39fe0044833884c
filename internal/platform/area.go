package platform

import (
	"fmt"
	"unsafe"
)

// AlignedBytes returns a slice of size bytes whose first element is aligned
// to align, which must be a power of two. Go never moves heap objects, so the
// alignment holds for the lifetime of the slice.
func AlignedBytes(size, align int) []byte {
	if size == 0 {
		return nil
	}
	buf := make([]byte, size+align-1)
	off := AlignOffset(buf, align)
	return buf[off : off+size : off+size]
}

// AlignOffset returns how many bytes must be skipped from the start of buf to
// reach an address aligned to align.
func AlignOffset(buf []byte, align int) int {
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	mask := uintptr(align - 1)
	return int((uintptr(align) - addr&mask) & mask)
}

// checkArea panics if area cannot hold an image of format f.
func checkArea(f SaveFormat, area []byte) {
	if len(area) < f.ImageSize(0) {
		panic(fmt.Sprintf("platform: %s save area too small: %d bytes", f, len(area)))
	}
	if AlignOffset(area, f.Alignment()) != 0 {
		panic(fmt.Sprintf("platform: %s save area not %d-byte aligned", f, f.Alignment()))
	}
}
