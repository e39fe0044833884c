//go:build cgo

package main

// #include <stddef.h>
// #include <stdint.h>
import "C"

import (
	"unsafe"

	"github.com/hartyporpoise/hwrt/internal/kernel"
)

//export hwrt_subsystem_init
func hwrt_subsystem_init() { kernel.SubsystemInit() }

//export hwrt_fpu_begin
func hwrt_fpu_begin() { kernel.FPUBegin() }

//export hwrt_fpu_end
func hwrt_fpu_end() { kernel.FPUEnd() }

//export hwrt_memcpy
func hwrt_memcpy(dst, src unsafe.Pointer, n C.size_t) unsafe.Pointer {
	return kernel.Default.Memcpy(dst, src, uintptr(n))
}

//export hwrt_memmove
func hwrt_memmove(dst, src unsafe.Pointer, n C.size_t) unsafe.Pointer {
	return kernel.Default.Memmove(dst, src, uintptr(n))
}

//export hwrt_memset
func hwrt_memset(dst unsafe.Pointer, c C.int, n C.size_t) unsafe.Pointer {
	return kernel.Default.Memset(dst, int(c), uintptr(n))
}

//export hwrt_strlen
func hwrt_strlen(s *C.char) C.size_t {
	return C.size_t(kernel.Default.Strlen(unsafe.Pointer(s)))
}

//export hwrt_strcmp
func hwrt_strcmp(a, b *C.char) C.int {
	return C.int(kernel.Default.Strcmp(unsafe.Pointer(a), unsafe.Pointer(b)))
}

//export hwrt_strncmp
func hwrt_strncmp(a, b *C.char, n C.size_t) C.int {
	return C.int(kernel.Default.Strncmp(unsafe.Pointer(a), unsafe.Pointer(b), uintptr(n)))
}

//export hwrt_strchr
func hwrt_strchr(s *C.char, c C.int) *C.char {
	return (*C.char)(kernel.Default.Strchr(unsafe.Pointer(s), int(c)))
}

//export hwrt_copy_page
func hwrt_copy_page(dst, src unsafe.Pointer) {
	kernel.Default.CopyPage(kernel.Bytes(dst, kernel.PageSize), kernel.Bytes(src, kernel.PageSize))
}

//export hwrt_zero_page
func hwrt_zero_page(dst unsafe.Pointer) {
	kernel.Default.ZeroPage(kernel.Bytes(dst, kernel.PageSize))
}

//export hwrt_pages_equal
func hwrt_pages_equal(a, b unsafe.Pointer) C.int {
	if kernel.Default.PagesEqual(kernel.Bytes(a, kernel.PageSize), kernel.Bytes(b, kernel.PageSize)) {
		return 1
	}
	return 0
}

//export hwrt_checksum
func hwrt_checksum(p unsafe.Pointer, n C.size_t) C.uint16_t {
	return C.uint16_t(kernel.Default.Checksum(kernel.Bytes(p, uintptr(n))))
}
