//go:build unix

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// AllocPages maps n zeroed, page-aligned pages of anonymous memory.
func AllocPages(n int) (*Pages, error) {
	if n <= 0 {
		return nil, fmt.Errorf("alloc pages: invalid count %d", n)
	}
	b, err := unix.Mmap(-1, 0, n*PageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("alloc pages: mmap %d bytes: %w", n*PageSize, err)
	}
	return &Pages{b: b, free: unix.Munmap}, nil
}
