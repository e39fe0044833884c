//go:build !unix

package platform

import "fmt"

// AllocPages returns n zeroed, page-aligned pages from the Go heap.
func AllocPages(n int) (*Pages, error) {
	if n <= 0 {
		return nil, fmt.Errorf("alloc pages: invalid count %d", n)
	}
	return &Pages{b: AlignedBytes(n*PageSize, PageSize)}, nil
}
