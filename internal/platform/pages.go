package platform

// PageSize is the granule of the page helpers.
const PageSize = 4096

// Pages is a page-aligned buffer obtained from AllocPages.
type Pages struct {
	b    []byte
	free func([]byte) error
}

// Bytes returns the buffer. It is invalid after Free.
func (p *Pages) Bytes() []byte { return p.b }

// Page returns the i-th page of the buffer.
func (p *Pages) Page(i int) []byte {
	return p.b[i*PageSize : (i+1)*PageSize : (i+1)*PageSize]
}

// Free releases the buffer. Calling Free twice is a no-op.
func (p *Pages) Free() error {
	if p.b == nil {
		return nil
	}
	b := p.b
	p.b = nil
	if p.free == nil {
		return nil
	}
	return p.free(b)
}
