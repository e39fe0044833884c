package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hartyporpoise/hwrt/internal/platform"
)

func TestHostAgreesWithHints(t *testing.T) {
	r := NewRegistry()
	fs := r.Init(platform.Host())
	assert.Equal(t, Modern, r.Variant())
	assert.True(t, fs.Has(SSE2), "every amd64 core has SSE2")
	assert.Empty(t, r.CrossCheck(HostHints()))
}
