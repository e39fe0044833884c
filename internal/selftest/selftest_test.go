package selftest

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hartyporpoise/hwrt/internal/bulk"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunAllLevels(t *testing.T) {
	rep, err := Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, rep.Err())
	assert.Len(t, rep.Results, len(bulk.Levels())*len(bulk.Ops()))

	// Results come back ordered by level, then op.
	i := 0
	for _, l := range bulk.Levels() {
		for _, op := range bulk.Ops() {
			assert.Equal(t, l, rep.Results[i].Level)
			assert.Equal(t, op, rep.Results[i].Op)
			assert.True(t, rep.Results[i].Passed())
			assert.Equal(t, len(lengths)*maxOffset, rep.Results[i].Cases)
			i++
		}
	}
	assert.Equal(t, len(rep.Results)*len(lengths)*maxOffset, rep.Cases())
	assert.Positive(t, rep.Duration)
}

func TestRunSelectedLevel(t *testing.T) {
	rep, err := Run(context.Background(), bulk.Vector128)
	require.NoError(t, err)
	assert.Len(t, rep.Results, len(bulk.Ops()))
	for _, res := range rep.Results {
		assert.Equal(t, bulk.Vector128, res.Level)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckReportsMismatch(t *testing.T) {
	ref := bulk.ForLevel(bulk.Scalar)
	broken := func(_, _ *bulk.Table, _ *rand.Rand, n, _ int) error {
		if n == 17 {
			return errors.New("boom")
		}
		return nil
	}
	saved := cases[bulk.OpFill]
	cases[bulk.OpFill] = broken
	t.Cleanup(func() { cases[bulk.OpFill] = saved })

	res, err := check(context.Background(), ref, ref, bulk.Scalar, bulk.OpFill)
	require.NoError(t, err)
	assert.False(t, res.Passed())
	assert.ErrorIs(t, res.Err, ErrMismatch)
	assert.Contains(t, res.Err.Error(), "scalar/fill len=17 offset=0")
	assert.Equal(t, 17*maxOffset+1, res.Cases)

	rep := Report{Results: []Result{res, {Level: bulk.Scalar, Op: bulk.OpCopy}}}
	assert.ErrorIs(t, rep.Err(), ErrMismatch)
}
