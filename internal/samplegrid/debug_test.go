package samplegrid

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogWriters(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	g := mustFromString(t, "@.\n")
	assert.Contains(t, diag.String(), "[samplegrid] ")
	assert.Contains(t, diag.String(), "built 2x1 grid from text map")

	require.NoError(t, g.Blur(3, 1.0))
	assert.Contains(t, diag.String(), "blurred 2x1 grid")

	g.SampleAll()
	assert.Contains(t, trace.String(), "sampled 2x1 grid")

	assert.Empty(t, ops.String())
	_, err := g.Observe(0, 0, 0)
	require.NoError(t, err)
	_, err = g.Observe(0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, ops.String(), "observe (0, 0) failed")
}

func TestSetLogWriters_Disabled(t *testing.T) {
	SetLogWriters(nil, nil, nil)
	// Nil loggers must not panic.
	opsf("x")
	diagf("x")
	tracef("x")
}
