package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	assert.Equal(t, "dev (git unknown, built unknown)", String())
	Version = "v1.2.3"
	assert.Contains(t, String(), "v1.2.3")
}
