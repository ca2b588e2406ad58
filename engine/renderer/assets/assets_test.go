package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryProgramIsEmbedded(t *testing.T) {
	for _, name := range []string{GenerateCommands, Shadow, GBuffer, Composite, CompositeWorld} {
		src, err := Source(name)
		require.NoError(t, err, name)
		assert.Contains(t, src, "@oxy:", name)
	}
	_, err := Source("forward.wgsl")
	assert.Error(t, err)
}
