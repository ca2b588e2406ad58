package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
	assert.Equal(t, float32(32), Coalesce(float32(0), 32.0))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(1), Clamp(float32(5), 0, 1))
	assert.Equal(t, -2, Clamp(-7, -2, 2))
	assert.Equal(t, uint32(3), Clamp(uint32(3), 1, 4))
}

func TestDivCeil(t *testing.T) {
	cases := []struct {
		n, d, want uint32
	}{
		{1, 64, 1},
		{64, 64, 1},
		{65, 64, 2},
		{1000, 64, 16},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DivCeil(tc.n, tc.d), "n=%d d=%d", tc.n, tc.d)
	}
}
