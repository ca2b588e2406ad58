package material

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidLayer(size uint32, rgba [4]byte) *common.TextureStagingData {
	pixels := make([]byte, size*size*4)
	for i := 0; i < len(pixels); i += 4 {
		copy(pixels[i:i+4], rgba[:])
	}
	return &common.TextureStagingData{Pixels: pixels, Width: size, Height: size}
}

func TestAppendAssignsSequentialIndices(t *testing.T) {
	tbl := NewTable(WithCapacity(4))

	for want := range 3 {
		idx, err := tbl.Append(NewMaterial())
		require.NoError(t, err)
		assert.Equal(t, Index(want), idx)
	}
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, 4, tbl.Capacity())
}

func TestAppendPastCapacity(t *testing.T) {
	tbl := NewTable(WithCapacity(2))
	_, err := tbl.Append(NewMaterial())
	require.NoError(t, err)
	_, err = tbl.Append(NewMaterial())
	require.NoError(t, err)

	_, err = tbl.Append(NewMaterial())
	assert.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, 2, tbl.Len(), "a rejected append leaves the table unchanged")
}

func TestRecordCarriesParameters(t *testing.T) {
	tbl := NewTable()
	idx, err := tbl.Append(NewMaterial(
		WithName("brick"),
		WithBaseColor(common.Vec4{0.8, 0.2, 0.1, 1}),
		WithSpecularColor(common.Vec4{0.5, 0.5, 0.5, 1}),
		WithShininess(64),
	))
	require.NoError(t, err)
	tbl.Commit(0)

	rec, err := tbl.Lookup(idx, 1)
	require.NoError(t, err)
	assert.Equal(t, common.Vec4{0.8, 0.2, 0.1, 1}, rec.BaseColor)
	assert.Equal(t, common.Vec4{0.5, 0.5, 0.5, 1}, rec.SpecularColor)
	assert.Equal(t, float32(64), rec.Shininess)
	assert.Equal(t, layout.NoTexture, rec.BaseColorLayer)
	assert.Equal(t, layout.NoTexture, rec.SpecularLayer)

	found, ok := tbl.IndexOf("brick")
	assert.True(t, ok)
	assert.Equal(t, idx, found)
}

func TestResidency(t *testing.T) {
	tbl := NewTable()
	first, err := tbl.Append(NewMaterial())
	require.NoError(t, err)

	_, err = tbl.Lookup(first, 10)
	assert.ErrorIs(t, err, ErrNotResident, "pending until committed")

	assert.Equal(t, 1, tbl.Commit(10))
	_, err = tbl.Lookup(first, 10)
	assert.ErrorIs(t, err, ErrNotResident, "frame 10 began before the commit")
	_, err = tbl.Lookup(first, 11)
	assert.NoError(t, err)

	second, err := tbl.Append(NewMaterial())
	require.NoError(t, err)
	_, err = tbl.Lookup(second, 11)
	assert.ErrorIs(t, err, ErrNotResident)
	assert.Equal(t, 1, tbl.Resident(11))

	assert.Equal(t, 1, tbl.Commit(11))
	assert.Equal(t, 0, tbl.Commit(12), "nothing left to commit")
	assert.Equal(t, 2, tbl.Resident(12))
	assert.Equal(t, 1, tbl.Resident(12-1))
}

func TestLookupOutOfRange(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Lookup(0, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestTexturesGetLayers(t *testing.T) {
	tbl := NewTable(WithLayerSize(4, 4), WithLayerCapacity(3))

	plain, err := tbl.Append(NewMaterial())
	require.NoError(t, err)
	textured, err := tbl.Append(NewMaterial(
		WithBaseColorTexture(solidLayer(4, [4]byte{255, 0, 0, 255})),
		WithSpecularTexture(solidLayer(4, [4]byte{128, 128, 128, 255})),
	))
	require.NoError(t, err)

	records := tbl.Records()
	assert.Equal(t, layout.NoTexture, records[plain].BaseColorLayer)
	assert.Equal(t, int32(0), records[textured].BaseColorLayer)
	assert.Equal(t, int32(1), records[textured].SpecularLayer)

	layers := tbl.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, byte(255), layers[0].Pixels[0])
	assert.Equal(t, byte(128), layers[1].Pixels[0])

	_, err = tbl.Append(NewMaterial(
		WithBaseColorTexture(solidLayer(4, [4]byte{})),
		WithSpecularTexture(solidLayer(4, [4]byte{})),
	))
	assert.ErrorIs(t, err, ErrTableFull, "two more layers do not fit")
	assert.Equal(t, 2, tbl.Len())
}

func TestTextureSizeMustMatchLayers(t *testing.T) {
	tbl := NewTable(WithLayerSize(4, 4))
	_, err := tbl.Append(NewMaterial(WithBaseColorTexture(solidLayer(8, [4]byte{}))))
	assert.ErrorIs(t, err, ErrTextureSize)

	short := solidLayer(4, [4]byte{})
	short.Pixels = short.Pixels[:10]
	_, err = tbl.Append(NewMaterial(WithBaseColorTexture(short)))
	assert.ErrorIs(t, err, ErrTextureSize)
}

func TestAppendCopiesPixels(t *testing.T) {
	tbl := NewTable(WithLayerSize(2, 2))
	tex := solidLayer(2, [4]byte{10, 20, 30, 255})
	_, err := tbl.Append(NewMaterial(WithBaseColorTexture(tex)))
	require.NoError(t, err)

	tex.Pixels[0] = 99
	assert.Equal(t, byte(10), tbl.Layers()[0].Pixels[0])
}
