package layout

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomMat4(r *rand.Rand) common.Mat4 {
	var m common.Mat4
	for i := range m {
		m[i] = (r.Float32() - 0.5) * 2000
	}
	return m
}

func requireBitsEqual(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, math.Float32bits(want[i]), math.Float32bits(got[i]), "element %d", i)
	}
}

func TestRecordSizes(t *testing.T) {
	assert.Equal(t, 240, VertexUniforms{}.Size())
	assert.Equal(t, 272, FragmentUniforms{}.Size())
	assert.Equal(t, 48, MeshDescriptor{}.Size())
	assert.Equal(t, 20, IndirectArgs{}.Size())
	assert.Equal(t, 16, DrawArgument{}.Size())
	assert.Equal(t, 48, MaterialRecord{}.Size())
	assert.Equal(t, 112, CullUniforms{}.Size())
}

func TestVertexUniformsRoundTripIsBitIdentical(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for n := 0; n < 64; n++ {
		var u VertexUniforms
		u.ModelView = randomMat4(r)
		u.ModelViewProjection = randomMat4(r)
		u.ShadowModelViewProjection = randomMat4(r)
		u.SetNormalMatrix(common.NormalMatrix(u.ModelView))

		data := u.Marshal()
		require.Len(t, data, u.Size())

		var back VertexUniforms
		require.NoError(t, back.Unmarshal(data))
		requireBitsEqual(t, u.ModelView[:], back.ModelView[:])
		requireBitsEqual(t, u.ModelViewInverseTranspose[:], back.ModelViewInverseTranspose[:])
		requireBitsEqual(t, u.ModelViewProjection[:], back.ModelViewProjection[:])
		requireBitsEqual(t, u.ShadowModelViewProjection[:], back.ShadowModelViewProjection[:])
	}
}

func TestVertexUniformsSpecialFloatsSurvive(t *testing.T) {
	var u VertexUniforms
	u.ModelView[0] = float32(math.Inf(1))
	u.ModelView[1] = float32(math.Inf(-1))
	u.ModelView[2] = math.Float32frombits(0x7fc00001)
	u.ModelView[3] = math.Float32frombits(0x80000000)

	var back VertexUniforms
	require.NoError(t, back.Unmarshal(u.Marshal()))
	requireBitsEqual(t, u.ModelView[:], back.ModelView[:])
}

func TestShadowTransformIsAppendedLast(t *testing.T) {
	var u VertexUniforms
	u.ShadowModelViewProjection[0] = 42
	data := u.Marshal()
	assert.Equal(t, math.Float32bits(42), leU32(data[176:]))
}

func TestNormalMatrixPadding(t *testing.T) {
	var u VertexUniforms
	m := common.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	u.SetNormalMatrix(m)
	assert.Equal(t, [12]float32{1, 2, 3, 0, 4, 5, 6, 0, 7, 8, 9, 0}, u.ModelViewInverseTranspose)
	assert.Equal(t, m, u.NormalMatrix())
}

func TestMeshDescriptorRoundTrip(t *testing.T) {
	m := MeshDescriptor{
		IndexCount:    36,
		FirstIndex:    72,
		BaseVertex:    -3,
		VertexCount:   24,
		MaterialIndex: 5,
		Flags:         MeshFlagCastsShadow,
		BoundsCenter:  common.Vec3{1, -2, 3},
		BoundsRadius:  1.5,
	}
	var back MeshDescriptor
	require.NoError(t, back.Unmarshal(m.Marshal()))
	assert.Equal(t, m, back)
	assert.True(t, back.CastsShadow())
}

func TestIndirectArgsWireOrder(t *testing.T) {
	a := IndirectArgs{IndexCount: 1, InstanceCount: 2, FirstIndex: 3, BaseVertex: -4, FirstInstance: 5}
	data := a.Marshal()
	require.Len(t, data, 20)
	assert.Equal(t, uint32(1), leU32(data[0:]))
	assert.Equal(t, uint32(2), leU32(data[4:]))
	assert.Equal(t, uint32(3), leU32(data[8:]))
	assert.Equal(t, int32(-4), int32(leU32(data[12:])))
	assert.Equal(t, uint32(5), leU32(data[16:]))

	var back IndirectArgs
	require.NoError(t, back.Unmarshal(data))
	assert.Equal(t, a, back)
	assert.False(t, back.IsNoop())
	assert.True(t, IndirectArgs{FirstInstance: 9}.IsNoop())
}

func TestMaterialRecordRoundTrip(t *testing.T) {
	m := MaterialRecord{
		BaseColor:      common.Vec4{1, 0.5, 0.25, 1},
		SpecularColor:  common.Vec4{1, 1, 1, 1},
		BaseColorLayer: 3,
		SpecularLayer:  NoTexture,
		Shininess:      32,
	}
	var back MaterialRecord
	require.NoError(t, back.Unmarshal(m.Marshal()))
	assert.Equal(t, m, back)
}

func TestUnmarshalShortBuffer(t *testing.T) {
	var u VertexUniforms
	assert.ErrorIs(t, u.Unmarshal(make([]byte, 10)), ErrShortBuffer)
	var a IndirectArgs
	assert.ErrorIs(t, a.Unmarshal(nil), ErrShortBuffer)
}

func TestMarshalAll(t *testing.T) {
	args := []DrawArgument{{MaterialIndex: 1}, {MaterialIndex: 2, MeshIndex: 1, Visible: 1}}
	data := MarshalAll(args)
	require.Len(t, data, 32)
	assert.Equal(t, uint32(2), leU32(data[16:]))
	assert.Equal(t, uint32(1), leU32(data[24:]))
	assert.Nil(t, MarshalAll[DrawArgument](nil))
}

func TestSceneVertexLayoutsUseRegistryLocations(t *testing.T) {
	layouts := SceneVertexLayouts()
	require.Len(t, layouts, 2)

	pn := layouts[binding.VertexBufferVertex]
	assert.Equal(t, uint64(PositionNormalStride), pn.ArrayStride)
	require.Len(t, pn.Attributes, 2)
	assert.Equal(t, uint32(binding.AttributePosition), pn.Attributes[0].ShaderLocation)
	assert.Equal(t, uint32(binding.AttributeNormal), pn.Attributes[1].ShaderLocation)

	uv := layouts[binding.VertexBufferTextureCoordinates]
	assert.Equal(t, uint64(TexCoordStride), uv.ArrayStride)
	assert.Equal(t, uint32(binding.AttributeTexCoords), uv.Attributes[0].ShaderLocation)
}

func TestSplitStreams(t *testing.T) {
	vs := []SceneVertex{
		{Position: common.Vec3{1, 2, 3}, Normal: common.Vec3{0, 1, 0}, TexCoords: [2]float32{0.5, 0.25}},
		{Position: common.Vec3{4, 5, 6}, Normal: common.Vec3{0, 0, 1}, TexCoords: [2]float32{1, 0}},
	}
	pn, uv := SplitStreams(vs)
	require.Len(t, pn, 2*PositionNormalStride)
	require.Len(t, uv, 2*TexCoordStride)
	assert.Equal(t, math.Float32bits(4), leU32(pn[PositionNormalStride:]))
	assert.Equal(t, math.Float32bits(1), leU32(pn[PositionNormalStride+20:]))
	assert.Equal(t, math.Float32bits(0.25), leU32(uv[4:]))
}

func TestFullscreenQuadCoversClipSpace(t *testing.T) {
	data := MarshalQuad()
	require.Len(t, data, 4*QuadVertexStride)
	seen := map[[2]float32]bool{}
	for _, v := range FullscreenQuad {
		seen[v.Position] = true
	}
	for _, corner := range [][2]float32{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
		assert.True(t, seen[corner], "missing corner %v", corner)
	}
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
