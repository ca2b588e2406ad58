package generator

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/assets"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFrustum looks down -z from (0, 0, 10) at the origin.
func testFrustum() common.Frustum {
	view := common.LookAt(common.Vec3{0, 0, 10}, common.Vec3{}, common.Vec3{0, 1, 0})
	return common.ExtractFrustum(common.Mul4(common.Perspective(math32.Pi/3, 1, 0.1, 100), view))
}

func mesh(indexCount, firstIndex uint32, baseVertex int32, material uint32, center common.Vec3, casts bool) layout.MeshDescriptor {
	m := layout.MeshDescriptor{
		IndexCount:    indexCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		VertexCount:   indexCount,
		MaterialIndex: material,
		BoundsCenter:  center,
		BoundsRadius:  1,
	}
	if casts {
		m.Flags |= layout.MeshFlagCastsShadow
	}
	return m
}

func TestNewMeshCommandViewRejectsOverflow(t *testing.T) {
	meshes := make([]layout.MeshDescriptor, 5)

	_, err := NewMeshCommandView(meshes, 4)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	v, err := NewMeshCommandView(meshes, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Len())
	assert.Equal(t, 5, v.Capacity())
}

func TestPairIsIndexChecked(t *testing.T) {
	v, err := NewMeshCommandView([]layout.MeshDescriptor{mesh(36, 0, 0, 7, common.Vec3{}, false)}, 4)
	require.NoError(t, err)

	m, cmd, arg, err := v.Pair(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), m.MaterialIndex)
	require.NotNil(t, cmd)
	require.NotNil(t, arg)

	cmd.IndexCount = 99
	assert.Equal(t, uint32(99), v.Commands()[0].IndexCount, "Pair hands out the slot itself")

	for _, i := range []int{-1, 1, 4} {
		_, _, _, err := v.Pair(i)
		assert.ErrorIs(t, err, ErrSlotOutOfRange, "index %d", i)
	}
}

func TestGenerateOneSlotPerMesh(t *testing.T) {
	meshes := []layout.MeshDescriptor{
		mesh(36, 0, 0, 2, common.Vec3{0, 0, 0}, true),
		mesh(6, 36, 24, 0, common.Vec3{2, 0, 0}, false),
		mesh(960, 42, 28, 5, common.Vec3{-2, 1, 0}, true),
	}
	v, err := NewMeshCommandView(meshes, 16)
	require.NoError(t, err)

	require.NoError(t, Generate(v, testFrustum(), true, nil))

	require.Len(t, v.Commands(), len(meshes))
	require.Len(t, v.Arguments(), len(meshes))
	for i, m := range meshes {
		cmd := v.Commands()[i]
		assert.Equal(t, layout.IndirectArgs{
			IndexCount:    m.IndexCount,
			InstanceCount: 1,
			FirstIndex:    m.FirstIndex,
			BaseVertex:    m.BaseVertex,
			FirstInstance: uint32(i),
		}, cmd, "slot %d", i)
		assert.Equal(t, m.MaterialIndex, v.Arguments()[i].MaterialIndex, "slot %d material", i)
		assert.Equal(t, uint32(i), v.Arguments()[i].MeshIndex)
		assert.Equal(t, uint32(1), v.Arguments()[i].Visible)
	}
}

func TestGenerateCulledMeshKeepsItsSlot(t *testing.T) {
	meshes := []layout.MeshDescriptor{
		mesh(36, 0, 0, 1, common.Vec3{0, 0, 0}, false),
		mesh(36, 36, 24, 3, common.Vec3{500, 0, 0}, true),
		mesh(36, 72, 48, 4, common.Vec3{0, 1, 0}, false),
	}
	v, err := NewMeshCommandView(meshes, 3)
	require.NoError(t, err)

	require.NoError(t, Generate(v, testFrustum(), true, nil))

	culled := v.Commands()[1]
	assert.True(t, culled.IsNoop())
	assert.Equal(t, uint32(0), culled.IndexCount)
	assert.Equal(t, uint32(0), culled.InstanceCount)
	assert.Equal(t, uint32(1), culled.FirstInstance, "the slot still belongs to mesh 1")
	assert.Equal(t, uint32(0), v.Arguments()[1].Visible)
	assert.Equal(t, uint32(3), v.Arguments()[1].MaterialIndex)

	assert.False(t, v.Commands()[2].IsNoop(), "the next mesh is not shifted into the culled slot")
	assert.Equal(t, uint32(72), v.Commands()[2].FirstIndex)

	shadow := v.ShadowCommands()[1]
	assert.False(t, shadow.IsNoop(), "an off-screen caster still casts")
}

func TestGenerateWithoutCulling(t *testing.T) {
	meshes := []layout.MeshDescriptor{mesh(36, 0, 0, 0, common.Vec3{500, 0, 0}, false)}
	v, err := NewMeshCommandView(meshes, 1)
	require.NoError(t, err)

	require.NoError(t, Generate(v, testFrustum(), false, nil))
	assert.False(t, v.Commands()[0].IsNoop())
}

func TestGenerateTreatsNegativeRadiusAsPoint(t *testing.T) {
	// unclamped, -20 would demand 20 units of clearance from every plane and cull the origin
	m := mesh(36, 0, 0, 0, common.Vec3{}, false)
	m.BoundsRadius = -20
	v, err := NewMeshCommandView([]layout.MeshDescriptor{m}, 1)
	require.NoError(t, err)

	require.NoError(t, Generate(v, testFrustum(), true, nil))
	assert.False(t, v.Commands()[0].IsNoop())

	src, err := assets.Source(assets.GenerateCommands)
	require.NoError(t, err)
	assert.Contains(t, src, "max(radius, 0.0)", "the compute program clamps the same way")
}

func TestGenerateShadowCommandsFollowCasterFlag(t *testing.T) {
	meshes := []layout.MeshDescriptor{
		mesh(36, 0, 0, 0, common.Vec3{}, true),
		mesh(36, 36, 24, 0, common.Vec3{}, false),
	}
	v, err := NewMeshCommandView(meshes, 2)
	require.NoError(t, err)

	require.NoError(t, Generate(v, testFrustum(), true, nil))
	assert.False(t, v.ShadowCommands()[0].IsNoop())
	assert.True(t, v.ShadowCommands()[1].IsNoop())
	assert.Equal(t, uint32(1), v.ShadowCommands()[1].FirstInstance)
}

func TestGenerateEmptyMeshIsNoop(t *testing.T) {
	v, err := NewMeshCommandView([]layout.MeshDescriptor{mesh(0, 0, 0, 0, common.Vec3{}, true)}, 1)
	require.NoError(t, err)

	require.NoError(t, Generate(v, testFrustum(), true, nil))
	assert.Equal(t, layout.IndirectArgs{}, v.Commands()[0])
	assert.Equal(t, layout.IndirectArgs{}, v.ShadowCommands()[0])
}

func TestGenerateOnPoolMatchesInline(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 64, time.Second)
	defer pool.Stop()

	n := batchSize*3 + 17
	meshes := make([]layout.MeshDescriptor, n)
	for i := range meshes {
		x := float32(i%40) - 20
		meshes[i] = mesh(uint32(6+i%5), uint32(i*6), int32(i*4), uint32(i%9), common.Vec3{x * 3, 0, 0}, i%2 == 0)
	}

	inline, err := NewMeshCommandView(meshes, n)
	require.NoError(t, err)
	require.NoError(t, Generate(inline, testFrustum(), true, nil))

	pooled, err := NewMeshCommandView(meshes, n)
	require.NoError(t, err)
	require.NoError(t, Generate(pooled, testFrustum(), true, pool))

	assert.Equal(t, inline.Commands(), pooled.Commands())
	assert.Equal(t, inline.Arguments(), pooled.Arguments())
	assert.Equal(t, inline.ShadowCommands(), pooled.ShadowCommands())
}

func TestValidateDetectsBrokenPairing(t *testing.T) {
	meshes := []layout.MeshDescriptor{
		mesh(36, 0, 0, 1, common.Vec3{}, false),
		mesh(36, 36, 24, 2, common.Vec3{}, false),
	}
	v, err := NewMeshCommandView(meshes, 2)
	require.NoError(t, err)
	require.NoError(t, Generate(v, testFrustum(), true, nil))

	v.Commands()[1].FirstInstance = 0
	assert.ErrorIs(t, v.Validate(), ErrPairingBroken)
	v.Commands()[1].FirstInstance = 1

	v.Arguments()[0].MaterialIndex = 2
	assert.ErrorIs(t, v.Validate(), ErrPairingBroken)
	v.Arguments()[0].MaterialIndex = 1

	v.Arguments()[1].Visible = 0
	assert.ErrorIs(t, v.Validate(), ErrPairingBroken, "culled slot that still draws")
	v.Arguments()[1].Visible = 1

	assert.NoError(t, v.Validate())
}

func TestGeneratorBuffersSizedToCapacity(t *testing.T) {
	g := NewGenerator(100)
	sizes := g.BufferSizes()

	assert.Equal(t, uint64(100*48), sizes[int(binding.BufferMeshes)])
	assert.Equal(t, uint64(100*20), sizes[int(binding.BufferIndirectCommandBuffer)])
	assert.Equal(t, uint64(100*16), sizes[int(binding.BufferDrawArguments)])
	assert.Equal(t, uint64(100*20), sizes[int(binding.BufferShadowArguments)])
	assert.Equal(t, uint64(112), sizes[int(binding.BufferCullUniforms)])

	assert.Contains(t, g.BufferUsageOverrides(), int(binding.BufferIndirectCommandBuffer))
	assert.Contains(t, g.BufferUsageOverrides(), int(binding.BufferShadowArguments))
}

func TestGeneratorPanicsWithoutCapacity(t *testing.T) {
	assert.Panics(t, func() { NewGenerator(0) })
}

func TestGeneratorWorkgroupCount(t *testing.T) {
	g := NewGenerator(1000)
	assert.Equal(t, [3]uint32{0, 1, 1}, g.WorkgroupCount(0))
	assert.Equal(t, [3]uint32{1, 1, 1}, g.WorkgroupCount(1))
	assert.Equal(t, [3]uint32{1, 1, 1}, g.WorkgroupCount(64))
	assert.Equal(t, [3]uint32{2, 1, 1}, g.WorkgroupCount(65))

	g = NewGenerator(1000, WithWorkgroupSize(128))
	assert.Equal(t, [3]uint32{1, 1, 1}, g.WorkgroupCount(65))
}

func TestGeneratorPrepareStagesMeshesAndCull(t *testing.T) {
	g := NewGenerator(4)
	meshes := []layout.MeshDescriptor{
		mesh(36, 0, 0, 1, common.Vec3{}, false),
		mesh(6, 36, 24, 2, common.Vec3{1, 0, 0}, true),
	}
	v, err := NewMeshCommandView(meshes, 4)
	require.NoError(t, err)

	writes, err := g.Prepare(v, testFrustum(), true)
	require.NoError(t, err)
	require.Len(t, writes, 2)

	assert.Equal(t, int(binding.BufferMeshes), writes[0].Binding)
	assert.Len(t, writes[0].Data, 2*48)
	var decoded layout.MeshDescriptor
	require.NoError(t, decoded.Unmarshal(writes[0].Data[48:]))
	assert.Equal(t, meshes[1], decoded)

	assert.Equal(t, int(binding.BufferCullUniforms), writes[1].Binding)
	var cull layout.CullUniforms
	require.NoError(t, cull.Unmarshal(writes[1].Data))
	assert.Equal(t, uint32(2), cull.MeshCount)
	assert.Equal(t, uint32(1), cull.CullingEnabled)
	assert.Equal(t, testFrustum().Packed(), cull.Planes)

	for _, w := range writes {
		assert.Same(t, g.Provider(), w.Provider)
	}
}

func TestGeneratorRejectsOversizedView(t *testing.T) {
	g := NewGenerator(2)
	v, err := NewMeshCommandView(make([]layout.MeshDescriptor, 3), 3)
	require.NoError(t, err)

	_, err = g.Prepare(v, testFrustum(), true)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	_, err = g.StageCommands(v)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestGeneratorStageCommands(t *testing.T) {
	g := NewGenerator(8)
	meshes := []layout.MeshDescriptor{
		mesh(36, 0, 0, 1, common.Vec3{}, true),
		mesh(36, 36, 24, 2, common.Vec3{500, 0, 0}, false),
	}
	v, err := NewMeshCommandView(meshes, 8)
	require.NoError(t, err)
	require.NoError(t, Generate(v, testFrustum(), true, nil))

	writes, err := g.StageCommands(v)
	require.NoError(t, err)
	require.Len(t, writes, 3)

	byBinding := map[int][]byte{}
	for _, w := range writes {
		byBinding[w.Binding] = w.Data
	}

	commands := byBinding[int(binding.BufferIndirectCommandBuffer)]
	require.Len(t, commands, 2*20)
	var second layout.IndirectArgs
	require.NoError(t, second.Unmarshal(commands[20:]))
	assert.Equal(t, v.Commands()[1], second)
	assert.True(t, second.IsNoop())

	assert.Len(t, byBinding[int(binding.BufferDrawArguments)], 2*16)
	assert.Len(t, byBinding[int(binding.BufferShadowArguments)], 2*20)
}
