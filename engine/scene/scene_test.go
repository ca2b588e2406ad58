package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScene(t *testing.T, options ...SceneBuilderOption) Scene {
	t.Helper()
	s := NewScene("test", append([]SceneBuilderOption{WithComputeWorkers(2)}, options...)...)
	t.Cleanup(s.Close)
	return s
}

func TestMutationsWaitForApply(t *testing.T) {
	s := newTestScene(t)
	id := s.Add(model.NewModel(model.WithPart(model.Cube(2), nil)), common.Identity4())

	assert.Equal(t, 1, s.Pending())
	assert.Empty(t, s.Meshes(), "nothing is visible before ApplyPending")
	assert.Equal(t, 0, s.Count())

	require.NoError(t, s.ApplyPending(0))
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 1, s.Count())
	require.Len(t, s.Meshes(), 1)
	assert.Equal(t, ObjectID(1), id)
}

func TestMeshTableUsesWorldBounds(t *testing.T) {
	s := newTestScene(t)
	cube := model.Cube(2)
	m := model.NewModel(model.WithPart(cube, nil))
	s.Add(m, common.Translation(10, 0, 0))
	require.NoError(t, s.ApplyPending(0))

	meshes := s.Meshes()
	require.Len(t, meshes, 1)
	assert.Equal(t, common.Vec3{10, 0, 0}, meshes[0].BoundsCenter)
	assert.InDelta(t, common.Vec3{2, 2, 2}.Length()*0.5, meshes[0].BoundsRadius, 1e-5)
	assert.True(t, meshes[0].CastsShadow())

	b := s.Bounds()
	assert.Equal(t, common.Vec3{9, -1, -1}, b.Min)
	assert.Equal(t, common.Vec3{11, 1, 1}, b.Max)
}

func TestSharedGeometryAndMaterials(t *testing.T) {
	s := newTestScene(t)
	red := material.NewMaterial(material.WithName("red"))
	cube := model.Cube(1)
	a := model.NewModel(model.WithPart(cube, red))
	b := model.NewModel(model.WithPart(cube, red), model.WithPart(model.Plane(4), nil))

	s.Add(a, common.Identity4())
	s.Add(b, common.Translation(0, 2, 0))
	require.NoError(t, s.ApplyPending(0))

	meshes := s.Meshes()
	require.Len(t, meshes, 3)
	assert.Equal(t, meshes[0].FirstIndex, meshes[1].FirstIndex, "the cube is stored once")
	assert.Equal(t, meshes[0].MaterialIndex, meshes[1].MaterialIndex)
	assert.NotEqual(t, meshes[1].MaterialIndex, meshes[2].MaterialIndex)
	assert.Len(t, s.Store().Ranges(), 2)
	assert.Equal(t, 2, s.Materials().Len())
}

func TestMaterialsResidentAfterCommitFrame(t *testing.T) {
	s := newTestScene(t)
	s.Add(model.NewModel(model.WithPart(model.Cube(1), nil)), common.Identity4())
	require.NoError(t, s.ApplyPending(4))

	idx := material.Index(s.Meshes()[0].MaterialIndex)
	_, err := s.Materials().Lookup(idx, 4)
	assert.Error(t, err, "a frame already submitted never sees the new material")
	_, err = s.Materials().Lookup(idx, 5)
	assert.NoError(t, err)
}

func TestTransformVisibilityAndRemove(t *testing.T) {
	s := newTestScene(t)
	a := s.Add(model.NewModel(model.WithPart(model.Cube(1), nil)), common.Identity4())
	b := s.Add(model.NewModel(model.WithPart(model.Cube(1), nil), model.WithCastsShadows(false)), common.Identity4())
	require.NoError(t, s.ApplyPending(0))
	v0 := s.Version()

	s.SetTransform(a, common.Translation(0, 5, 0))
	s.SetVisible(b, false)
	require.NoError(t, s.ApplyPending(1))
	assert.Greater(t, s.Version(), v0)

	meshes := s.Meshes()
	require.Len(t, meshes, 1)
	assert.Equal(t, common.Vec3{0, 5, 0}, meshes[0].BoundsCenter)

	s.SetVisible(b, true)
	s.Remove(a)
	require.NoError(t, s.ApplyPending(2))
	meshes = s.Meshes()
	require.Len(t, meshes, 1)
	assert.False(t, meshes[0].CastsShadow())
	assert.Equal(t, 1, s.Count())
}

func TestFailedMutationsAreJoined(t *testing.T) {
	s := newTestScene(t)
	s.Remove(42)
	s.SetTransform(43, common.Identity4())
	ok := s.Add(model.NewModel(model.WithPart(model.Cube(1), nil)), common.Identity4())

	err := s.ApplyPending(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownObject)
	assert.Equal(t, 1, s.Count(), "the valid add still applies")

	s.Enqueue(func(e *Editor) error {
		return e.Add(ok, model.NewModel(), common.Identity4())
	})
	assert.ErrorIs(t, s.ApplyPending(1), ErrDuplicateObject)
}

func TestStoreFullSurfacesAsError(t *testing.T) {
	s := newTestScene(t, WithStore(model.NewStore(model.WithVertexCapacity(30))))
	s.Add(model.NewModel(model.WithPart(model.Cube(1), nil)), common.Identity4())
	s.Add(model.NewModel(model.WithPart(model.Sphere(1, 8, 8), nil)), common.Identity4())

	err := s.ApplyPending(0)
	assert.ErrorIs(t, err, model.ErrStoreFull)
	assert.Equal(t, 1, s.Count())
}

func TestVertexUniforms(t *testing.T) {
	s := newTestScene(t)
	s.Add(model.NewModel(model.WithPart(model.Cube(1), nil)), common.Translation(1, 2, 3))
	require.NoError(t, s.ApplyPending(0))

	view := common.Translation(0, 0, -5)
	proj := common.Perspective(1, 1, 0.1, 100)
	lightVP := common.Translation(0, -1, 0)
	uniforms := s.VertexUniforms(view, proj, lightVP)
	require.Len(t, uniforms, 1)

	world := common.Translation(1, 2, 3)
	modelView := common.Mul4(view, world)
	assert.Equal(t, modelView, uniforms[0].ModelView)
	assert.Equal(t, common.Mul4(proj, modelView), uniforms[0].ModelViewProjection)
	assert.Equal(t, common.Mul4(lightVP, world), uniforms[0].ShadowModelViewProjection)
	assert.Equal(t, common.NormalMatrix(modelView), uniforms[0].NormalMatrix())
}

func TestVertexUniformsBatchedOnPool(t *testing.T) {
	s := newTestScene(t)
	cube := model.Cube(1)
	grey := material.NewMaterial()
	const count = uniformBatchSize*2 + 17
	for i := 0; i < count; i++ {
		s.Add(model.NewModel(model.WithPart(cube, grey)), common.Translation(float32(i), 0, 0))
	}
	require.NoError(t, s.ApplyPending(0))

	uniforms := s.VertexUniforms(common.Identity4(), common.Identity4(), common.Identity4())
	require.Len(t, uniforms, count)
	for i, u := range uniforms {
		assert.Equal(t, float32(i), u.ModelView[12], "entry %d", i)
	}
}

func TestBuilderOptions(t *testing.T) {
	s := newTestScene(t,
		WithAmbientColor(common.Vec3{0.2, 0.3, 0.4}),
		WithCullingDisabled(true),
	)
	assert.Equal(t, "test", s.Name())
	assert.Equal(t, common.Vec3{0.2, 0.3, 0.4}, s.AmbientColor())
	assert.True(t, s.CullingDisabled())
	assert.NotNil(t, s.Camera())
	assert.Nil(t, s.Light())
	assert.NotNil(t, s.Pool())
}
