package scene

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
)

var (
	// ErrUnknownObject is returned by a mutation that names an object the scene does not hold.
	ErrUnknownObject = errors.New("scene: unknown object")

	// ErrDuplicateObject is returned when an object ID is added twice.
	ErrDuplicateObject = errors.New("scene: duplicate object")
)

// uniformBatchSize is the number of mesh entries prepared per pool task.
const uniformBatchSize = 256

// ObjectID identifies a model instance in the scene. IDs are never reused.
type ObjectID uint64

// object is one placed model. Each part owns one entry of the mesh table while the object is visible.
type object struct {
	id         ObjectID
	model      model.Model
	transform  common.Mat4
	visible    bool
	ranges     []model.Range
	materials  []material.Index
	partBounds []common.Bounds
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name string

	cam             camera.Camera
	lgt             light.Light
	ambientColor    common.Vec3
	cullingDisabled bool

	store     model.Store
	materials material.Table

	// meshRanges and materialIndices deduplicate shared geometry and materials across objects.
	meshRanges      map[*model.Mesh]model.Range
	materialIndices map[material.Material]material.Index

	objects map[ObjectID]*object
	lastID  atomic.Uint64

	queueMu *sync.Mutex
	queue   []Mutation

	// mesh table, rebuilt by ApplyPending when objects change
	meshes  []layout.MeshDescriptor
	models  []common.Mat4
	bounds  common.Bounds
	version uint64

	uniforms []layout.VertexUniforms

	// computePool spreads per-object uniform preparation over reusable workers.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
}

// Scene owns everything the renderer draws: the mesh store, the material table, the flat mesh table
// built from placed models, the camera and the light.
//
// All structural changes go through a mutation queue. Add, SetTransform, SetVisible and Remove only
// enqueue; ApplyPending applies the queue between frames, so a frame always reads a consistent mesh
// table and materials only become resident for frames that begin after they were committed.
type Scene interface {
	// Name returns the scene name.
	Name() string

	// Camera returns the scene camera.
	Camera() camera.Camera

	// SetCamera replaces the scene camera.
	SetCamera(cam camera.Camera)

	// Light returns the shading light, or nil when the scene has none.
	Light() light.Light

	// SetLight replaces the shading light. With nil the renderer shades with a default light
	// placed from the scene bounds and skips the shadow pass.
	SetLight(l light.Light)

	// AmbientColor returns the ambient term added to every lit pixel.
	AmbientColor() common.Vec3

	// SetAmbientColor sets the ambient term.
	SetAmbientColor(color common.Vec3)

	// CullingDisabled reports whether frustum culling is switched off.
	CullingDisabled() bool

	// SetCullingDisabled switches frustum culling off or on.
	SetCullingDisabled(disabled bool)

	// Store returns the shared mesh store.
	Store() model.Store

	// Materials returns the material table.
	Materials() material.Table

	// Pool returns the worker pool the scene prepares uniforms on, for other per-frame CPU work.
	Pool() worker.DynamicWorkerPool

	// Reserve returns a fresh object ID for use in an enqueued Editor.Add.
	Reserve() ObjectID

	// Enqueue queues a mutation for the next ApplyPending.
	Enqueue(m Mutation)

	// Pending returns the number of queued mutations.
	Pending() int

	// Add queues placing m with the given model matrix and returns the ID the object will have.
	//
	// Parameters:
	//   - m: the model to place
	//   - transform: model to world matrix
	//
	// Returns:
	//   - ObjectID: the reserved ID, valid in later mutations even before ApplyPending runs
	Add(m model.Model, transform common.Mat4) ObjectID

	// SetTransform queues a new model matrix for an object.
	SetTransform(id ObjectID, transform common.Mat4)

	// SetVisible queues showing or hiding an object. Hidden objects have no mesh table entries.
	SetVisible(id ObjectID, visible bool)

	// Remove queues removing an object. Its geometry and materials stay in the append-only stores.
	Remove(id ObjectID)

	// ApplyPending runs every queued mutation in order, rebuilds the mesh table if anything changed
	// and commits new materials so they are resident for frames after frame.
	//
	// Parameters:
	//   - frame: the last frame submitted before this call
	//
	// Returns:
	//   - error: every failed mutation joined; successful mutations still apply
	ApplyPending(frame uint64) error

	// Meshes returns a copy of the mesh table, one entry per visible part in object ID order.
	Meshes() []layout.MeshDescriptor

	// Bounds returns the world-space bounds of every visible part.
	Bounds() common.Bounds

	// Version returns a counter that changes whenever the mesh table is rebuilt.
	Version() uint64

	// Count returns the number of objects.
	Count() int

	// VertexUniforms computes the per-object uniform block of every mesh table entry, in table order.
	// Entries are prepared in batches on the scene's worker pool.
	//
	// Parameters:
	//   - view: the camera view matrix
	//   - projection: the camera projection matrix
	//   - lightViewProjection: the shadow light's view-projection, or identity without shadows
	//
	// Returns:
	//   - []layout.VertexUniforms: one block per mesh table entry, reused by the next call
	VertexUniforms(view, projection, lightViewProjection common.Mat4) []layout.VertexUniforms

	// Close stops the worker pool.
	Close()
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:              &sync.RWMutex{},
		name:            name,
		ambientColor:    DefaultAmbientColor,
		meshRanges:      make(map[*model.Mesh]model.Range),
		materialIndices: make(map[material.Material]material.Index),
		objects:         make(map[ObjectID]*object),
		queueMu:         &sync.Mutex{},
		bounds:          common.EmptyBounds(),
		computeWorkers:  max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}
	if s.store == nil {
		s.store = model.NewStore()
	}
	if s.materials == nil {
		s.materials = material.NewTable()
	}
	if s.cam == nil {
		s.cam = camera.NewCamera()
	}

	// Queue size of 256 accommodates large mesh tables at uniformBatchSize with headroom.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Light() light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lgt
}

func (s *scene) SetLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lgt = l
}

func (s *scene) AmbientColor() common.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambientColor
}

func (s *scene) SetAmbientColor(color common.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambientColor = color
}

func (s *scene) CullingDisabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cullingDisabled
}

func (s *scene) SetCullingDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cullingDisabled = disabled
}

func (s *scene) Store() model.Store {
	return s.store
}

func (s *scene) Materials() material.Table {
	return s.materials
}

func (s *scene) Pool() worker.DynamicWorkerPool {
	return s.computePool
}

func (s *scene) Enqueue(m Mutation) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	s.queue = append(s.queue, m)
}

func (s *scene) Pending() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return len(s.queue)
}

func (s *scene) Reserve() ObjectID {
	return ObjectID(s.lastID.Add(1))
}

func (s *scene) Add(m model.Model, transform common.Mat4) ObjectID {
	id := s.Reserve()
	s.Enqueue(func(e *Editor) error {
		return e.Add(id, m, transform)
	})
	return id
}

func (s *scene) SetTransform(id ObjectID, transform common.Mat4) {
	s.Enqueue(func(e *Editor) error {
		return e.SetTransform(id, transform)
	})
}

func (s *scene) SetVisible(id ObjectID, visible bool) {
	s.Enqueue(func(e *Editor) error {
		return e.SetVisible(id, visible)
	})
}

func (s *scene) Remove(id ObjectID) {
	s.Enqueue(func(e *Editor) error {
		return e.Remove(id)
	})
}

func (s *scene) ApplyPending(frame uint64) error {
	s.queueMu.Lock()
	queue := s.queue
	s.queue = nil
	s.queueMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &Editor{s: s}
	var errs []error
	for i, m := range queue {
		if err := m(e); err != nil {
			errs = append(errs, fmt.Errorf("mutation %d: %w", i, err))
		}
	}
	if e.changed {
		s.rebuild()
	}
	s.materials.Commit(frame)
	return errors.Join(errs...)
}

func (s *scene) Meshes() []layout.MeshDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.meshes)
}

func (s *scene) Bounds() common.Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounds
}

func (s *scene) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *scene) VertexUniforms(view, projection, lightViewProjection common.Mat4) []layout.VertexUniforms {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.models)
	if cap(s.uniforms) < n {
		s.uniforms = make([]layout.VertexUniforms, n)
	}
	s.uniforms = s.uniforms[:n]

	if n <= uniformBatchSize {
		s.prepareUniforms(view, projection, lightViewProjection, 0, n)
		return s.uniforms
	}

	// A WaitGroup is the per-frame barrier; pool.Wait only returns once workers idle out.
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < n; start += uniformBatchSize {
		end := min(start+uniformBatchSize, n)
		wg.Add(1)
		lo, hi := start, end
		s.computePool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				s.prepareUniforms(view, projection, lightViewProjection, lo, hi)
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
	return s.uniforms
}

func (s *scene) Close() {
	s.computePool.Stop()
}

// prepareUniforms fills uniforms [start, end). Batches never overlap.
func (s *scene) prepareUniforms(view, projection, lightViewProjection common.Mat4, start, end int) {
	for i := start; i < end; i++ {
		modelMatrix := s.models[i]
		modelView := common.Mul4(view, modelMatrix)

		u := &s.uniforms[i]
		u.ModelView = modelView
		u.SetNormalMatrix(common.NormalMatrix(modelView))
		u.ModelViewProjection = common.Mul4(projection, modelView)
		u.ShadowModelViewProjection = common.Mul4(lightViewProjection, modelMatrix)
	}
}

// rebuild regenerates the mesh table from the visible objects in ID order. Caller must hold mu.
func (s *scene) rebuild() {
	ids := make([]ObjectID, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	s.meshes = s.meshes[:0]
	s.models = s.models[:0]
	s.bounds = common.EmptyBounds()
	for _, id := range ids {
		obj := s.objects[id]
		if !obj.visible {
			continue
		}
		flags := uint32(0)
		if obj.model.CastsShadows() {
			flags |= layout.MeshFlagCastsShadow
		}
		for p, r := range obj.ranges {
			world := obj.partBounds[p].Transform(obj.transform)
			s.meshes = append(s.meshes, r.Descriptor(uint32(obj.materials[p]), flags, world))
			s.models = append(s.models, obj.transform)
			s.bounds = s.bounds.Union(world)
		}
	}
	s.version++
}
