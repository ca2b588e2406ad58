package generator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/binding"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultPipelineKey is the pipeline key of the generate_commands compute pipeline.
const DefaultPipelineKey = "generate_commands"

// DefaultWorkgroupSize matches the @workgroup_size of generate_commands.
const DefaultWorkgroupSize = 64

// generator is the implementation of Generator.
type generator struct {
	pipelineKey   string
	capacity      int
	workgroupSize uint32

	// provider owns the mesh table, the three command outputs and the cull uniforms, keyed by binding.BufferIndex.
	provider bind_group_provider.BindGroupProvider

	// Staging buffers are reused every frame; queue.WriteBuffer copies before returning.
	stagingMeshes, stagingCull                        []byte
	stagingCommands, stagingArguments, stagingShadows []byte
	writes                                            []bind_group_provider.BufferWrite
}

// Generator owns the GPU side of command generation: one compute thread per mesh writes
// command slot i, argument slot i and shadow command slot i for mesh i.
//
// The renderer creates the buffers through InitBindGroup using BufferSizes and BufferUsageOverrides,
// writes the staged data from Prepare, then dispatches WorkgroupCount workgroups with PipelineKey.
// The geometry and shadow passes consume CommandBuffer, ArgumentBuffer and ShadowCommandBuffer.
type Generator interface {
	// PipelineKey returns the key of the compute pipeline this generator dispatches.
	PipelineKey() string

	// Capacity returns the number of command slots the buffers hold.
	Capacity() int

	// Provider returns the bind group provider owning the generator buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the compute provider
	Provider() bind_group_provider.BindGroupProvider

	// BufferSizes returns the byte size of every generator buffer, keyed by binding, all sized to Capacity.
	BufferSizes() map[int]uint64

	// BufferUsageOverrides returns the extra usages of the generator buffers.
	// Both command outputs are also consumed as indirect buffers.
	BufferUsageOverrides() map[int]wgpu.BufferUsage

	// Prepare stages the mesh table and cull uniforms for this frame.
	//
	// Parameters:
	//   - view: the paired view whose meshes are uploaded
	//   - frustum: the camera frustum in mesh bounds space
	//   - cullingEnabled: when false the compute program marks every mesh visible
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: writes the renderer must submit before dispatch
	//   - error: ErrCapacityExceeded if the view does not fit
	Prepare(view *MeshCommandView, frustum common.Frustum, cullingEnabled bool) ([]bind_group_provider.BufferWrite, error)

	// StageCommands stages CPU-generated command, argument and shadow slots in place of a dispatch.
	//
	// Parameters:
	//   - view: a view already filled by Generate
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: writes the renderer must submit before the passes
	//   - error: ErrCapacityExceeded if the view does not fit
	StageCommands(view *MeshCommandView) ([]bind_group_provider.BufferWrite, error)

	// WorkgroupCount returns the dispatch size covering meshCount meshes.
	WorkgroupCount(meshCount int) [3]uint32

	// CommandBuffer returns the geometry command buffer, or nil before InitBindGroup.
	CommandBuffer() *wgpu.Buffer

	// ArgumentBuffer returns the argument buffer, or nil before InitBindGroup.
	ArgumentBuffer() *wgpu.Buffer

	// ShadowCommandBuffer returns the shadow command buffer, or nil before InitBindGroup.
	ShadowCommandBuffer() *wgpu.Buffer

	// Release releases the GPU buffers and bind group.
	Release()
}

var _ Generator = &generator{}

// NewGenerator creates a Generator with buffers for capacity meshes.
// It panics if capacity is not positive.
//
// Parameters:
//   - capacity: the maximum number of meshes per frame
//   - options: builder options
//
// Returns:
//   - Generator: the generator, with its provider not yet initialized on the GPU
func NewGenerator(capacity int, options ...GeneratorBuilderOption) Generator {
	if capacity <= 0 {
		panic(fmt.Sprintf("generator: capacity must be positive, got %d", capacity))
	}
	g := &generator{
		pipelineKey:   DefaultPipelineKey,
		capacity:      capacity,
		workgroupSize: DefaultWorkgroupSize,
	}
	for _, opt := range options {
		opt(g)
	}
	if g.provider == nil {
		g.provider = bind_group_provider.NewBindGroupProvider("Command Generator")
	}

	g.stagingMeshes = make([]byte, 0, capacity*layout.MeshDescriptor{}.Size())
	g.stagingCommands = make([]byte, 0, capacity*layout.IndirectArgs{}.Size())
	g.stagingShadows = make([]byte, 0, capacity*layout.IndirectArgs{}.Size())
	g.stagingArguments = make([]byte, 0, capacity*layout.DrawArgument{}.Size())
	return g
}

func (g *generator) PipelineKey() string {
	return g.pipelineKey
}

func (g *generator) Capacity() int {
	return g.capacity
}

func (g *generator) Provider() bind_group_provider.BindGroupProvider {
	return g.provider
}

func (g *generator) BufferSizes() map[int]uint64 {
	c := uint64(g.capacity)
	return map[int]uint64{
		int(binding.BufferMeshes):                c * uint64(layout.MeshDescriptor{}.Size()),
		int(binding.BufferIndirectCommandBuffer): c * uint64(layout.IndirectArgs{}.Size()),
		int(binding.BufferDrawArguments):         c * uint64(layout.DrawArgument{}.Size()),
		int(binding.BufferShadowArguments):       c * uint64(layout.IndirectArgs{}.Size()),
		int(binding.BufferCullUniforms):          uint64(layout.CullUniforms{}.Size()),
	}
}

func (g *generator) BufferUsageOverrides() map[int]wgpu.BufferUsage {
	return map[int]wgpu.BufferUsage{
		int(binding.BufferIndirectCommandBuffer): wgpu.BufferUsageIndirect,
		int(binding.BufferShadowArguments):       wgpu.BufferUsageIndirect,
	}
}

func (g *generator) Prepare(view *MeshCommandView, frustum common.Frustum, cullingEnabled bool) ([]bind_group_provider.BufferWrite, error) {
	if err := g.checkCapacity(view); err != nil {
		return nil, err
	}

	g.stagingMeshes = g.stagingMeshes[:0]
	for _, m := range view.Meshes() {
		g.stagingMeshes = append(g.stagingMeshes, m.Marshal()...)
	}

	cull := layout.CullUniforms{
		Planes:    frustum.Packed(),
		MeshCount: uint32(view.Len()),
	}
	if cullingEnabled {
		cull.CullingEnabled = 1
	}
	g.stagingCull = cull.Marshal()

	g.writes = g.writes[:0]
	if len(g.stagingMeshes) > 0 {
		g.writes = append(g.writes, g.write(binding.BufferMeshes, g.stagingMeshes))
	}
	g.writes = append(g.writes, g.write(binding.BufferCullUniforms, g.stagingCull))
	return g.writes, nil
}

func (g *generator) StageCommands(view *MeshCommandView) ([]bind_group_provider.BufferWrite, error) {
	if err := g.checkCapacity(view); err != nil {
		return nil, err
	}

	g.stagingCommands = g.stagingCommands[:0]
	g.stagingShadows = g.stagingShadows[:0]
	g.stagingArguments = g.stagingArguments[:0]
	for i := range view.Len() {
		g.stagingCommands = append(g.stagingCommands, view.commands[i].Marshal()...)
		g.stagingShadows = append(g.stagingShadows, view.shadows[i].Marshal()...)
		g.stagingArguments = append(g.stagingArguments, view.arguments[i].Marshal()...)
	}

	g.writes = g.writes[:0]
	if view.Len() == 0 {
		return g.writes, nil
	}
	g.writes = append(g.writes,
		g.write(binding.BufferIndirectCommandBuffer, g.stagingCommands),
		g.write(binding.BufferShadowArguments, g.stagingShadows),
		g.write(binding.BufferDrawArguments, g.stagingArguments),
	)
	return g.writes, nil
}

func (g *generator) WorkgroupCount(meshCount int) [3]uint32 {
	if meshCount <= 0 {
		return [3]uint32{0, 1, 1}
	}
	return [3]uint32{common.DivCeil(uint32(meshCount), g.workgroupSize), 1, 1}
}

func (g *generator) CommandBuffer() *wgpu.Buffer {
	return g.provider.Buffer(int(binding.BufferIndirectCommandBuffer))
}

func (g *generator) ArgumentBuffer() *wgpu.Buffer {
	return g.provider.Buffer(int(binding.BufferDrawArguments))
}

func (g *generator) ShadowCommandBuffer() *wgpu.Buffer {
	return g.provider.Buffer(int(binding.BufferShadowArguments))
}

func (g *generator) Release() {
	g.provider.Release()
}

func (g *generator) checkCapacity(view *MeshCommandView) error {
	if view.Len() > g.capacity {
		return fmt.Errorf("%w: %d meshes, capacity %d", ErrCapacityExceeded, view.Len(), g.capacity)
	}
	return nil
}

func (g *generator) write(b binding.BufferIndex, data []byte) bind_group_provider.BufferWrite {
	return bind_group_provider.BufferWrite{
		Provider: g.provider,
		Binding:  int(b),
		Data:     data,
	}
}
