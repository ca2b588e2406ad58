package generator

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
)

// batchSize is the number of meshes generated per pool task.
const batchSize = 256

// Generate fills every slot of view on the CPU, with the same results as the generate_commands compute program.
// Batches of meshes run on the worker pool; a WaitGroup is the barrier since pool.Wait only returns once
// workers idle out. A nil pool generates inline.
//
// For mesh i:
//   - a mesh outside the frustum (when culling is enabled) gets {0, 0, firstIndex, baseVertex, i}
//   - a visible mesh gets {indexCount, 1, firstIndex, baseVertex, i}
//   - argument slot i gets mesh i's material, mesh index i and the visibility flag
//   - shadow slot i draws the mesh when it casts shadows, regardless of the camera frustum
//
// Parameters:
//   - view: the paired mesh/command view to fill
//   - frustum: the camera frustum, in the same space as the mesh bounds
//   - cullingEnabled: when false every mesh is visible
//   - pool: the worker pool to spread batches over, or nil
//
// Returns:
//   - error: the result of view.Validate after generation
func Generate(view *MeshCommandView, frustum common.Frustum, cullingEnabled bool, pool worker.DynamicWorkerPool) error {
	n := view.Len()
	if pool == nil || n <= batchSize {
		generateRange(view, frustum, cullingEnabled, 0, n)
		return view.Validate()
	}

	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		wg.Add(1)
		s, e := start, end
		pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				generateRange(view, frustum, cullingEnabled, s, e)
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()

	return view.Validate()
}

// generateRange writes slots [start, end). Batches never overlap, so no locking is needed.
func generateRange(view *MeshCommandView, frustum common.Frustum, cullingEnabled bool, start, end int) {
	for i := start; i < end; i++ {
		mesh := view.meshes[i]

		visible := uint32(1)
		if cullingEnabled && !frustum.SphereVisible(mesh.BoundsCenter, mesh.BoundsRadius) {
			visible = 0
		}

		view.commands[i] = command(mesh, visible, uint32(i))
		view.arguments[i] = layout.DrawArgument{
			MaterialIndex: mesh.MaterialIndex,
			MeshIndex:     uint32(i),
			Visible:       visible,
		}

		casts := uint32(0)
		if mesh.CastsShadow() {
			casts = 1
		}
		view.shadows[i] = command(mesh, casts, uint32(i))
	}
}

// command builds the indirect record for one slot. A zero enabled flag keeps the offsets but draws nothing,
// and so does an empty mesh.
func command(mesh layout.MeshDescriptor, enabled, slot uint32) layout.IndirectArgs {
	if mesh.IndexCount == 0 {
		enabled = 0
	}
	return layout.IndirectArgs{
		IndexCount:    mesh.IndexCount * enabled,
		InstanceCount: enabled,
		FirstIndex:    mesh.FirstIndex,
		BaseVertex:    mesh.BaseVertex,
		FirstInstance: slot,
	}
}
