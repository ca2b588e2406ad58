package pipeline

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// MergeBindGroupLayouts combines the bind group layouts reflected from a vertex and a fragment shader into one
// layout per group. A binding declared by both stages keeps the vertex entry with the visibility of both.
//
// Parameters:
//   - vertexLayouts: the vertex stage layouts keyed by group, may be nil
//   - fragmentLayouts: the fragment stage layouts keyed by group, may be nil
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged layouts, entries sorted by binding
func MergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(vertexLayouts)+len(fragmentLayouts))
	for g, desc := range vertexLayouts {
		merged[g] = desc
	}
	for g, fDesc := range fragmentLayouts {
		vDesc, ok := merged[g]
		if !ok {
			merged[g] = fDesc
			continue
		}

		entries := make(map[uint32]wgpu.BindGroupLayoutEntry, len(vDesc.Entries)+len(fDesc.Entries))
		for _, e := range vDesc.Entries {
			entries[e.Binding] = e
		}
		for _, e := range fDesc.Entries {
			if existing, ok := entries[e.Binding]; ok {
				existing.Visibility |= e.Visibility
				entries[e.Binding] = existing
			} else {
				entries[e.Binding] = e
			}
		}

		flat := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
		for _, e := range entries {
			flat = append(flat, e)
		}
		sort.Slice(flat, func(i, j int) bool {
			return flat[i].Binding < flat[j].Binding
		})
		merged[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   vDesc.Label,
			Entries: flat,
		}
	}
	return merged
}
