package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
)

// Mutation is a structural scene change. It runs inside ApplyPending, between frames.
type Mutation func(e *Editor) error

// Editor applies mutations to the scene while ApplyPending holds it exclusively.
type Editor struct {
	s       *scene
	changed bool
}

// Add places a model under id, appending its geometry and materials to the shared stores.
// Geometry and materials already appended by another object are reused.
//
// Parameters:
//   - id: an ID from Scene.Reserve
//   - m: the model
//   - transform: model to world matrix
//
// Returns:
//   - error: ErrDuplicateObject, or the store or table error that stopped the add
func (e *Editor) Add(id ObjectID, m model.Model, transform common.Mat4) error {
	s := e.s
	if _, ok := s.objects[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateObject, id)
	}

	obj := &object{
		id:        id,
		model:     m,
		transform: transform,
		visible:   true,
	}
	for _, part := range m.Parts() {
		r, err := e.mesh(part.Mesh)
		if err != nil {
			return fmt.Errorf("object %d %q: %w", id, m.Name(), err)
		}
		idx, err := e.material(part.Material)
		if err != nil {
			return fmt.Errorf("object %d %q: %w", id, m.Name(), err)
		}
		obj.ranges = append(obj.ranges, r)
		obj.materials = append(obj.materials, idx)
		obj.partBounds = append(obj.partBounds, part.Mesh.Bounds())
	}

	s.objects[id] = obj
	e.changed = true
	return nil
}

// SetTransform replaces an object's model matrix.
func (e *Editor) SetTransform(id ObjectID, transform common.Mat4) error {
	obj, ok := e.s.objects[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownObject, id)
	}
	obj.transform = transform
	e.changed = true
	return nil
}

// SetVisible shows or hides an object.
func (e *Editor) SetVisible(id ObjectID, visible bool) error {
	obj, ok := e.s.objects[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownObject, id)
	}
	if obj.visible != visible {
		obj.visible = visible
		e.changed = true
	}
	return nil
}

// Remove drops an object from the mesh table.
func (e *Editor) Remove(id ObjectID) error {
	if _, ok := e.s.objects[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownObject, id)
	}
	delete(e.s.objects, id)
	e.changed = true
	return nil
}

func (e *Editor) mesh(m *model.Mesh) (model.Range, error) {
	if r, ok := e.s.meshRanges[m]; ok {
		return r, nil
	}
	r, err := e.s.store.Append(m)
	if err != nil {
		return model.Range{}, err
	}
	e.s.meshRanges[m] = r
	return r, nil
}

func (e *Editor) material(m material.Material) (material.Index, error) {
	if idx, ok := e.s.materialIndices[m]; ok {
		return idx, nil
	}
	idx, err := e.s.materials.Append(m)
	if err != nil {
		return 0, err
	}
	e.s.materialIndices[m] = idx
	return idx, nil
}
