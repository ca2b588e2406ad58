package model

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
)

// Part is one submesh of a model with the material it is drawn with.
type Part struct {
	Mesh     *Mesh
	Material material.Material
}

// model is the implementation of the Model interface.
type model struct {
	name         string
	parts        []Part
	castsShadows bool
}

// Model defines the interface for a renderable model: a named group of submeshes, each with its own material.
//
// Every part becomes one entry of the scene's mesh table and therefore one draw command slot.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Parts returns the submeshes in draw order.
	//
	// Returns:
	//   - []Part: the parts, sharing the model's storage
	Parts() []Part

	// Bounds returns the model-space bounds of every part.
	//
	// Returns:
	//   - common.Bounds: the union of part bounds, empty for a model without vertices
	Bounds() common.Bounds

	// CastsShadows reports whether the model's parts are drawn into the shadow map.
	CastsShadows() bool

	// AddPart appends a submesh.
	//
	// Parameters:
	//   - mesh: the geometry
	//   - mat: the material, or nil for the default material
	AddPart(mesh *Mesh, mat material.Material)
}

var _ Model = &model{}

// NewModel creates a new Model instance with the provided options.
//
// Parameters:
//   - options: variadic list of ModelBuilderOption functions to configure the model
//
// Returns:
//   - Model: the newly created model
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{castsShadows: true}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Parts() []Part {
	return m.parts
}

func (m *model) Bounds() common.Bounds {
	b := common.EmptyBounds()
	for _, p := range m.parts {
		b = b.Union(p.Mesh.Bounds())
	}
	return b
}

func (m *model) CastsShadows() bool {
	return m.castsShadows
}

func (m *model) AddPart(mesh *Mesh, mat material.Material) {
	if mat == nil {
		mat = material.NewMaterial()
	}
	m.parts = append(m.parts, Part{Mesh: mesh, Material: mat})
}
