package generator

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/layout"
)

var (
	// ErrCapacityExceeded is returned when a mesh table does not fit the command buffers.
	ErrCapacityExceeded = errors.New("generator: mesh count exceeds command capacity")

	// ErrSlotOutOfRange is returned by Pair for an index outside the mesh table.
	ErrSlotOutOfRange = errors.New("generator: slot out of range")

	// ErrPairingBroken is returned by Validate when a command or argument slot no longer belongs to its mesh.
	ErrPairingBroken = errors.New("generator: mesh/command pairing broken")
)

// MeshCommandView pairs a mesh table with one command slot, one argument slot and one shadow command slot per mesh.
// Slot i always belongs to mesh i. The view is sized once at construction and never truncates.
type MeshCommandView struct {
	meshes    []layout.MeshDescriptor
	commands  []layout.IndirectArgs
	arguments []layout.DrawArgument
	shadows   []layout.IndirectArgs
	capacity  int
}

// NewMeshCommandView builds a view over meshes with all command slots zeroed.
//
// Parameters:
//   - meshes: the mesh table, in slot order
//   - capacity: the number of command slots the GPU buffers hold
//
// Returns:
//   - *MeshCommandView: the paired view
//   - error: ErrCapacityExceeded if len(meshes) > capacity
func NewMeshCommandView(meshes []layout.MeshDescriptor, capacity int) (*MeshCommandView, error) {
	if len(meshes) > capacity {
		return nil, fmt.Errorf("%w: %d meshes, capacity %d", ErrCapacityExceeded, len(meshes), capacity)
	}
	return &MeshCommandView{
		meshes:    meshes,
		commands:  make([]layout.IndirectArgs, len(meshes)),
		arguments: make([]layout.DrawArgument, len(meshes)),
		shadows:   make([]layout.IndirectArgs, len(meshes)),
		capacity:  capacity,
	}, nil
}

// Len returns the number of meshes, which is also the number of command slots in use.
func (v *MeshCommandView) Len() int {
	return len(v.meshes)
}

// Capacity returns the number of command slots available.
func (v *MeshCommandView) Capacity() int {
	return v.capacity
}

// Meshes returns the mesh table.
func (v *MeshCommandView) Meshes() []layout.MeshDescriptor {
	return v.meshes
}

// Commands returns the geometry command slots.
func (v *MeshCommandView) Commands() []layout.IndirectArgs {
	return v.commands
}

// Arguments returns the argument slots.
func (v *MeshCommandView) Arguments() []layout.DrawArgument {
	return v.arguments
}

// ShadowCommands returns the shadow command slots.
func (v *MeshCommandView) ShadowCommands() []layout.IndirectArgs {
	return v.shadows
}

// Pair returns mesh i together with its command and argument slots.
//
// Parameters:
//   - i: the slot index
//
// Returns:
//   - layout.MeshDescriptor: the mesh in slot i
//   - *layout.IndirectArgs: the command slot, writable
//   - *layout.DrawArgument: the argument slot, writable
//   - error: ErrSlotOutOfRange if i is not a valid slot
func (v *MeshCommandView) Pair(i int) (layout.MeshDescriptor, *layout.IndirectArgs, *layout.DrawArgument, error) {
	if i < 0 || i >= len(v.meshes) {
		return layout.MeshDescriptor{}, nil, nil, fmt.Errorf("%w: %d of %d", ErrSlotOutOfRange, i, len(v.meshes))
	}
	return v.meshes[i], &v.commands[i], &v.arguments[i], nil
}

// Validate re-checks that every slot still belongs to its mesh.
// Slot i must carry first instance i, mesh index i and mesh i's material; a culled slot must draw nothing.
//
// Returns:
//   - error: nil when the pairing holds, otherwise the first violation wrapping ErrPairingBroken
func (v *MeshCommandView) Validate() error {
	n := len(v.meshes)
	if len(v.commands) != n || len(v.arguments) != n || len(v.shadows) != n {
		return fmt.Errorf("%w: %d meshes, %d commands, %d arguments, %d shadow commands",
			ErrPairingBroken, n, len(v.commands), len(v.arguments), len(v.shadows))
	}
	if n > v.capacity {
		return fmt.Errorf("%w: %d meshes, capacity %d", ErrCapacityExceeded, n, v.capacity)
	}

	for i := range n {
		cmd, arg, shadow := v.commands[i], v.arguments[i], v.shadows[i]
		switch {
		case cmd.FirstInstance != uint32(i):
			return fmt.Errorf("%w: slot %d has first instance %d", ErrPairingBroken, i, cmd.FirstInstance)
		case shadow.FirstInstance != uint32(i):
			return fmt.Errorf("%w: shadow slot %d has first instance %d", ErrPairingBroken, i, shadow.FirstInstance)
		case arg.MeshIndex != uint32(i):
			return fmt.Errorf("%w: argument slot %d names mesh %d", ErrPairingBroken, i, arg.MeshIndex)
		case arg.MaterialIndex != v.meshes[i].MaterialIndex:
			return fmt.Errorf("%w: argument slot %d has material %d, mesh has %d",
				ErrPairingBroken, i, arg.MaterialIndex, v.meshes[i].MaterialIndex)
		case arg.Visible == 0 && !cmd.IsNoop():
			return fmt.Errorf("%w: culled slot %d still draws", ErrPairingBroken, i)
		}
	}
	return nil
}
