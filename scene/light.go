package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/internal/lighting"
)

// Light is a light attached to a node. Its position is the node's world
// position.
type Light struct {
	Color     mgl32.Vec3
	Direction mgl32.Vec3
	Strength  float32
}

// NewLightNode returns a node at pos carrying a light.
func NewLightNode(name string, pos, color mgl32.Vec3, strength float32) *Node {
	n := NewNode(name)
	n.Position = pos
	n.Light = &Light{Color: color, Direction: mgl32.Vec3{0, -1, 0}, Strength: strength}
	return n
}

// Snapshot copies the light into the renderer's representation.
func (l *Light) Snapshot(pos mgl32.Vec3) lighting.Light {
	return lighting.Light{
		Position:  pos,
		Color:     l.Color,
		Direction: l.Direction,
		Strength:  l.Strength,
	}
}
