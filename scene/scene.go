package scene

import (
	"deferred-engine/internal/gpu"
	"deferred-engine/internal/lighting"
	"deferred-engine/internal/pass"
)

// Scene pairs the 3D world with the 2D overlay drawn on top of it.
type Scene struct {
	Root    *Node
	Overlay *Node
}

func NewScene() *Scene {
	return &Scene{
		Root:    NewNode("Root"),
		Overlay: NewNode("Overlay"),
	}
}

func (s *Scene) AddNode(node *Node) { s.Root.AddChild(node) }

func (s *Scene) RemoveNode(node *Node) { s.Root.RemoveChild(node) }

// AddOverlay adds a node to the 2D tree.
func (s *Scene) AddOverlay(node *Node) { s.Overlay.AddChild(node) }

// World returns the 3D drawable tree.
func (s *Scene) World() pass.Drawable {
	if s.Root == nil {
		return nil
	}
	return s.Root
}

// Interface returns the 2D drawable tree.
func (s *Scene) Interface() pass.Drawable {
	if s.Overlay == nil {
		return nil
	}
	return s.Overlay
}

// Lights collects every light in the 3D tree.
func (s *Scene) Lights() []lighting.Light {
	if s.Root == nil {
		return nil
	}
	return s.Root.Lights()
}

// Upload sends both trees to dev.
func (s *Scene) Upload(dev gpu.Device) {
	for _, n := range []*Node{s.Root, s.Overlay} {
		if n != nil {
			n.Upload(dev)
		}
	}
}

func (s *Scene) Destroy(dev gpu.Device) {
	for _, n := range []*Node{s.Root, s.Overlay} {
		if n != nil {
			n.Destroy(dev)
		}
	}
}
