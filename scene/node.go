package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/internal/gpu"
	"deferred-engine/internal/lighting"
	"deferred-engine/internal/pass"
)

// Node represents an object in the scene graph. A node may carry a mesh for
// the geometry pass, a panel for one of the interface passes, a light, or
// nothing at all and only group its children.
type Node struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Parent   *Node
	Children []*Node
	Visible  bool

	Mesh  *Mesh
	Panel *Panel
	Light *Light

	// Cached world transform
	worldMatrixDirty bool
	worldMatrix      mgl32.Mat4
}

func NewNode(name string) *Node {
	return &Node{
		Name:             name,
		Rotation:         mgl32.QuatIdent(),
		Scale:            mgl32.Vec3{1, 1, 1},
		Visible:          true,
		worldMatrixDirty: true,
	}
}

func (n *Node) AddChild(child *Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
	child.MarkWorldMatrixDirty()
}

func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			child.MarkWorldMatrixDirty()
			return
		}
	}
}

// LocalMatrix returns translation * rotation * scale.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	s := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return t.Mul4(n.Rotation.Mat4()).Mul4(s)
}

func (n *Node) WorldMatrix() mgl32.Mat4 {
	if n.worldMatrixDirty {
		local := n.LocalMatrix()
		if n.Parent != nil {
			n.worldMatrix = n.Parent.WorldMatrix().Mul4(local)
		} else {
			n.worldMatrix = local
		}
		n.worldMatrixDirty = false
	}
	return n.worldMatrix
}

// WorldPosition is the node's origin in world space.
func (n *Node) WorldPosition() mgl32.Vec3 {
	return n.WorldMatrix().Col(3).Vec3()
}

func (n *Node) MarkWorldMatrixDirty() {
	n.worldMatrixDirty = true
	for _, child := range n.Children {
		child.MarkWorldMatrixDirty()
	}
}

func (n *Node) SetPosition(pos mgl32.Vec3) {
	n.Position = pos
	n.MarkWorldMatrixDirty()
}

func (n *Node) SetRotation(rot mgl32.Quat) {
	n.Rotation = rot
	n.MarkWorldMatrixDirty()
}

func (n *Node) SetScale(scale mgl32.Vec3) {
	n.Scale = scale
	n.MarkWorldMatrixDirty()
}

func (n *Node) Translate(delta mgl32.Vec3) {
	n.Position = n.Position.Add(delta)
	n.MarkWorldMatrixDirty()
}

// Rotate applies angle radians about axis on top of the current rotation.
func (n *Node) Rotate(axis mgl32.Vec3, angle float32) {
	n.Rotation = n.Rotation.Mul(mgl32.QuatRotate(angle, axis.Normalize())).Normalize()
	n.MarkWorldMatrixDirty()
}

// Traverse visits all nodes in the graph, parents first.
func (n *Node) Traverse(callback func(*Node)) {
	callback(n)
	for _, child := range n.Children {
		child.Traverse(callback)
	}
}

// Find finds a node by name
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Draw issues the draw calls of every visible node for ctx.Pass. Meshes draw
// in the geometry pass; panels draw in the interface pass matching their
// layer. A hidden node hides its subtree.
func (n *Node) Draw(ctx *pass.Context) int {
	if n == nil || !n.Visible {
		return 0
	}
	draws := 0
	switch {
	case ctx.Pass == pass.Geometry && n.Mesh != nil:
		draws += n.Mesh.Draw(ctx, n.WorldMatrix())
	case ctx.Pass.IsInterface() && n.Panel != nil && n.Panel.Layer == ctx.Pass:
		draws += n.Panel.Draw(ctx, n.WorldMatrix())
	}
	for _, child := range n.Children {
		draws += child.Draw(ctx)
	}
	return draws
}

// Lights returns a snapshot of every visible light in the subtree, in
// traversal order.
func (n *Node) Lights() []lighting.Light {
	var out []lighting.Light
	n.collectLights(&out)
	return out
}

func (n *Node) collectLights(out *[]lighting.Light) {
	if n == nil || !n.Visible {
		return
	}
	if n.Light != nil {
		*out = append(*out, n.Light.Snapshot(n.WorldPosition()))
	}
	for _, child := range n.Children {
		child.collectLights(out)
	}
}

// Upload sends every mesh, panel and texture in the subtree to dev. Already
// uploaded resources are skipped.
func (n *Node) Upload(dev gpu.Device) {
	n.Traverse(func(node *Node) {
		if node.Mesh != nil {
			node.Mesh.Upload(dev)
		}
		if node.Panel != nil {
			node.Panel.Upload(dev)
		}
	})
}

// Destroy frees the GPU resources of the subtree.
func (n *Node) Destroy(dev gpu.Device) {
	n.Traverse(func(node *Node) {
		if node.Mesh != nil {
			node.Mesh.Destroy(dev)
		}
		if node.Panel != nil {
			node.Panel.Destroy(dev)
		}
	})
}
