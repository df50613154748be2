package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/internal/gpu"
	"deferred-engine/internal/pass"
	"deferred-engine/internal/shader"
)

// Vertex is one geometry-pass vertex. Field order matches
// shader.GeometryLayout: position, uv, color, normal.
type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
	Color    mgl32.Vec4
	Normal   mgl32.Vec3
}

var white = mgl32.Vec4{1, 1, 1, 1}

var geometryStride, _ = shader.Layout(shader.GeometryLayout)

// Mesh holds CPU-side vertex/index data and, once uploaded, the GPU buffer
// with the indices expanded into a flat triangle list.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	// Texture is sampled as the diffuse map. Nil uses whatever is bound.
	Texture *Texture

	buffer gpu.Handle
	count  int32
}

// NewMesh builds a mesh. Without indices the vertices are drawn in order.
func NewMesh(name string, vertices []Vertex, indices []uint32) *Mesh {
	return &Mesh{Name: name, Vertices: vertices, Indices: indices}
}

// Interleave flattens vertices in geometry layout order, expanding indices
// when present. Out-of-range indices are dropped.
func Interleave(vertices []Vertex, indices []uint32) []float32 {
	floats := shader.Floats(shader.GeometryLayout)
	appendVertex := func(out []float32, v Vertex) []float32 {
		return append(out,
			v.Position[0], v.Position[1], v.Position[2],
			v.UV[0], v.UV[1],
			v.Color[0], v.Color[1], v.Color[2], v.Color[3],
			v.Normal[0], v.Normal[1], v.Normal[2],
		)
	}
	if len(indices) == 0 {
		out := make([]float32, 0, len(vertices)*floats)
		for _, v := range vertices {
			out = appendVertex(out, v)
		}
		return out
	}
	out := make([]float32, 0, len(indices)*floats)
	for _, i := range indices {
		if int(i) < len(vertices) {
			out = appendVertex(out, vertices[i])
		}
	}
	return out
}

// Upload creates the mesh's vertex buffer and uploads its texture.
func (m *Mesh) Upload(dev gpu.Device) {
	if m.buffer != 0 {
		return
	}
	data := Interleave(m.Vertices, m.Indices)
	m.buffer = dev.CreateBuffer()
	dev.ArrayBufferData(m.buffer, data)
	if m.Name != "" {
		dev.ObjectLabel(gpu.BufferObject, m.buffer, m.Name)
	}
	m.count = int32(len(data) / shader.Floats(shader.GeometryLayout))
	if m.Texture != nil {
		m.Texture.Upload(dev)
	}
}

// Uploaded reports whether the mesh has a GPU buffer.
func (m *Mesh) Uploaded() bool { return m.buffer != 0 }

// VertexCount is the number of vertices drawn.
func (m *Mesh) VertexCount() int32 { return m.count }

// Draw issues one draw with model as the model matrix. A mesh that has not
// been uploaded draws nothing.
func (m *Mesh) Draw(ctx *pass.Context, model mgl32.Mat4) int {
	if m.buffer == 0 || m.count == 0 {
		return 0
	}
	ctx.Uniforms.SetMat4("model", model)
	if m.Texture != nil && m.Texture.Handle != 0 {
		ctx.Device.BindTexture(0, m.Texture.Handle)
	}
	ctx.Device.BindVertexBuffer(m.buffer, geometryStride)
	ctx.DrawArrays(gpu.Triangles, 0, m.count)
	return 1
}

func (m *Mesh) Destroy(dev gpu.Device) {
	if m.buffer != 0 {
		dev.DeleteBuffer(m.buffer)
		m.buffer = 0
		m.count = 0
	}
	if m.Texture != nil {
		m.Texture.Destroy(dev)
	}
}
