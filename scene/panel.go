package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/internal/gpu"
	"deferred-engine/internal/pass"
	"deferred-engine/internal/shader"
)

var interfaceStride, _ = shader.Layout(shader.InterfaceLayout)

// unitQuad is two triangles over [0,1]², as position then uv.
var unitQuad = []float32{
	0, 0, 0, 0,
	1, 0, 1, 0,
	1, 1, 1, 1,
	0, 0, 0, 0,
	1, 1, 1, 1,
	0, 1, 0, 1,
}

// Panel is a textured rectangle drawn in one interface layer. Rect is in
// pixels from the bottom left of the surface.
type Panel struct {
	Layer   pass.Pass
	Rect    mgl32.Vec4 // x, y, width, height
	Texture *Texture

	buffer gpu.Handle
}

// NewPanelNode returns a node drawing a panel in layer.
func NewPanelNode(name string, layer pass.Pass, x, y, w, h float32, tex *Texture) *Node {
	n := NewNode(name)
	n.Panel = &Panel{Layer: layer, Rect: mgl32.Vec4{x, y, w, h}, Texture: tex}
	return n
}

func (p *Panel) Upload(dev gpu.Device) {
	if p.buffer != 0 {
		return
	}
	p.buffer = dev.CreateBuffer()
	dev.ArrayBufferData(p.buffer, unitQuad)
	if p.Texture != nil {
		p.Texture.Upload(dev)
	}
}

// Model maps the unit quad onto Rect, then applies parent.
func (p *Panel) Model(parent mgl32.Mat4) mgl32.Mat4 {
	r := p.Rect
	return parent.Mul4(mgl32.Translate3D(r[0], r[1], 0)).Mul4(mgl32.Scale3D(r[2], r[3], 1))
}

// Draw issues the panel's quad. The caller has already matched the layer.
func (p *Panel) Draw(ctx *pass.Context, parent mgl32.Mat4) int {
	if p.buffer == 0 {
		return 0
	}
	ctx.Uniforms.SetMat4("model", p.Model(parent))
	if p.Texture != nil && p.Texture.Handle != 0 {
		ctx.Device.BindTexture(0, p.Texture.Handle)
	}
	ctx.Device.BindVertexBuffer(p.buffer, interfaceStride)
	ctx.DrawArrays(gpu.Triangles, 0, 6)
	return 1
}

func (p *Panel) Destroy(dev gpu.Device) {
	if p.buffer != 0 {
		dev.DeleteBuffer(p.buffer)
		p.buffer = 0
	}
	if p.Texture != nil {
		p.Texture.Destroy(dev)
	}
}
