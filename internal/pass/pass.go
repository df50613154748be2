// Package pass names the render passes of a frame and carries the per-pass
// state that draw calls need.
package pass

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/internal/gpu"
)

// Pass selects the program, target and fixed uniforms for a stage of the frame.
type Pass int

const (
	Geometry Pass = iota
	Lighting
	InterfaceBackground
	InterfaceForeground
	InterfaceText
)

// Interface lists the interface sub-passes in draw order.
var Interface = [...]Pass{InterfaceBackground, InterfaceForeground, InterfaceText}

func (p Pass) String() string {
	switch p {
	case Geometry:
		return "geometry"
	case Lighting:
		return "lighting"
	case InterfaceBackground:
		return "interface-background"
	case InterfaceForeground:
		return "interface-foreground"
	case InterfaceText:
		return "interface-text"
	}
	return "unknown"
}

// IsInterface reports whether p is one of the 2D sub-passes.
func (p Pass) IsInterface() bool {
	return p >= InterfaceBackground && p <= InterfaceText
}

// Uniform is a fixed float uniform applied when a pass is activated.
type Uniform struct {
	Name  string
	Value float32
}

// Descriptor is the tagged description of a pass: its tag plus the fixed
// uniform values every draw in that pass sees.
type Descriptor struct {
	Pass  Pass
	Fixed []Uniform
}

// Depth biases keep the interface layers ordered without depending on draw
// order: background sits just in front of the far plane, text is nearest.
const (
	BackgroundDepth float32 = 0.999999
	ForegroundDepth float32 = 0.2
	TextDepth       float32 = 0.1
)

var descriptors = map[Pass]Descriptor{
	Geometry: {Pass: Geometry},
	Lighting: {Pass: Lighting},
	InterfaceBackground: {Pass: InterfaceBackground, Fixed: []Uniform{
		{Name: "depth", Value: BackgroundDepth},
		{Name: "isFont", Value: 0},
	}},
	InterfaceForeground: {Pass: InterfaceForeground, Fixed: []Uniform{
		{Name: "depth", Value: ForegroundDepth},
		{Name: "isFont", Value: 0},
	}},
	InterfaceText: {Pass: InterfaceText, Fixed: []Uniform{
		{Name: "depth", Value: TextDepth},
		{Name: "isFont", Value: 1},
	}},
}

// Describe returns the descriptor for p. Unknown passes get an empty
// descriptor carrying only the tag.
func Describe(p Pass) Descriptor {
	if d, ok := descriptors[p]; ok {
		return d
	}
	return Descriptor{Pass: p}
}

// Lookup returns the fixed value of the named uniform.
func (d Descriptor) Lookup(name string) (float32, bool) {
	for _, u := range d.Fixed {
		if u.Name == name {
			return u.Value, true
		}
	}
	return 0, false
}

// Uniforms sets values on the active program by name.
type Uniforms interface {
	SetMat4(name string, m mgl32.Mat4)
	SetVec3(name string, v mgl32.Vec3)
	SetInt(name string, v int32)
	SetFloat(name string, v float32)
}

// Drawable is anything that issues draw calls for a pass, usually a tree.
type Drawable interface {
	// Draw issues the draw calls relevant to ctx.Pass and returns how many.
	Draw(ctx *Context) int
}

// Context is handed to every draw call of a pass. It replaces any notion of
// a process-wide "current pass".
type Context struct {
	Pass     Pass
	Device   gpu.Device
	Uniforms Uniforms

	draws int
}

// NewContext returns a context for pass p.
func NewContext(p Pass, dev gpu.Device, u Uniforms) *Context {
	return &Context{Pass: p, Device: dev, Uniforms: u}
}

// DrawArrays issues a non-indexed draw and counts it.
func (c *Context) DrawArrays(mode gpu.Primitive, first, count int32) {
	c.Device.DrawArrays(mode, first, count)
	c.draws++
}

// Draws returns the number of draw calls issued through c.
func (c *Context) Draws() int { return c.draws }
