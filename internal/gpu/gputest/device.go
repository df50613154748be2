// Package gputest provides an in-memory gpu.Device that records the commands
// it receives and simulates enough framebuffer state to check pass ordering.
package gputest

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/internal/gpu"
)

// Shader is a recorded shader object.
type Shader struct {
	Stage    gpu.Stage
	Source   string
	Compiles int
	Deleted  bool
}

// Program is a recorded program object.
type Program struct {
	Shaders  []gpu.Handle
	Links    int
	Linked   bool
	Uniforms map[string]any
	Deleted  bool
}

// Texture is a recorded texture or renderbuffer.
type Texture struct {
	Internal gpu.Format
	Width    int
	Height   int
	Deleted  bool
}

// Framebuffer holds the simulated planes of a framebuffer. Each color
// attachment is reduced to one RGBA value and the depth plane to one float.
type Framebuffer struct {
	Color       []mgl32.Vec4
	Depth       float32
	DepthFormat gpu.Format
	Textures    map[int]gpu.Handle
	DepthRB     gpu.Handle
	Draw        int
	Deleted     bool
}

// Attrib is one configured vertex attribute.
type Attrib struct {
	Size   int32
	Offset uint32
}

// DrawCall is one recorded DrawArrays.
type DrawCall struct {
	Mode        gpu.Primitive
	First       int32
	Count       int32
	Program     gpu.Handle
	Framebuffer gpu.Handle
	Buffer      gpu.Handle
	Blend       bool
}

// Group is one pushed debug group.
type Group struct {
	ID      uint32
	Message string
}

// Blit is one recorded framebuffer blit.
type Blit struct {
	Src, Dst gpu.Handle
	Mask     gpu.BufferMask
}

type uniformRef struct {
	program gpu.Handle
	name    string
}

// Device is a fake gpu.Device. The zero value is not usable; call NewDevice.
type Device struct {
	// CompileLog, when set, produces the info log for each compile.
	CompileLog func(stage gpu.Stage, source string) string
	// LinkLog, when set, produces the info log for each link.
	LinkLog func(program gpu.Handle) string
	// LinkFails, when set, decides from the attached stage sources whether
	// a link fails.
	LinkFails func(sources []string) bool
	// Incomplete marks framebuffers that report as incomplete.
	Incomplete map[gpu.Handle]bool

	Shaders      map[gpu.Handle]*Shader
	Programs     map[gpu.Handle]*Program
	Textures     map[gpu.Handle]*Texture
	Framebuffers map[gpu.Handle]*Framebuffer
	Buffers      map[gpu.Handle][]float32
	Storage      map[uint32][]float32
	Attribs      map[uint32]Attrib
	Units        map[uint32]gpu.Handle
	Labels       map[gpu.Handle]string

	Draws       []DrawCall
	Groups      []Group
	Blits       []Blit
	Calls       []string
	GroupDepth  int
	StorageUses int
	// Errors collects calls a driver would reject with a GL error.
	Errors []string

	CurrentProgram     gpu.Handle
	CurrentVertexArray gpu.Handle
	CurrentFramebuffer gpu.Handle
	CurrentBuffer      gpu.Handle
	Stride             int32
	View               [4]int
	ClearValue         mgl32.Vec4
	Blend              bool

	next      gpu.Handle
	locations map[uniformRef]int32
	byLoc     map[int32]uniformRef
}

var _ gpu.Device = (*Device)(nil)

// NewDevice returns a fake device whose default framebuffer has one color
// plane.
func NewDevice() *Device {
	d := &Device{
		Incomplete:   map[gpu.Handle]bool{},
		Shaders:      map[gpu.Handle]*Shader{},
		Programs:     map[gpu.Handle]*Program{},
		Textures:     map[gpu.Handle]*Texture{},
		Framebuffers: map[gpu.Handle]*Framebuffer{},
		Buffers:      map[gpu.Handle][]float32{},
		Storage:      map[uint32][]float32{},
		Attribs:      map[uint32]Attrib{},
		Units:        map[uint32]gpu.Handle{},
		Labels:       map[gpu.Handle]string{},
		locations:    map[uniformRef]int32{},
		byLoc:        map[int32]uniformRef{},
	}
	// The window surface GLFW creates by default: 24-bit depth, 8-bit stencil.
	d.Framebuffers[gpu.DefaultFramebuffer] = &Framebuffer{
		Color:       []mgl32.Vec4{{}},
		Depth:       1,
		DepthFormat: gpu.Depth24Stencil8,
		Textures:    map[int]gpu.Handle{},
		Draw:        1,
	}
	return d
}

func (d *Device) alloc() gpu.Handle {
	d.next++
	return d.next
}

func (d *Device) call(format string, args ...any) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

func (d *Device) fail(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

func (d *Device) CreateShader(stage gpu.Stage) gpu.Handle {
	h := d.alloc()
	d.Shaders[h] = &Shader{Stage: stage}
	return h
}

func (d *Device) CompileShader(shader gpu.Handle, source string) string {
	s := d.Shaders[shader]
	s.Source = source
	s.Compiles++
	d.call("CompileShader %d", shader)
	if d.CompileLog != nil {
		return d.CompileLog(s.Stage, source)
	}
	return ""
}

func (d *Device) DeleteShader(shader gpu.Handle) {
	if s, ok := d.Shaders[shader]; ok {
		s.Deleted = true
	}
}

func (d *Device) CreateProgram() gpu.Handle {
	h := d.alloc()
	d.Programs[h] = &Program{Uniforms: map[string]any{}}
	return h
}

func (d *Device) AttachShader(program, shader gpu.Handle) {
	p := d.Programs[program]
	p.Shaders = append(p.Shaders, shader)
}

func (d *Device) LinkProgram(program gpu.Handle) (string, bool) {
	p := d.Programs[program]
	p.Links++
	// Linking discards uniform values, like a real driver.
	p.Uniforms = map[string]any{}
	d.call("LinkProgram %d", program)

	p.Linked = true
	if d.LinkFails != nil {
		sources := make([]string, 0, len(p.Shaders))
		for _, h := range p.Shaders {
			sources = append(sources, d.Shaders[h].Source)
		}
		p.Linked = !d.LinkFails(sources)
	}
	var log string
	if d.LinkLog != nil {
		log = d.LinkLog(program)
	}
	return log, p.Linked
}

func (d *Device) UseProgram(program gpu.Handle) {
	if p, ok := d.Programs[program]; program != 0 && (!ok || !p.Linked || p.Deleted) {
		d.fail("UseProgram %d: program is not a linked program", program)
		return
	}
	d.CurrentProgram = program
	d.call("UseProgram %d", program)
}

func (d *Device) DeleteProgram(program gpu.Handle) {
	if p, ok := d.Programs[program]; ok {
		p.Deleted = true
	}
}

func (d *Device) UniformLocation(program gpu.Handle, name string) int32 {
	ref := uniformRef{program, name}
	if loc, ok := d.locations[ref]; ok {
		return loc
	}
	loc := int32(len(d.locations))
	d.locations[ref] = loc
	d.byLoc[loc] = ref
	return loc
}

func (d *Device) setUniform(location int32, v any) {
	if location < 0 {
		return
	}
	ref, ok := d.byLoc[location]
	if !ok || ref.program != d.CurrentProgram {
		return
	}
	d.Programs[ref.program].Uniforms[ref.name] = v
}

func (d *Device) Uniform1i(location int32, v int32) { d.setUniform(location, v) }

func (d *Device) Uniform1f(location int32, v float32) { d.setUniform(location, v) }

func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) { d.setUniform(location, m) }

func (d *Device) Uniform3f(location int32, x, y, z float32) {
	d.setUniform(location, mgl32.Vec3{x, y, z})
}

// Uniform returns the value last set for name on program.
func (d *Device) Uniform(program gpu.Handle, name string) (any, bool) {
	p, ok := d.Programs[program]
	if !ok {
		return nil, false
	}
	v, ok := p.Uniforms[name]
	return v, ok
}

func (d *Device) CreateVertexArray() gpu.Handle { return d.alloc() }

func (d *Device) BindVertexArray(vao gpu.Handle) { d.CurrentVertexArray = vao }

func (d *Device) DeleteVertexArray(vao gpu.Handle) {}

func (d *Device) VertexAttribFormat(index uint32, size int32, offset uint32) {
	d.Attribs[index] = Attrib{Size: size, Offset: offset}
}

func (d *Device) BindVertexBuffer(buffer gpu.Handle, stride int32) {
	d.CurrentBuffer = buffer
	d.Stride = stride
}

func (d *Device) CreateBuffer() gpu.Handle {
	h := d.alloc()
	d.Buffers[h] = nil
	return h
}

func (d *Device) ArrayBufferData(buffer gpu.Handle, data []float32) {
	d.Buffers[buffer] = append([]float32(nil), data...)
}

func (d *Device) StorageBufferData(buffer gpu.Handle, binding uint32, data []float32) {
	d.Buffers[buffer] = append([]float32(nil), data...)
	d.Storage[binding] = d.Buffers[buffer]
	d.StorageUses++
}

func (d *Device) DeleteBuffer(buffer gpu.Handle) { delete(d.Buffers, buffer) }

func (d *Device) CreateTexture(internal, format gpu.Format, width, height int) gpu.Handle {
	h := d.alloc()
	d.Textures[h] = &Texture{Internal: internal, Width: width, Height: height}
	return h
}

func (d *Device) UploadTexture(width, height int, pixels []byte) gpu.Handle {
	h := d.alloc()
	d.Textures[h] = &Texture{Internal: gpu.RGBA8, Width: width, Height: height}
	return h
}

func (d *Device) BindTexture(unit uint32, texture gpu.Handle) { d.Units[unit] = texture }

func (d *Device) DeleteTexture(texture gpu.Handle) {
	if t, ok := d.Textures[texture]; ok {
		t.Deleted = true
	}
}

func (d *Device) CreateRenderbuffer(format gpu.Format, width, height int) gpu.Handle {
	h := d.alloc()
	d.Textures[h] = &Texture{Internal: format, Width: width, Height: height}
	return h
}

func (d *Device) DeleteRenderbuffer(rb gpu.Handle) { d.DeleteTexture(rb) }

func (d *Device) CreateFramebuffer() gpu.Handle {
	h := d.alloc()
	d.Framebuffers[h] = &Framebuffer{Depth: 1, Textures: map[int]gpu.Handle{}}
	return h
}

func (d *Device) FramebufferColor(fb gpu.Handle, index int, texture gpu.Handle) {
	f := d.Framebuffers[fb]
	for len(f.Color) <= index {
		f.Color = append(f.Color, mgl32.Vec4{})
	}
	f.Textures[index] = texture
}

func (d *Device) FramebufferDepth(fb gpu.Handle, rb gpu.Handle, format gpu.Format) {
	f := d.Framebuffers[fb]
	f.DepthRB = rb
	f.DepthFormat = format
}

func (d *Device) DrawBuffers(fb gpu.Handle, count int) { d.Framebuffers[fb].Draw = count }

func (d *Device) FramebufferComplete(fb gpu.Handle) bool { return !d.Incomplete[fb] }

func (d *Device) BindFramebuffer(fb gpu.Handle) {
	d.CurrentFramebuffer = fb
	d.call("BindFramebuffer %d", fb)
}

func (d *Device) DeleteFramebuffer(fb gpu.Handle) {
	if f, ok := d.Framebuffers[fb]; ok {
		f.Deleted = true
	}
}

func (d *Device) ClearColor(r, g, b, a float32) { d.ClearValue = mgl32.Vec4{r, g, b, a} }

// Clear resets the selected planes of the bound framebuffer: color planes to
// ClearValue, depth to 1.
func (d *Device) Clear(mask gpu.BufferMask) {
	f := d.Framebuffers[d.CurrentFramebuffer]
	if mask&gpu.ColorBufferBit != 0 {
		for i := range f.Color {
			f.Color[i] = d.ClearValue
		}
	}
	if mask&gpu.DepthBufferBit != 0 {
		f.Depth = 1
	}
	d.call("Clear %d", mask)
}

// BlitFramebuffer copies depth and the first color plane according to mask.
// Like a driver, it refuses a depth or stencil blit between framebuffers
// whose depth formats differ.
func (d *Device) BlitFramebuffer(src, dst gpu.Handle, srcW, srcH, dstW, dstH int, mask gpu.BufferMask) {
	s, t := d.Framebuffers[src], d.Framebuffers[dst]
	if mask&(gpu.DepthBufferBit|gpu.StencilBufferBit) != 0 && s.DepthFormat != t.DepthFormat {
		d.fail("BlitFramebuffer %d -> %d: depth formats %#x and %#x differ", src, dst, s.DepthFormat, t.DepthFormat)
		return
	}
	if mask&gpu.DepthBufferBit != 0 {
		t.Depth = s.Depth
	}
	if mask&gpu.ColorBufferBit != 0 && len(s.Color) > 0 && len(t.Color) > 0 {
		t.Color[0] = s.Color[0]
	}
	d.Blits = append(d.Blits, Blit{Src: src, Dst: dst, Mask: mask})
	d.CurrentFramebuffer = dst
	d.call("BlitFramebuffer %d %d %d", src, dst, mask)
}

func (d *Device) Viewport(x, y, width, height int) {
	d.View = [4]int{x, y, width, height}
}

func (d *Device) SetBlend(enabled bool) { d.Blend = enabled }

func (d *Device) DrawArrays(mode gpu.Primitive, first, count int32) {
	d.Draws = append(d.Draws, DrawCall{
		Mode:        mode,
		First:       first,
		Count:       count,
		Program:     d.CurrentProgram,
		Framebuffer: d.CurrentFramebuffer,
		Buffer:      d.CurrentBuffer,
		Blend:       d.Blend,
	})
	d.call("DrawArrays %d", count)
}

func (d *Device) PushDebugGroup(id uint32, message string) {
	d.Groups = append(d.Groups, Group{ID: id, Message: message})
	d.GroupDepth++
	d.call("PushDebugGroup %d %s", id, message)
}

func (d *Device) PopDebugGroup() {
	d.GroupDepth--
	d.call("PopDebugGroup")
}

func (d *Device) ObjectLabel(kind gpu.ObjectKind, h gpu.Handle, label string) {
	d.Labels[h] = label
}

// SetDepth writes v into the depth plane of fb, standing in for a draw.
func (d *Device) SetDepth(fb gpu.Handle, v float32) { d.Framebuffers[fb].Depth = v }

// SetColor writes v into color plane index of fb.
func (d *Device) SetColor(fb gpu.Handle, index int, v mgl32.Vec4) {
	d.Framebuffers[fb].Color[index] = v
}

// Reset forgets recorded calls, draws, groups and blits but keeps objects.
func (d *Device) Reset() {
	d.Calls = nil
	d.Draws = nil
	d.Groups = nil
	d.Blits = nil
	d.Errors = nil
}
