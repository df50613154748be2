// Package shader owns program lifetime: hot-reloadable shader stages loaded
// from a unified source document, linking, uniform lookup and the vertex
// format each program draws with.
package shader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"deferred-engine/internal/gpu"
	"deferred-engine/internal/pass"
)

var (
	// ErrLayoutSet is returned when a program's vertex layout is configured twice.
	ErrLayoutSet = errors.New("shader: vertex layout already set")
	// ErrMissingSection is returned when a unified document lacks a stage.
	ErrMissingSection = errors.New("shader: missing section")
)

// Spec describes a program variant.
type Spec struct {
	Name   string
	Source Source
	// Samplers are one-time uniforms: texture unit bindings fixed for the
	// life of the program and re-applied after every link.
	Samplers map[string]int32
	// Uniforms are resolved eagerly after every link.
	Uniforms []string
}

type binding struct {
	name string
	unit int32
}

// Program is a linked vertex+fragment pair plus the vertex array it draws
// with.
type Program struct {
	dev      gpu.Device
	name     string
	handle   gpu.Handle
	vao      gpu.Handle
	units    [2]*Unit
	samplers []binding
	runtime  []string
	cache    *UniformCache
	layout   []int32
	stride   int32
	links    int
	log      *zap.Logger
}

// NewProgram compiles both stages of spec.Source and links them. Compile and
// link diagnostics are logged; an error is returned only when the source
// could not be loaded at all.
func NewProgram(dev gpu.Device, spec Spec, log *zap.Logger) (*Program, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("shader").With(zap.String("program", spec.Name))

	p := &Program{
		dev:     dev,
		name:    spec.Name,
		vao:     dev.CreateVertexArray(),
		runtime: spec.Uniforms,
		log:     log,
	}
	for name, unit := range spec.Samplers {
		p.samplers = append(p.samplers, binding{name, unit})
	}
	sort.Slice(p.samplers, func(i, j int) bool { return p.samplers[i].unit < p.samplers[j].unit })

	p.units[0] = NewUnit(dev, spec.Source, gpu.VertexStage, log)
	p.units[1] = NewUnit(dev, spec.Source, gpu.FragmentStage, log)
	p.cache = NewUniformCache(dev, 0)
	dev.ObjectLabel(gpu.VertexArrayObject, p.vao, spec.Name)

	p.reload()
	if p.links == 0 {
		p.Destroy()
		return nil, fmt.Errorf("program %s: initial build of %s failed", spec.Name, spec.Source.Path())
	}
	return p, nil
}

// reload asks both units for changes and relinks when either compiled.
// The stages are linked into a fresh program object which replaces the
// current one only if the link succeeds, so a broken edit leaves the last
// working binary bound.
func (p *Program) reload() bool {
	changed := false
	for _, u := range p.units {
		// Both units are polled every time; no short-circuit.
		if u.TryLoad() {
			changed = true
		}
	}
	if !changed || !p.units[0].Loaded() || !p.units[1].Loaded() {
		return false
	}

	candidate := p.dev.CreateProgram()
	for _, u := range p.units {
		p.dev.AttachShader(candidate, u.Handle())
	}
	msg, ok := p.dev.LinkProgram(candidate)
	if msg != "" {
		p.log.Warn("program link log", zap.String("log", msg))
	}
	if !ok {
		p.dev.DeleteProgram(candidate)
		p.log.Warn("program link failed, keeping previous binary", zap.Int("links", p.links))
		return false
	}

	if p.handle != 0 {
		p.dev.DeleteProgram(p.handle)
	}
	p.handle = candidate
	p.links++
	p.dev.ObjectLabel(gpu.ProgramObject, p.handle, p.name)

	p.cache = NewUniformCache(p.dev, p.handle)
	p.cache.Resolve(p.runtime...)
	p.dev.UseProgram(p.handle)
	for _, b := range p.samplers {
		p.cache.SetInt(b.name, b.unit)
	}
	p.log.Debug("program linked", zap.Int("links", p.links))
	return true
}

// Use activates the program for the pass described by d. Changed sources
// are recompiled and relinked first, then the program, its vertex array and
// the pass's fixed uniforms are bound. The returned context is what draw
// calls of this pass receive.
func (p *Program) Use(d pass.Descriptor) *pass.Context {
	p.reload()
	p.dev.UseProgram(p.handle)
	p.dev.BindVertexArray(p.vao)
	for _, u := range d.Fixed {
		p.cache.SetFloat(u.Name, u.Value)
	}
	return pass.NewContext(d.Pass, p.dev, p)
}

// SetVertexAttribPointers configures the program's vertex array for
// interleaved float attributes with the given component counts. It may be
// called once per program; buffers are attached later with BindVertexBuffer
// using Stride.
func (p *Program) SetVertexAttribPointers(sizes []int32) error {
	if p.layout != nil {
		return fmt.Errorf("program %s: %w", p.name, ErrLayoutSet)
	}
	stride, offsets := Layout(sizes)
	p.dev.BindVertexArray(p.vao)
	for i, size := range sizes {
		p.dev.VertexAttribFormat(uint32(i), size, uint32(offsets[i]))
	}
	p.layout = append([]int32(nil), sizes...)
	p.stride = stride
	p.log.Debug("vertex layout set", zap.Int32s("sizes", sizes), zap.Int32("stride", stride))
	return nil
}

// Stride returns the byte size of one vertex, or 0 before a layout is set.
func (p *Program) Stride() int32 { return p.stride }

// Layout returns the configured component counts.
func (p *Program) Layout() []int32 { return p.layout }

// Name returns the program's name.
func (p *Program) Name() string { return p.name }

// Handle returns the GPU program object. It changes on every successful
// relink.
func (p *Program) Handle() gpu.Handle { return p.handle }

// Links returns how many times the program has been linked.
func (p *Program) Links() int { return p.links }

func (p *Program) SetMat4(name string, m mgl32.Mat4) { p.cache.SetMat4(name, m) }

func (p *Program) SetVec3(name string, v mgl32.Vec3) { p.cache.SetVec3(name, v) }

func (p *Program) SetInt(name string, v int32) { p.cache.SetInt(name, v) }

func (p *Program) SetFloat(name string, v float32) { p.cache.SetFloat(name, v) }

// Destroy releases the program, its stages and its vertex array.
func (p *Program) Destroy() {
	for _, u := range p.units {
		if u != nil {
			u.Destroy()
		}
	}
	if p.handle != 0 {
		p.dev.DeleteProgram(p.handle)
		p.handle = 0
	}
	if p.vao != 0 {
		p.dev.DeleteVertexArray(p.vao)
		p.vao = 0
	}
}
