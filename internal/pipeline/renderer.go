// Package pipeline drives a frame through the deferred passes: geometry into
// the G-buffer, a full-screen lighting pass into the display, then three
// interface layers on top.
package pipeline

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"deferred-engine/internal/config"
	"deferred-engine/internal/frame"
	"deferred-engine/internal/gpu"
	"deferred-engine/internal/lighting"
	"deferred-engine/internal/pass"
	"deferred-engine/internal/shader"
	"deferred-engine/internal/target"
	"deferred-engine/scene"
)

// Scene is what the renderer reads each frame.
type Scene interface {
	World() pass.Drawable
	Interface() pass.Drawable
	Lights() []lighting.Light
}

// Surface is the window the display target presents to.
type Surface interface {
	Size() (width, height int)
	SwapBuffers()
}

// G-buffer attachment order, matching the lighting program's sampler units.
const (
	GPosition = iota
	GNormal
	GAlbedoSpec
)

// Renderer owns the programs and targets of the deferred pipeline. It must
// be used from the goroutine that owns the GPU context.
type Renderer struct {
	dev     gpu.Device
	surface Surface
	log     *zap.Logger

	programs map[pass.Pass]*shader.Program
	gbuffer  *target.Target
	display  *target.Target
	lights   *lighting.Buffer
	analyzer *frame.Analyzer
	camera   *scene.Camera

	placeholder   gpu.Handle
	resizeTargets bool
}

type options struct {
	sources map[pass.Pass]shader.Source
	clock   func() time.Time
}

// Option customises New.
type Option func(*options)

// WithSources replaces the shader files named in the configuration.
func WithSources(geometry, lighting, iface shader.Source) Option {
	return func(o *options) {
		o.sources = map[pass.Pass]shader.Source{
			pass.Geometry:            geometry,
			pass.Lighting:            lighting,
			pass.InterfaceBackground: iface,
		}
	}
}

// WithClock replaces the frame timer's clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New builds the G-buffer and display targets, compiles the three programs
// and configures their vertex layouts.
func New(dev gpu.Device, surface Surface, cfg config.Config, log *zap.Logger, opts ...Option) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sources == nil {
		o.sources = map[pass.Pass]shader.Source{
			pass.Geometry:            shader.NewFileSource(cfg.Shaders.Geometry),
			pass.Lighting:            shader.NewFileSource(cfg.Shaders.Lighting),
			pass.InterfaceBackground: shader.NewFileSource(cfg.Shaders.Interface),
		}
	}

	w, h := surface.Size()
	r := &Renderer{
		dev:           dev,
		surface:       surface,
		log:           log,
		programs:      make(map[pass.Pass]*shader.Program),
		display:       target.Display(dev, w, h, log),
		lights:        lighting.NewBuffer(dev),
		analyzer:      frame.NewAnalyzer(dev, frame.WithClock(o.clock)),
		camera:        cameraFromConfig(cfg.Camera),
		resizeTargets: cfg.Renderer.ResizeTargets,
	}
	// Only the window gets the configured background. The G-buffer clears
	// to zero so an empty pixel keeps position.w == 0.
	cc := cfg.Renderer.ClearColor
	r.display.SetClearColor(cc[0], cc[1], cc[2], cc[3])

	// The depth plane matches the window's depth-stencil format so it can
	// be blitted into the default framebuffer.
	r.gbuffer = target.New(dev, "G-Buffer", w, h, log)
	if err := r.gbuffer.AddDepthBuffer(gpu.Depth24Stencil8); err != nil {
		r.Destroy()
		return nil, fmt.Errorf("g-buffer depth: %w", err)
	}
	for _, label := range []string{"GB: gPosition", "GB: gNormal", "GB: gAlbedoSpec"} {
		if err := r.gbuffer.AddAttachment(gpu.RGBA16F, gpu.RGBA, label); err != nil {
			r.Destroy()
			return nil, fmt.Errorf("g-buffer attachment %s: %w", label, err)
		}
	}
	if err := r.gbuffer.Check(); err != nil {
		r.Destroy()
		return nil, err
	}

	specs := []struct {
		pass pass.Pass
		spec shader.Spec
	}{
		{pass.InterfaceBackground, shader.InterfaceSpec(o.sources[pass.InterfaceBackground])},
		{pass.Lighting, shader.LightingSpec(o.sources[pass.Lighting])},
		{pass.Geometry, shader.GeometrySpec(o.sources[pass.Geometry])},
	}
	for _, s := range specs {
		p, err := shader.NewProgram(dev, s.spec, log)
		if err != nil {
			r.Destroy()
			return nil, fmt.Errorf("%s program: %w", s.pass, err)
		}
		r.programs[s.pass] = p
	}

	// Vertex formats are recorded against an existing array buffer.
	r.placeholder = dev.CreateBuffer()
	dev.ArrayBufferData(r.placeholder, nil)
	if err := r.iface().SetVertexAttribPointers(shader.InterfaceLayout); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.programs[pass.Geometry].SetVertexAttribPointers(shader.GeometryLayout); err != nil {
		r.Destroy()
		return nil, err
	}

	log.Info("renderer ready", zap.Int("width", w), zap.Int("height", h))
	return r, nil
}

func cameraFromConfig(c config.Camera) *scene.Camera {
	cam := scene.NewCamera(c.FOV, c.Near, c.Far)
	cam.Position = mgl32.Vec3(c.Position)
	if t := mgl32.Vec3(c.Target); t.Len() > 0 {
		cam.Target = t
	}
	return cam
}

func (r *Renderer) iface() *shader.Program { return r.programs[pass.InterfaceBackground] }

// Camera returns the camera used for the 3D passes.
func (r *Renderer) Camera() *scene.Camera { return r.camera }

// SetCamera replaces the camera.
func (r *Renderer) SetCamera(c *scene.Camera) { r.camera = c }

// Program returns the program that serves pass p. All interface sub-passes
// share one program.
func (r *Renderer) Program(p pass.Pass) (*shader.Program, bool) {
	if p.IsInterface() {
		p = pass.InterfaceBackground
	}
	prog, ok := r.programs[p]
	if !ok {
		r.log.Error("no program for pass", zap.Stringer("pass", p))
		return nil, false
	}
	return prog, true
}

// GBuffer returns the geometry pass target.
func (r *Renderer) GBuffer() *target.Target { return r.gbuffer }

// Display returns the window surface target.
func (r *Renderer) Display() *target.Target { return r.display }

// Analyzer returns the frame timer.
func (r *Renderer) Analyzer() *frame.Analyzer { return r.analyzer }

// Resize follows a change of the surface's pixel size.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		// Minimised.
		return
	}
	r.dev.Viewport(0, 0, width, height)
	r.display.Resize(width, height)
	if r.resizeTargets {
		r.gbuffer.Resize(width, height)
	}
	r.log.Debug("resized", zap.Int("width", width), zap.Int("height", height))
}

// Destroy frees every GPU object the renderer created.
func (r *Renderer) Destroy() {
	for p, prog := range r.programs {
		prog.Destroy()
		delete(r.programs, p)
	}
	if r.gbuffer != nil {
		r.gbuffer.Destroy()
	}
	if r.lights != nil {
		r.lights.Destroy()
	}
	if r.placeholder != 0 {
		r.dev.DeleteBuffer(r.placeholder)
		r.placeholder = 0
	}
}
