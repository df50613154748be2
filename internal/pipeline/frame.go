package pipeline

import (
	"fmt"
	"time"

	"deferred-engine/internal/gpu"
	"deferred-engine/internal/pass"
)

// FrameStats summarises one rendered frame.
type FrameStats struct {
	DrawCalls int
	Lights    int
	// LightFloats is the length of the uploaded light buffer.
	LightFloats int
	FrameTime   time.Duration
	// AverageMs is the rolling mean frame time.
	AverageMs float64
	FPS       float64
}

// Title formats the stats for a window title.
func (s FrameStats) Title(prefix string) string {
	return fmt.Sprintf("%s | FPS: %.0f | Draw calls: %d | Lights: %d | Frame: %.2f ms",
		prefix, s.FPS, s.DrawCalls, s.Lights, s.AverageMs)
}

// RenderFrame renders sc once and presents it. Passes run in a fixed order;
// nothing is retried, and shader diagnostics only show up in the log.
func (r *Renderer) RenderFrame(sc Scene) FrameStats {
	a := r.analyzer
	a.StartFrame()

	lights := sc.Lights()
	w, h := r.surface.Size()
	aspect := float32(1)
	if h > 0 {
		aspect = float32(w) / float32(h)
	}
	view := r.camera.View()
	perspective := r.camera.Perspective(aspect)
	ortho := r.camera.Ortho(float32(w), float32(h))

	var stats FrameStats

	a.StartPass("G-Buffer")
	r.dev.SetBlend(false)
	r.gbuffer.Use().Reset()
	geometry := r.programs[pass.Geometry]
	ctx := geometry.Use(pass.Describe(pass.Geometry))
	geometry.SetMat4("view", view)
	geometry.SetMat4("perspective", perspective)
	stats.DrawCalls += drawTree(sc.World(), ctx)
	a.EndPass()

	a.StartPass("Lighting")
	r.display.Use().Reset()
	lit := r.programs[pass.Lighting]
	ctx = lit.Use(pass.Describe(pass.Lighting))
	for unit := GPosition; unit <= GAlbedoSpec; unit++ {
		if att, ok := r.gbuffer.Attachment(unit); ok {
			r.dev.BindTexture(uint32(unit), att.Texture)
		}
	}
	lit.SetVec3("cameraPosition", r.camera.Position)
	stats.LightFloats = r.lights.Upload(lights)
	stats.Lights = len(lights)
	// Full-screen triangle; positions come from gl_VertexID.
	ctx.DrawArrays(gpu.Triangles, 0, 3)
	a.EndPass()

	a.StartPass("Interface")
	r.display.BlitFrom(r.gbuffer, gpu.DepthBufferBit)
	ui := r.iface()
	r.dev.SetBlend(true)
	for _, p := range pass.Interface {
		ctx = ui.Use(pass.Describe(p))
		ui.SetMat4("perspective", ortho)
		stats.DrawCalls += drawTree(sc.Interface(), ctx)
	}
	r.dev.SetBlend(false)
	a.EndPass()

	r.surface.SwapBuffers()
	stats.FrameTime = a.EndFrame()
	stats.AverageMs = a.LastFrameTime()
	stats.FPS = a.FPS()
	return stats
}

func drawTree(d pass.Drawable, ctx *pass.Context) int {
	if d == nil {
		return 0
	}
	return d.Draw(ctx)
}
