package target

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"deferred-engine/internal/gpu"
	"deferred-engine/internal/gpu/gputest"
)

func newGBuffer(t *testing.T, dev *gputest.Device) *Target {
	t.Helper()
	g := New(dev, "gbuffer", 640, 480, nil)
	if err := g.AddDepthBuffer(gpu.Depth24Stencil8); err != nil {
		t.Fatal(err)
	}
	for _, label := range []string{"GB: gPosition", "GB: gNormal", "GB: gAlbedoSpec"} {
		if err := g.AddAttachment(gpu.RGBA16F, gpu.RGBA, label); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Check(); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGBufferAttachments(t *testing.T) {
	dev := gputest.NewDevice()
	g := newGBuffer(t, dev)

	if g.Attachments() != 3 || !g.HasDepth() {
		t.Fatalf("expected 3 colors + depth, got %d colors, depth=%v", g.Attachments(), g.HasDepth())
	}
	fb := dev.Framebuffers[g.Handle()]
	if fb.Draw != 3 {
		t.Errorf("draw buffers: expected 3, got %d", fb.Draw)
	}
	for i, label := range []string{"GB: gPosition", "GB: gNormal", "GB: gAlbedoSpec"} {
		a, ok := g.Attachment(i)
		if !ok {
			t.Fatalf("attachment %d missing", i)
		}
		if dev.Labels[a.Texture] != label {
			t.Errorf("label %d: expected %q, got %q", i, label, dev.Labels[a.Texture])
		}
		if tex := dev.Textures[a.Texture]; tex.Internal != gpu.RGBA16F || tex.Width != 640 {
			t.Errorf("attachment %d: got %+v", i, tex)
		}
		if fb.Textures[i] != a.Texture {
			t.Errorf("attachment %d not bound to framebuffer", i)
		}
	}
}

func TestAddDepthBufferTwice(t *testing.T) {
	dev := gputest.NewDevice()
	g := newGBuffer(t, dev)
	if err := g.AddDepthBuffer(gpu.DepthComponent24); !errors.Is(err, ErrDepthExists) {
		t.Errorf("expected ErrDepthExists, got %v", err)
	}
}

func TestDisplayTargetOwnsNothing(t *testing.T) {
	d := Display(gputest.NewDevice(), 800, 600, nil)
	if d.Handle() != gpu.DefaultFramebuffer {
		t.Errorf("handle: expected default framebuffer, got %d", d.Handle())
	}
	if err := d.AddAttachment(gpu.RGBA8, gpu.RGBA, "x"); !errors.Is(err, ErrDisplayTarget) {
		t.Errorf("AddAttachment: expected ErrDisplayTarget, got %v", err)
	}
	if err := d.AddDepthBuffer(gpu.DepthComponent24); !errors.Is(err, ErrDisplayTarget) {
		t.Errorf("AddDepthBuffer: expected ErrDisplayTarget, got %v", err)
	}
}

func TestDepthOnlyBlitLeavesColorAlone(t *testing.T) {
	dev := gputest.NewDevice()
	g := newGBuffer(t, dev)
	d := Display(dev, 640, 480, nil)

	g.Use().Reset()
	dev.SetDepth(g.Handle(), 0.25)
	dev.SetColor(g.Handle(), 0, mgl32.Vec4{0.9, 0.9, 0.9, 1})

	d.Use().Reset()
	dev.SetColor(d.Handle(), 0, mgl32.Vec4{0.5, 0.5, 0.5, 1})

	d.BlitFrom(g, gpu.DepthBufferBit)

	dst := dev.Framebuffers[d.Handle()]
	if dst.Depth != 0.25 {
		t.Errorf("depth: expected 0.25, got %v", dst.Depth)
	}
	if dst.Color[0] != (mgl32.Vec4{0.5, 0.5, 0.5, 1}) {
		t.Errorf("color: expected 0.5 gray (untouched), got %v", dst.Color[0])
	}
	src := dev.Framebuffers[g.Handle()]
	if src.Depth != 0.25 || src.Color[0] != (mgl32.Vec4{0.9, 0.9, 0.9, 1}) {
		t.Errorf("source changed by blit: %+v", src)
	}
	if len(dev.Errors) != 0 {
		t.Errorf("gl errors: expected none, got %v", dev.Errors)
	}
}

func TestDepthBlitRejectsMismatchedFormats(t *testing.T) {
	dev := gputest.NewDevice()
	g := New(dev, "gbuffer", 640, 480, nil)
	if err := g.AddDepthBuffer(gpu.DepthComponent24); err != nil {
		t.Fatal(err)
	}
	d := Display(dev, 640, 480, nil)

	g.Use().Reset()
	dev.SetDepth(g.Handle(), 0.25)
	d.Use().Reset()
	d.BlitFrom(g, gpu.DepthBufferBit)

	if len(dev.Errors) != 1 {
		t.Fatalf("gl errors: expected 1, got %v", dev.Errors)
	}
	if depth := dev.Framebuffers[d.Handle()].Depth; depth != 1 {
		t.Errorf("depth: expected 1 (blit refused), got %v", depth)
	}
}

func TestResetUsesTargetClearColor(t *testing.T) {
	dev := gputest.NewDevice()
	g := newGBuffer(t, dev)
	d := Display(dev, 640, 480, nil).SetClearColor(0.05, 0.05, 0.08, 1)

	d.Use().Reset()
	g.Use().Reset()

	for i, c := range dev.Framebuffers[g.Handle()].Color {
		if c != (mgl32.Vec4{}) {
			t.Errorf("gbuffer color %d: expected zero, got %v", i, c)
		}
	}
	want := mgl32.Vec4{0.05, 0.05, 0.08, 1}
	if c := dev.Framebuffers[d.Handle()].Color[0]; c != want {
		t.Errorf("display color: expected %v, got %v", want, c)
	}
}

func TestUseChainsAndSetsViewport(t *testing.T) {
	dev := gputest.NewDevice()
	g := newGBuffer(t, dev)
	if got := g.Use(); got != g {
		t.Error("Use must return the receiver")
	}
	if dev.CurrentFramebuffer != g.Handle() {
		t.Errorf("bound framebuffer: expected %d, got %d", g.Handle(), dev.CurrentFramebuffer)
	}
	if dev.View != [4]int{0, 0, 640, 480} {
		t.Errorf("viewport: got %v", dev.View)
	}
}

func TestAttachmentMissIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := New(gputest.NewDevice(), "empty", 1, 1, zap.New(core))

	if _, ok := g.Attachment(4); ok {
		t.Error("expected miss")
	}
	entries := logs.FilterMessage("no such attachment").All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("expected one error entry, got %+v", entries)
	}
}

func TestResizeReallocates(t *testing.T) {
	dev := gputest.NewDevice()
	g := newGBuffer(t, dev)
	before, _ := g.Attachment(0)

	g.Resize(1280, 720)

	after, _ := g.Attachment(0)
	if after.Texture == before.Texture {
		t.Fatal("attachment not reallocated")
	}
	if !dev.Textures[before.Texture].Deleted {
		t.Error("old attachment not deleted")
	}
	if tex := dev.Textures[after.Texture]; tex.Width != 1280 || tex.Height != 720 {
		t.Errorf("new attachment size: got %dx%d", tex.Width, tex.Height)
	}
	if f := dev.Framebuffers[g.Handle()]; f.DepthFormat != gpu.Depth24Stencil8 {
		t.Errorf("depth format after resize: expected %#x, got %#x", gpu.Depth24Stencil8, f.DepthFormat)
	}
	if dev.Labels[after.Texture] != "GB: gPosition" {
		t.Errorf("label lost on resize: %q", dev.Labels[after.Texture])
	}
	if w, h := g.Size(); w != 1280 || h != 720 {
		t.Errorf("size: got %dx%d", w, h)
	}
}

func TestDestroy(t *testing.T) {
	dev := gputest.NewDevice()
	g := newGBuffer(t, dev)
	a, _ := g.Attachment(1)
	fb := g.Handle()

	g.Destroy()

	if !dev.Framebuffers[fb].Deleted {
		t.Error("framebuffer not deleted")
	}
	if !dev.Textures[a.Texture].Deleted {
		t.Error("attachment not deleted")
	}
}
