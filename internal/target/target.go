// Package target wraps framebuffers: off-screen color attachments, an
// optional depth buffer, clearing and plane-selective blits.
package target

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"deferred-engine/internal/gpu"
)

var (
	// ErrDepthExists is returned when a second depth buffer is added.
	ErrDepthExists = errors.New("target: depth buffer already attached")
	// ErrDisplayTarget is returned when attachments are added to the window
	// surface.
	ErrDisplayTarget = errors.New("target: display target owns no attachments")
)

// Attachment is one off-screen color image.
type Attachment struct {
	Texture  gpu.Handle
	Internal gpu.Format
	Format   gpu.Format
	Label    string
}

// Target is a framebuffer plus the images it owns. The display target is the
// window surface: it owns nothing and follows the window size.
type Target struct {
	dev     gpu.Device
	name    string
	fb      gpu.Handle
	width   int
	height  int
	display bool
	clear   [4]float32

	colors      []Attachment
	depth       gpu.Handle
	depthFormat gpu.Format

	log *zap.Logger
}

// New creates an empty off-screen target of the given size.
func New(dev gpu.Device, name string, width, height int, log *zap.Logger) *Target {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Target{
		dev:    dev,
		name:   name,
		fb:     dev.CreateFramebuffer(),
		width:  width,
		height: height,
		log:    log.Named("target").With(zap.String("target", name)),
	}
	dev.ObjectLabel(gpu.FramebufferObject, t.fb, name)
	return t
}

// Display returns the target for the window surface.
func Display(dev gpu.Device, width, height int, log *zap.Logger) *Target {
	if log == nil {
		log = zap.NewNop()
	}
	return &Target{
		dev:     dev,
		name:    "display",
		fb:      gpu.DefaultFramebuffer,
		width:   width,
		height:  height,
		display: true,
		log:     log.Named("target").With(zap.String("target", "display")),
	}
}

// AddAttachment appends a color image sized to the target and routes the
// next fragment output to it.
func (t *Target) AddAttachment(internal, format gpu.Format, label string) error {
	if t.display {
		return ErrDisplayTarget
	}
	a := Attachment{Internal: internal, Format: format, Label: label}
	a.Texture = t.allocColor(a)
	t.colors = append(t.colors, a)
	t.dev.FramebufferColor(t.fb, len(t.colors)-1, a.Texture)
	t.dev.DrawBuffers(t.fb, len(t.colors))
	return nil
}

// AddDepthBuffer attaches the target's depth plane.
func (t *Target) AddDepthBuffer(format gpu.Format) error {
	if t.display {
		return ErrDisplayTarget
	}
	if t.depth != 0 {
		return fmt.Errorf("%s: %w", t.name, ErrDepthExists)
	}
	t.depthFormat = format
	t.depth = t.allocDepth()
	t.dev.FramebufferDepth(t.fb, t.depth, t.depthFormat)
	return nil
}

func (t *Target) allocColor(a Attachment) gpu.Handle {
	tex := t.dev.CreateTexture(a.Internal, a.Format, t.width, t.height)
	if a.Label != "" {
		t.dev.ObjectLabel(gpu.TextureObject, tex, a.Label)
	}
	return tex
}

func (t *Target) allocDepth() gpu.Handle {
	rb := t.dev.CreateRenderbuffer(t.depthFormat, t.width, t.height)
	t.dev.ObjectLabel(gpu.RenderbufferObject, rb, t.name+": depth")
	return rb
}

// Check reports whether the driver accepts the target's attachments.
func (t *Target) Check() error {
	if t.display {
		return nil
	}
	if !t.dev.FramebufferComplete(t.fb) {
		return fmt.Errorf("%s: framebuffer incomplete", t.name)
	}
	return nil
}

// Use binds the target as the draw destination and sets the viewport to
// cover it.
func (t *Target) Use() *Target {
	t.dev.BindFramebuffer(t.fb)
	t.dev.Viewport(0, 0, t.width, t.height)
	return t
}

// SetClearColor sets the color Reset fills the target's color planes with.
// Targets start cleared to zero.
func (t *Target) SetClearColor(r, g, b, a float32) *Target {
	t.clear = [4]float32{r, g, b, a}
	return t
}

// Reset clears color and depth of the bound target.
func (t *Target) Reset() *Target {
	c := t.clear
	t.dev.ClearColor(c[0], c[1], c[2], c[3])
	t.dev.Clear(gpu.ColorBufferBit | gpu.DepthBufferBit)
	return t
}

// BlitFrom copies the planes selected by mask from src into t, scaling to
// t's size.
func (t *Target) BlitFrom(src *Target, mask gpu.BufferMask) {
	t.dev.BlitFramebuffer(src.fb, t.fb, src.width, src.height, t.width, t.height, mask)
}

// Attachment returns color image i for sampling in a later pass. A miss is
// logged and reported, not fatal.
func (t *Target) Attachment(i int) (Attachment, bool) {
	if i < 0 || i >= len(t.colors) {
		t.log.Error("no such attachment", zap.Int("index", i), zap.Int("count", len(t.colors)))
		return Attachment{}, false
	}
	return t.colors[i], true
}

// Attachments returns the number of color images.
func (t *Target) Attachments() int { return len(t.colors) }

// HasDepth reports whether a depth buffer is attached.
func (t *Target) HasDepth() bool { return t.depth != 0 }

// Handle returns the framebuffer object.
func (t *Target) Handle() gpu.Handle { return t.fb }

// Name returns the target's name.
func (t *Target) Name() string { return t.name }

// Size returns the target's pixel size.
func (t *Target) Size() (int, int) { return t.width, t.height }

// Resize reallocates every owned image at the new size. The display target
// only records it; the window system resizes the surface.
func (t *Target) Resize(width, height int) {
	if width == t.width && height == t.height {
		return
	}
	t.width, t.height = width, height
	if t.display {
		return
	}

	for i := range t.colors {
		t.dev.DeleteTexture(t.colors[i].Texture)
		t.colors[i].Texture = t.allocColor(t.colors[i])
		t.dev.FramebufferColor(t.fb, i, t.colors[i].Texture)
	}
	if t.depth != 0 {
		t.dev.DeleteRenderbuffer(t.depth)
		t.depth = t.allocDepth()
		t.dev.FramebufferDepth(t.fb, t.depth, t.depthFormat)
	}
	t.log.Debug("target resized", zap.Int("width", width), zap.Int("height", height))
}

// Destroy frees the framebuffer and everything attached to it.
func (t *Target) Destroy() {
	if t.display {
		return
	}
	for _, a := range t.colors {
		t.dev.DeleteTexture(a.Texture)
	}
	t.colors = nil
	if t.depth != 0 {
		t.dev.DeleteRenderbuffer(t.depth)
		t.depth = 0
	}
	if t.fb != 0 {
		t.dev.DeleteFramebuffer(t.fb)
		t.fb = 0
	}
}
