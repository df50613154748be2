package scene

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"deferred-engine/internal/gpu"
)

// Texture holds CPU-side pixel data for a 2D texture.
type Texture struct {
	Name   string
	Width  int
	Height int
	// Pixels in RGBA8 format (4 bytes per pixel, row-major, top-to-bottom).
	Pixels []byte
	// Handle is set by Upload.
	Handle gpu.Handle
}

// LoadTexture reads a PNG or JPEG file from disk and returns a CPU-side Texture.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %q: %w", path, err)
	}
	defer f.Close()
	return decodeTexture(path, f)
}

// DecodeTexture decodes PNG or JPEG bytes.
func DecodeTexture(name string, data []byte) (*Texture, error) {
	return decodeTexture(name, bytes.NewReader(data))
}

func decodeTexture(name string, r io.Reader) (*Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode texture %q: %w", name, err)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return &Texture{
		Name:   name,
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: rgba.Pix,
	}, nil
}

// NewSolidTexture creates a 1x1 texture with the given RGBA color values (0–255).
func NewSolidTexture(name string, r, g, b, a uint8) *Texture {
	return &Texture{
		Name:   name,
		Width:  1,
		Height: 1,
		Pixels: []byte{r, g, b, a},
	}
}

// Upload creates the GPU texture once.
func (t *Texture) Upload(dev gpu.Device) {
	if t.Handle != 0 {
		return
	}
	t.Handle = dev.UploadTexture(t.Width, t.Height, t.Pixels)
	if t.Name != "" {
		dev.ObjectLabel(gpu.TextureObject, t.Handle, t.Name)
	}
}

func (t *Texture) Destroy(dev gpu.Device) {
	if t.Handle != 0 {
		dev.DeleteTexture(t.Handle)
		t.Handle = 0
	}
}
