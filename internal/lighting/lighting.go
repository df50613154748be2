// Package lighting packs scene lights into the flat float buffer the lighting
// shader reads from its storage block.
package lighting

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/internal/gpu"
)

// Stride is the number of floats per light in the encoded buffer.
const Stride = 10

// Binding is the shader storage slot the light buffer is bound to.
const Binding = 0

// Light is a snapshot of one light entity.
type Light struct {
	Position  mgl32.Vec3
	Color     mgl32.Vec3
	Direction mgl32.Vec3
	Strength  float32
}

// Encode lays out lights as [N, light0..., light1..., ...] where each light
// is position, color, direction and strength: 10*N+1 floats.
func Encode(lights []Light) []float32 {
	return AppendEncoded(make([]float32, 0, Stride*len(lights)+1), lights)
}

// AppendEncoded is Encode writing into buf[:0], reusing its capacity.
func AppendEncoded(buf []float32, lights []Light) []float32 {
	buf = append(buf[:0], float32(len(lights)))
	for _, l := range lights {
		buf = append(buf,
			l.Position[0], l.Position[1], l.Position[2],
			l.Color[0], l.Color[1], l.Color[2],
			l.Direction[0], l.Direction[1], l.Direction[2],
			l.Strength,
		)
	}
	return buf
}

// Buffer is the GPU storage buffer holding the encoded lights. Its contents
// are replaced wholesale every frame.
type Buffer struct {
	dev    gpu.Device
	handle gpu.Handle
	data   []float32
}

// NewBuffer creates the storage buffer.
func NewBuffer(dev gpu.Device) *Buffer {
	b := &Buffer{dev: dev, handle: dev.CreateBuffer()}
	dev.ObjectLabel(gpu.BufferObject, b.handle, "lights")
	return b
}

// Upload encodes lights, binds the buffer to Binding and streams the data.
// It returns the number of floats uploaded.
func (b *Buffer) Upload(lights []Light) int {
	b.data = AppendEncoded(b.data, lights)
	b.dev.StorageBufferData(b.handle, Binding, b.data)
	return len(b.data)
}

// Handle returns the GPU buffer object.
func (b *Buffer) Handle() gpu.Handle { return b.handle }

// Destroy frees the buffer.
func (b *Buffer) Destroy() {
	if b.handle != 0 {
		b.dev.DeleteBuffer(b.handle)
		b.handle = 0
	}
}
