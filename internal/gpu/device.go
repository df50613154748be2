// Package gpu describes the graphics commands the renderer issues, independent
// of the binding that executes them. The OpenGL implementation lives in
// internal/opengl; tests use internal/gpu/gputest.
//
// All methods must be called from the goroutine that owns the GL context.
package gpu

import "github.com/go-gl/mathgl/mgl32"

// Handle names a GPU object. Zero is "none", or the window surface when used
// as a framebuffer.
type Handle uint32

// DefaultFramebuffer is the window surface.
const DefaultFramebuffer Handle = 0

// Stage is a programmable pipeline stage.
type Stage uint32

const (
	VertexStage   Stage = 0x8B31
	FragmentStage Stage = 0x8B30
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	}
	return "unknown"
}

// Format is a texture or renderbuffer pixel format. Values match GL enums.
type Format uint32

const (
	RGBA              Format = 0x1908
	RGBA8             Format = 0x8058
	RGBA16F           Format = 0x881A
	RGBA32F           Format = 0x8814
	DepthComponent    Format = 0x1902
	DepthComponent24  Format = 0x81A6
	DepthComponent32F Format = 0x8CAC
	// Depth24Stencil8 matches the default framebuffer GLFW creates, which a
	// depth blit into the window requires.
	Depth24Stencil8 Format = 0x88F0
)

// BufferMask selects framebuffer planes for clears and blits.
type BufferMask uint32

const (
	DepthBufferBit   BufferMask = 0x00000100
	StencilBufferBit BufferMask = 0x00000400
	ColorBufferBit   BufferMask = 0x00004000
)

// Primitive is a draw topology.
type Primitive uint32

const (
	Triangles Primitive = 0x0004
	Lines     Primitive = 0x0001
)

// ObjectKind identifies the namespace of a Handle for debug labels.
type ObjectKind uint32

const (
	BufferObject       ObjectKind = 0x82E0
	ShaderObject       ObjectKind = 0x82E1
	ProgramObject      ObjectKind = 0x82E2
	VertexArrayObject  ObjectKind = 0x8074
	TextureObject      ObjectKind = 0x1702
	FramebufferObject  ObjectKind = 0x8D40
	RenderbufferObject ObjectKind = 0x8D41
)

// FloatSize is the byte size of a vertex component.
const FloatSize = 4

// Device is the set of GPU commands used by the renderer.
type Device interface {
	CreateShader(stage Stage) Handle
	// CompileShader replaces the shader's source, compiles it and returns the
	// compiler's info log (empty when the driver had nothing to say).
	CompileShader(shader Handle, source string) string
	DeleteShader(shader Handle)

	CreateProgram() Handle
	AttachShader(program, shader Handle)
	// LinkProgram links and returns the linker's info log and whether the
	// link succeeded. A program that failed to link must not be made current.
	LinkProgram(program Handle) (log string, ok bool)
	UseProgram(program Handle)
	DeleteProgram(program Handle)
	UniformLocation(program Handle, name string) int32
	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	Uniform3f(location int32, x, y, z float32)
	UniformMatrix4(location int32, m mgl32.Mat4)

	CreateVertexArray() Handle
	BindVertexArray(vao Handle)
	DeleteVertexArray(vao Handle)
	// VertexAttribFormat enables attribute index on the bound vertex array and
	// describes it as size floats at offset bytes into each vertex.
	VertexAttribFormat(index uint32, size int32, offset uint32)
	// BindVertexBuffer feeds buffer into the bound vertex array.
	BindVertexBuffer(buffer Handle, stride int32)

	CreateBuffer() Handle
	// ArrayBufferData binds buffer as the array buffer and uploads data once.
	ArrayBufferData(buffer Handle, data []float32)
	// StorageBufferData binds buffer to a shader storage slot and replaces its
	// whole contents with streaming usage.
	StorageBufferData(buffer Handle, binding uint32, data []float32)
	DeleteBuffer(buffer Handle)

	CreateTexture(internal, format Format, width, height int) Handle
	// UploadTexture creates a mipmapped RGBA8 texture from tightly packed
	// pixels, top row first.
	UploadTexture(width, height int, pixels []byte) Handle
	BindTexture(unit uint32, texture Handle)
	DeleteTexture(texture Handle)
	CreateRenderbuffer(format Format, width, height int) Handle
	DeleteRenderbuffer(rb Handle)

	CreateFramebuffer() Handle
	FramebufferColor(fb Handle, index int, texture Handle)
	// FramebufferDepth attaches rb as the depth plane, or as depth and
	// stencil when format carries a stencil component.
	FramebufferDepth(fb Handle, rb Handle, format Format)
	// DrawBuffers routes fragment outputs 0..count-1 to color attachments.
	DrawBuffers(fb Handle, count int)
	FramebufferComplete(fb Handle) bool
	BindFramebuffer(fb Handle)
	DeleteFramebuffer(fb Handle)
	ClearColor(r, g, b, a float32)
	Clear(mask BufferMask)
	// BlitFramebuffer copies the planes in mask from src to dst and leaves
	// dst bound for drawing.
	BlitFramebuffer(src, dst Handle, srcW, srcH, dstW, dstH int, mask BufferMask)
	Viewport(x, y, width, height int)
	// SetBlend toggles source-alpha blending for subsequent draws.
	SetBlend(enabled bool)

	DrawArrays(mode Primitive, first, count int32)

	PushDebugGroup(id uint32, message string)
	PopDebugGroup()
	ObjectLabel(kind ObjectKind, h Handle, label string)
}
