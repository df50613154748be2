// Package opengl executes gpu.Device commands on an OpenGL 4.3 core context.
package opengl

import (
	"fmt"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"deferred-engine/internal/gpu"
)

// Device is the OpenGL implementation of gpu.Device. It must be created and
// used on the thread whose context is current.
type Device struct {
	log   *zap.Logger
	debug *gpu.DebugHandler
	bound uint32
}

var _ gpu.Device = (*Device)(nil)

// New initialises OpenGL. Must be called after the window context is made
// current. With debug set, driver messages are routed into log and driver
// errors terminate the process.
func New(log *zap.Logger, debug bool) (*Device, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	d := &Device{log: log.Named("opengl")}
	d.log.Info("context ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	// Blending stays off until a pass asks for it; G-buffer outputs carry
	// data, not coverage, in their alpha channels.
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.BLEND)

	if debug {
		d.debug = gpu.NewDebugHandler(log)
		gl.Enable(gl.DEBUG_OUTPUT)
		gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
		gl.DebugMessageCallback(d.onDebugMessage, nil)
	}
	return d, nil
}

func (d *Device) onDebugMessage(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
	d.debug.Handle(gpu.DebugMessage{
		Source:   source,
		Type:     gltype,
		ID:       id,
		Severity: severity,
		Text:     message,
	})
}

// cstr returns a NUL-terminated pointer to s for the lifetime of the call.
func cstr(s string) *uint8 { return gl.Str(s + "\x00") }

func floatPtr(data []float32) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}

// withFramebuffer runs fn with fb bound and restores the previous binding.
func (d *Device) withFramebuffer(fb gpu.Handle, fn func()) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	fn()
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.bound)
}

// ── Shaders and programs ─────────────────────────────────────────────────────

func (d *Device) CreateShader(stage gpu.Stage) gpu.Handle {
	return gpu.Handle(gl.CreateShader(uint32(stage)))
}

func (d *Device) CompileShader(shader gpu.Handle, source string) string {
	id := uint32(shader)
	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(id, 1, csrc, nil)
	free()
	gl.CompileShader(id)

	var logLen int32
	gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &logLen)
	if logLen <= 1 {
		return ""
	}
	log := strings.Repeat("\x00", int(logLen+1))
	gl.GetShaderInfoLog(id, logLen, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (d *Device) DeleteShader(shader gpu.Handle) { gl.DeleteShader(uint32(shader)) }

func (d *Device) CreateProgram() gpu.Handle { return gpu.Handle(gl.CreateProgram()) }

func (d *Device) AttachShader(program, shader gpu.Handle) {
	gl.AttachShader(uint32(program), uint32(shader))
}

func (d *Device) LinkProgram(program gpu.Handle) (string, bool) {
	id := uint32(program)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	ok := status == gl.TRUE

	var logLen int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLen)
	if logLen <= 1 {
		return "", ok
	}
	log := strings.Repeat("\x00", int(logLen+1))
	gl.GetProgramInfoLog(id, logLen, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00"), ok
}

func (d *Device) UseProgram(program gpu.Handle) { gl.UseProgram(uint32(program)) }

func (d *Device) DeleteProgram(program gpu.Handle) { gl.DeleteProgram(uint32(program)) }

func (d *Device) UniformLocation(program gpu.Handle, name string) int32 {
	return gl.GetUniformLocation(uint32(program), cstr(name))
}

func (d *Device) Uniform1i(location int32, v int32) { gl.Uniform1i(location, v) }

func (d *Device) Uniform1f(location int32, v float32) { gl.Uniform1f(location, v) }

func (d *Device) Uniform3f(location int32, x, y, z float32) { gl.Uniform3f(location, x, y, z) }

func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

// ── Vertex input ─────────────────────────────────────────────────────────────

func (d *Device) CreateVertexArray() gpu.Handle {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return gpu.Handle(vao)
}

func (d *Device) BindVertexArray(vao gpu.Handle) { gl.BindVertexArray(uint32(vao)) }

func (d *Device) DeleteVertexArray(vao gpu.Handle) {
	id := uint32(vao)
	gl.DeleteVertexArrays(1, &id)
}

// VertexAttribFormat uses separate attribute formats; every attribute reads
// from vertex buffer binding 0.
func (d *Device) VertexAttribFormat(index uint32, size int32, offset uint32) {
	gl.EnableVertexAttribArray(index)
	gl.VertexAttribFormat(index, size, gl.FLOAT, false, offset)
	gl.VertexAttribBinding(index, 0)
}

func (d *Device) BindVertexBuffer(buffer gpu.Handle, stride int32) {
	gl.BindVertexBuffer(0, uint32(buffer), 0, stride)
}

// ── Buffers ──────────────────────────────────────────────────────────────────

func (d *Device) CreateBuffer() gpu.Handle {
	var id uint32
	gl.GenBuffers(1, &id)
	return gpu.Handle(id)
}

func (d *Device) ArrayBufferData(buffer gpu.Handle, data []float32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buffer))
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*gpu.FloatSize, floatPtr(data), gl.STATIC_DRAW)
}

func (d *Device) StorageBufferData(buffer gpu.Handle, binding uint32, data []float32) {
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, uint32(buffer))
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, len(data)*gpu.FloatSize, floatPtr(data), gl.STREAM_DRAW)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, binding, uint32(buffer))
}

func (d *Device) DeleteBuffer(buffer gpu.Handle) {
	id := uint32(buffer)
	gl.DeleteBuffers(1, &id)
}

// ── Textures ─────────────────────────────────────────────────────────────────

// pixelType picks the client data type matching an internal format.
func pixelType(internal gpu.Format) uint32 {
	switch internal {
	case gpu.RGBA8:
		return gl.UNSIGNED_BYTE
	case gpu.RGBA16F:
		return gl.HALF_FLOAT
	}
	return gl.FLOAT
}

// CreateTexture allocates an uninitialised render target image with nearest
// filtering.
func (d *Device) CreateTexture(internal, format gpu.Format, width, height int) gpu.Handle {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(internal), int32(width), int32(height), 0,
		uint32(format), pixelType(internal), nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return gpu.Handle(id)
}

func (d *Device) UploadTexture(width, height int, pixels []byte) gpu.Handle {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	var ptr unsafe.Pointer
	if len(pixels) > 0 {
		ptr = unsafe.Pointer(&pixels[0])
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return gpu.Handle(id)
}

func (d *Device) BindTexture(unit uint32, texture gpu.Handle) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
}

func (d *Device) DeleteTexture(texture gpu.Handle) {
	id := uint32(texture)
	gl.DeleteTextures(1, &id)
}

func (d *Device) CreateRenderbuffer(format gpu.Format, width, height int) gpu.Handle {
	var id uint32
	gl.GenRenderbuffers(1, &id)
	gl.BindRenderbuffer(gl.RENDERBUFFER, id)
	gl.RenderbufferStorage(gl.RENDERBUFFER, uint32(format), int32(width), int32(height))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	return gpu.Handle(id)
}

func (d *Device) DeleteRenderbuffer(rb gpu.Handle) {
	id := uint32(rb)
	gl.DeleteRenderbuffers(1, &id)
}

// ── Framebuffers ─────────────────────────────────────────────────────────────

func (d *Device) CreateFramebuffer() gpu.Handle {
	var id uint32
	gl.GenFramebuffers(1, &id)
	return gpu.Handle(id)
}

func (d *Device) FramebufferColor(fb gpu.Handle, index int, texture gpu.Handle) {
	d.withFramebuffer(fb, func() {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(index),
			gl.TEXTURE_2D, uint32(texture), 0)
	})
}

func (d *Device) FramebufferDepth(fb gpu.Handle, rb gpu.Handle, format gpu.Format) {
	attachment := uint32(gl.DEPTH_ATTACHMENT)
	if format == gpu.Depth24Stencil8 {
		attachment = gl.DEPTH_STENCIL_ATTACHMENT
	}
	d.withFramebuffer(fb, func() {
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, attachment, gl.RENDERBUFFER, uint32(rb))
	})
}

func (d *Device) DrawBuffers(fb gpu.Handle, count int) {
	if count == 0 {
		return
	}
	bufs := make([]uint32, count)
	for i := range bufs {
		bufs[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	d.withFramebuffer(fb, func() {
		gl.DrawBuffers(int32(count), &bufs[0])
	})
}

func (d *Device) FramebufferComplete(fb gpu.Handle) bool {
	var status uint32
	d.withFramebuffer(fb, func() {
		status = gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	})
	if status != gl.FRAMEBUFFER_COMPLETE {
		d.log.Error("framebuffer incomplete", zap.Uint32("fbo", uint32(fb)), zap.String("status", fmt.Sprintf("0x%X", status)))
		return false
	}
	return true
}

func (d *Device) BindFramebuffer(fb gpu.Handle) {
	d.bound = uint32(fb)
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.bound)
}

func (d *Device) DeleteFramebuffer(fb gpu.Handle) {
	id := uint32(fb)
	if d.bound == id {
		d.BindFramebuffer(gpu.DefaultFramebuffer)
	}
	gl.DeleteFramebuffers(1, &id)
}

func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (d *Device) Clear(mask gpu.BufferMask) { gl.Clear(uint32(mask)) }

func (d *Device) BlitFramebuffer(src, dst gpu.Handle, srcW, srcH, dstW, dstH int, mask gpu.BufferMask) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(src))
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(dst))
	gl.BlitFramebuffer(0, 0, int32(srcW), int32(srcH), 0, 0, int32(dstW), int32(dstH),
		uint32(mask), gl.NEAREST)
	d.BindFramebuffer(dst)
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) SetBlend(enabled bool) {
	if enabled {
		gl.Enable(gl.BLEND)
	} else {
		gl.Disable(gl.BLEND)
	}
}

func (d *Device) DrawArrays(mode gpu.Primitive, first, count int32) {
	gl.DrawArrays(uint32(mode), first, count)
}

// ── Debug annotations ────────────────────────────────────────────────────────

func (d *Device) PushDebugGroup(id uint32, message string) {
	gl.PushDebugGroup(gl.DEBUG_SOURCE_APPLICATION, id, int32(len(message)), cstr(message))
}

func (d *Device) PopDebugGroup() { gl.PopDebugGroup() }

func (d *Device) ObjectLabel(kind gpu.ObjectKind, h gpu.Handle, label string) {
	gl.ObjectLabel(uint32(kind), uint32(h), int32(len(label)), cstr(label))
}
