package shader

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/internal/gpu"
)

// UniformCache maps uniform names to locations for one program. Locations
// are only valid for the link that produced them; call Clear after relinking.
type UniformCache struct {
	dev       gpu.Device
	program   gpu.Handle
	locations map[string]int32
}

// NewUniformCache returns an empty cache for program.
func NewUniformCache(dev gpu.Device, program gpu.Handle) *UniformCache {
	return &UniformCache{
		dev:       dev,
		program:   program,
		locations: make(map[string]int32),
	}
}

// Location returns the cached location of name, resolving it on first use.
// Unknown or optimised-out uniforms resolve to -1.
func (uc *UniformCache) Location(name string) int32 {
	if loc, ok := uc.locations[name]; ok {
		return loc
	}
	loc := uc.dev.UniformLocation(uc.program, name)
	uc.locations[name] = loc
	return loc
}

// Resolve looks up every name now.
func (uc *UniformCache) Resolve(names ...string) {
	for _, name := range names {
		uc.locations[name] = uc.dev.UniformLocation(uc.program, name)
	}
}

// Len returns the number of cached locations.
func (uc *UniformCache) Len() int { return len(uc.locations) }

// Clear forgets every cached location.
func (uc *UniformCache) Clear() {
	uc.locations = make(map[string]int32)
}

func (uc *UniformCache) SetMat4(name string, m mgl32.Mat4) {
	if loc := uc.Location(name); loc != -1 {
		uc.dev.UniformMatrix4(loc, m)
	}
}

func (uc *UniformCache) SetVec3(name string, v mgl32.Vec3) {
	if loc := uc.Location(name); loc != -1 {
		uc.dev.Uniform3f(loc, v[0], v[1], v[2])
	}
}

func (uc *UniformCache) SetInt(name string, v int32) {
	if loc := uc.Location(name); loc != -1 {
		uc.dev.Uniform1i(loc, v)
	}
}

func (uc *UniformCache) SetFloat(name string, v float32) {
	if loc := uc.Location(name); loc != -1 {
		uc.dev.Uniform1f(loc, v)
	}
}
