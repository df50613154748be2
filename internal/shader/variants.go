package shader

// Vertex layouts shared by programs and the code that fills their buffers.
var (
	// GeometryLayout is position(3) uv(2) color(4) normal(3).
	GeometryLayout = []int32{3, 2, 4, 3}
	// InterfaceLayout is position(2) uv(2).
	InterfaceLayout = []int32{2, 2}
)

// GeometrySpec fills the G-buffer from 3D meshes.
func GeometrySpec(src Source) Spec {
	return Spec{
		Name:     "geometry",
		Source:   src,
		Samplers: map[string]int32{"map_diffuse": 0},
		Uniforms: []string{"model", "view", "perspective"},
	}
}

// LightingSpec shades the full screen from the G-buffer and the light buffer.
func LightingSpec(src Source) Spec {
	return Spec{
		Name:   "lighting",
		Source: src,
		Samplers: map[string]int32{
			"gPosition":   0,
			"gNormal":     1,
			"gAlbedoSpec": 2,
		},
		Uniforms: []string{"cameraPosition"},
	}
}

// InterfaceSpec draws 2D panels and glyphs over the lit image.
func InterfaceSpec(src Source) Spec {
	return Spec{
		Name:     "interface",
		Source:   src,
		Samplers: map[string]int32{"elementTexture": 0},
		Uniforms: []string{"model", "depth", "perspective", "isFont"},
	}
}
