package pass

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/internal/gpu"
	"deferred-engine/internal/gpu/gputest"
)

func TestDescribeInterfacePasses(t *testing.T) {
	tests := []struct {
		pass   Pass
		depth  float32
		isFont float32
	}{
		{InterfaceBackground, 0.999999, 0},
		{InterfaceForeground, 0.2, 0},
		{InterfaceText, 0.1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.pass.String(), func(t *testing.T) {
			d := Describe(tt.pass)
			if d.Pass != tt.pass {
				t.Errorf("Pass: expected %v, got %v", tt.pass, d.Pass)
			}
			if v, ok := d.Lookup("depth"); !ok || v != tt.depth {
				t.Errorf("depth: expected %v, got %v (present=%v)", tt.depth, v, ok)
			}
			if v, ok := d.Lookup("isFont"); !ok || v != tt.isFont {
				t.Errorf("isFont: expected %v, got %v (present=%v)", tt.isFont, v, ok)
			}
		})
	}
}

func TestDescribeWorldPassesHaveNoFixedUniforms(t *testing.T) {
	for _, p := range []Pass{Geometry, Lighting} {
		if d := Describe(p); len(d.Fixed) != 0 {
			t.Errorf("%v: expected no fixed uniforms, got %v", p, d.Fixed)
		}
	}
}

func TestInterfaceOrder(t *testing.T) {
	want := []Pass{InterfaceBackground, InterfaceForeground, InterfaceText}
	for i, p := range Interface {
		if p != want[i] {
			t.Errorf("Interface[%d]: expected %v, got %v", i, want[i], p)
		}
		if !p.IsInterface() {
			t.Errorf("%v: expected IsInterface", p)
		}
	}
	if Geometry.IsInterface() || Lighting.IsInterface() {
		t.Error("world passes must not report IsInterface")
	}
}

type nopUniforms struct{}

func (nopUniforms) SetMat4(string, mgl32.Mat4) {}
func (nopUniforms) SetVec3(string, mgl32.Vec3) {}
func (nopUniforms) SetInt(string, int32)       {}
func (nopUniforms) SetFloat(string, float32)   {}

func TestContextCountsDraws(t *testing.T) {
	dev := gputest.NewDevice()
	ctx := NewContext(Geometry, dev, nopUniforms{})
	ctx.DrawArrays(gpu.Triangles, 0, 3)
	ctx.DrawArrays(gpu.Triangles, 0, 6)

	if ctx.Draws() != 2 {
		t.Errorf("Draws: expected 2, got %d", ctx.Draws())
	}
	if len(dev.Draws) != 2 || dev.Draws[1].Count != 6 {
		t.Errorf("device draws: got %+v", dev.Draws)
	}
}
