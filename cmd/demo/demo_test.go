package main

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"deferred-engine/core"
	"deferred-engine/internal/pipeline"
	"deferred-engine/scene"
)

type fakeInput struct {
	keys   map[int]bool
	right  bool
	cursor [2]float64
}

func (f *fakeInput) IsKeyPressed(key int) bool { return f.keys[key] }
func (f *fakeInput) IsMouseButtonPressed(button int) bool {
	return button == core.MouseButtonRight && f.right
}
func (f *fakeInput) GetCursorPos() (float64, float64) { return f.cursor[0], f.cursor[1] }

func TestControllerMovesForward(t *testing.T) {
	cam := scene.NewCamera(90, 0.1, 100)
	cc := NewCameraController()
	cc.Face(cam)

	in := &fakeInput{keys: map[int]bool{core.KeyW: true}}
	cc.Update(in, cam, 0.5)

	// Delta is capped at 0.05s, speed 6.
	want := mgl32.Vec3{0, 0, -0.3}
	if !cam.Position.ApproxEqualThreshold(want, 1e-4) {
		t.Errorf("Position: expected %v, got %v", want, cam.Position)
	}
	if !cam.Target.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-4) {
		t.Errorf("Target: expected looking down -Z, got %v", cam.Target)
	}
}

func TestControllerStrafeAndVertical(t *testing.T) {
	cam := scene.NewCamera(90, 0.1, 100)
	cc := NewCameraController()

	cc.Update(&fakeInput{keys: map[int]bool{core.KeyD: true}}, cam, 0.01)
	if cam.Position.X() <= 0 {
		t.Errorf("strafe right: expected +X, got %v", cam.Position)
	}
	cam.Position = mgl32.Vec3{}
	cc.Update(&fakeInput{keys: map[int]bool{core.KeyE: true, core.KeyLeftShift: true}}, cam, 0.01)
	if math.Abs(float64(cam.Position.Y()-0.12)) > 1e-5 {
		t.Errorf("up with shift: expected 0.12, got %v", cam.Position.Y())
	}
}

func TestControllerMouseLook(t *testing.T) {
	cam := scene.NewCamera(90, 0.1, 100)
	cc := NewCameraController()
	in := &fakeInput{keys: map[int]bool{}, right: true, cursor: [2]float64{100, 100}}

	cc.Update(in, cam, 0.01)
	if !cam.Target.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-4) {
		t.Fatalf("first drag frame should not move the view, got %v", cam.Target)
	}
	// 600px up at 0.15 deg/px would be 90 degrees, clamped to 88.
	in.cursor = [2]float64{100, -500}
	cc.Update(in, cam, 0.01)
	if cc.pitch != 88 {
		t.Errorf("pitch: expected 88, got %v", cc.pitch)
	}
	if cam.Target.Y() < 0.99 {
		t.Errorf("Target: expected nearly straight up, got %v", cam.Target)
	}
}

func TestFaceMatchesTarget(t *testing.T) {
	cam := scene.NewCamera(90, 0.1, 100)
	cam.Target = mgl32.Vec3{1, 0, 0}
	cc := NewCameraController()
	cc.Face(cam)
	if !cc.forward().ApproxEqualThreshold(cam.Target, 1e-4) {
		t.Errorf("forward: expected %v, got %v", cam.Target, cc.forward())
	}
}

func TestDayNightWraps(t *testing.T) {
	dn := NewDayNight()
	dn.Update(dn.Speed * 1.25)
	if math.Abs(float64(dn.Time-0.25)) > 1e-4 {
		t.Errorf("Time: expected 0.25, got %v", dn.Time)
	}
	dn.Active = false
	dn.Update(10)
	if math.Abs(float64(dn.Time-0.25)) > 1e-4 {
		t.Errorf("inactive cycle should not advance, got %v", dn.Time)
	}
}

func TestSampleSunKeys(t *testing.T) {
	for _, k := range sunKeys {
		c, s := sampleSun(k.t)
		if !c.ApproxEqual(k.color) || s != k.strength {
			t.Errorf("t=%v: expected %v/%v, got %v/%v", k.t, k.color, k.strength, c, s)
		}
	}
	// Between sunrise and noon the strength climbs.
	_, s := sampleSun(0.9)
	if s <= 500 || s >= 900 {
		t.Errorf("t=0.9: expected strength between 500 and 900, got %v", s)
	}
}

func TestDayNightApplyMovesSun(t *testing.T) {
	sun := scene.NewLightNode(sunName, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, 1)
	dn := NewDayNight()
	dn.Apply(sun)

	if sun.Position.Y() <= 0 {
		t.Errorf("noon sun should be overhead, got %v", sun.Position)
	}
	if math.Abs(float64(sun.Position.Len()-dn.Radius)) > 1e-3 {
		t.Errorf("sun distance: expected %v, got %v", dn.Radius, sun.Position.Len())
	}
	if sun.Light.Strength != 900 {
		t.Errorf("Strength: expected 900, got %v", sun.Light.Strength)
	}
	if got := sun.Lights()[0].Position; !got.ApproxEqualThreshold(sun.Position, 1e-4) {
		t.Errorf("light position: expected %v, got %v", sun.Position, got)
	}

	dn.Apply(nil) // no sun in the scene
}

func TestHUDBar(t *testing.T) {
	h := NewFrameHUD()
	h.Update(pipeline.FrameStats{AverageMs: hudBudgetMs / 2})
	if got := h.bar.Panel.Rect[2]; math.Abs(float64(got-hudWidth/2)) > 1e-3 {
		t.Errorf("bar width: expected %v, got %v", hudWidth/2, got)
	}
	h.Update(pipeline.FrameStats{AverageMs: 1000})
	if got := h.bar.Panel.Rect[2]; got != hudWidth {
		t.Errorf("bar width: expected full %v, got %v", hudWidth, got)
	}
	if len(h.Node().Children) != 3 {
		t.Errorf("children: expected 3, got %d", len(h.Node().Children))
	}
}

func TestDemoWorld(t *testing.T) {
	s := demoWorld()
	if s.Root.Find(sunName) == nil {
		t.Fatal("demo world has no sun")
	}
	if n := len(s.Lights()); n != 3 {
		t.Errorf("lights: expected 3, got %d", n)
	}
}

type syncBuffer struct {
	bytes.Buffer
	syncs int
}

func (b *syncBuffer) Sync() error {
	b.syncs++
	return nil
}

func TestExitCodeSyncsLog(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{
		{nil, 0},
		{errors.New("no GL context"), 1},
	} {
		out := &syncBuffer{}
		log := zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), out, zapcore.DebugLevel))

		if code := exitCode(log, tc.err); code != tc.code {
			t.Errorf("exit code for %v: expected %d, got %d", tc.err, tc.code, code)
		}
		if out.syncs != 1 {
			t.Errorf("syncs for %v: expected 1, got %d", tc.err, out.syncs)
		}
		logged := strings.Contains(out.String(), "no GL context")
		if logged != (tc.err != nil) {
			t.Errorf("error logged for %v: got %q", tc.err, out.String())
		}
	}
}
