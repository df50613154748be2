package frame

import (
	"testing"
	"time"

	"deferred-engine/internal/gpu/gputest"
)

func TestRollingAverageOverWindow(t *testing.T) {
	a := NewAnalyzer(gputest.NewDevice())

	var sum float64
	for i := 0; i < Window; i++ {
		ms := float64(i + 1)
		sum += ms
		a.Record(time.Duration(ms * float64(time.Millisecond)))
	}
	if got, want := a.LastFrameTime(), sum/Window; got != want {
		t.Fatalf("after %d frames: expected %v, got %v", Window, want, got)
	}

	// The 31st sample evicts the first (1 ms).
	a.Record(100 * time.Millisecond)
	want := (sum - 1 + 100) / Window
	if got := a.LastFrameTime(); got != want {
		t.Errorf("after %d frames: expected %v, got %v", Window+1, want, got)
	}
}

func TestEarlyAverageCountsEmptySlots(t *testing.T) {
	a := NewAnalyzer(gputest.NewDevice())
	a.Record(30 * time.Millisecond)
	if got := a.LastFrameTime(); got != 1 {
		t.Errorf("expected 30/30 = 1, got %v", got)
	}
	if got := a.FPS(); got != 1000 {
		t.Errorf("FPS: expected 1000, got %v", got)
	}
}

func TestFPSWithoutFrames(t *testing.T) {
	if got := NewAnalyzer(gputest.NewDevice()).FPS(); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestEndFrameUsesClock(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	a := NewAnalyzer(gputest.NewDevice(), WithClock(clock))

	a.StartFrame()
	now = now.Add(15 * time.Millisecond)
	if d := a.EndFrame(); d != 15*time.Millisecond {
		t.Errorf("duration: expected 15ms, got %v", d)
	}
	if a.Frames() != 1 {
		t.Errorf("frames: expected 1, got %d", a.Frames())
	}
	if got := a.LastFrameTime(); got != 0.5 {
		t.Errorf("average: expected 0.5, got %v", got)
	}
}

func TestDebugGroupsResetPerFrame(t *testing.T) {
	dev := gputest.NewDevice()
	a := NewAnalyzer(dev)

	for frame := 0; frame < 2; frame++ {
		a.StartFrame()
		for _, title := range []string{"G-Buffer", "Lighting", "Interface"} {
			a.StartPass(title)
			a.EndPass()
		}
		a.EndFrame()
	}

	if len(dev.Groups) != 6 {
		t.Fatalf("groups: expected 6, got %d", len(dev.Groups))
	}
	for i, g := range dev.Groups {
		if want := uint32(i % 3); g.ID != want {
			t.Errorf("group %d (%s): expected id %d, got %d", i, g.Message, want, g.ID)
		}
	}
	if dev.GroupDepth != 0 {
		t.Errorf("unbalanced groups: depth %d", dev.GroupDepth)
	}
}

func TestEndPassWithoutStart(t *testing.T) {
	dev := gputest.NewDevice()
	NewAnalyzer(dev).EndPass()
	if dev.GroupDepth != 0 {
		t.Errorf("expected no pop, depth %d", dev.GroupDepth)
	}
}
