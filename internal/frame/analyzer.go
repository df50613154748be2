// Package frame measures frame time and brackets GPU work in named debug
// groups for external frame debuggers.
package frame

import (
	"time"

	"deferred-engine/internal/gpu"
)

// Window is the number of frames averaged by LastFrameTime.
const Window = 30

// Analyzer keeps a rolling history of frame durations. Slots that have not
// been written yet count as zero, so the first Window-1 averages read low.
type Analyzer struct {
	dev gpu.Device
	now func() time.Time

	start   time.Time
	history [Window]float64
	cursor  int
	frames  int
	group   uint32
	open    int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer returns an analyzer issuing debug groups on dev.
func NewAnalyzer(dev gpu.Device, opts ...Option) *Analyzer {
	a := &Analyzer{dev: dev, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StartFrame restarts the frame timer and the debug group counter.
func (a *Analyzer) StartFrame() {
	a.start = a.now()
	a.group = 0
}

// StartPass opens a debug group named title.
func (a *Analyzer) StartPass(title string) {
	a.dev.PushDebugGroup(a.group, title)
	a.group++
	a.open++
}

// EndPass closes the innermost debug group.
func (a *Analyzer) EndPass() {
	if a.open == 0 {
		return
	}
	a.dev.PopDebugGroup()
	a.open--
}

// EndFrame stops the timer, records the frame and returns its duration.
func (a *Analyzer) EndFrame() time.Duration {
	d := a.now().Sub(a.start)
	a.Record(d)
	return d
}

// Record pushes one frame duration into the history, evicting the oldest.
func (a *Analyzer) Record(d time.Duration) {
	a.history[a.cursor] = float64(d) / float64(time.Millisecond)
	a.cursor = (a.cursor + 1) % Window
	a.frames++
}

// LastFrameTime returns the mean of the last Window frame durations in
// milliseconds.
func (a *Analyzer) LastFrameTime() float64 {
	var sum float64
	for _, ms := range a.history {
		sum += ms
	}
	return sum / Window
}

// FPS converts LastFrameTime to frames per second.
func (a *Analyzer) FPS() float64 {
	ms := a.LastFrameTime()
	if ms <= 0 {
		return 0
	}
	return 1000 / ms
}

// Frames returns the number of frames recorded.
func (a *Analyzer) Frames() int { return a.frames }
