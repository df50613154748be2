package shader

import (
	"time"

	"go.uber.org/zap"

	"deferred-engine/internal/gpu"
)

// Unit is one compiled stage of a program. It remembers the modification
// time of the source it last compiled and does no GPU work while that time
// stays put.
type Unit struct {
	dev     gpu.Device
	src     Source
	stage   gpu.Stage
	handle  gpu.Handle
	modTime time.Time
	seen    bool
	loaded  bool
	log     *zap.Logger
}

// NewUnit creates the shader object for stage. Nothing is compiled until the
// first TryLoad.
func NewUnit(dev gpu.Device, src Source, stage gpu.Stage, log *zap.Logger) *Unit {
	if log == nil {
		log = zap.NewNop()
	}
	return &Unit{
		dev:    dev,
		src:    src,
		stage:  stage,
		handle: dev.CreateShader(stage),
		log:    log.With(zap.String("path", src.Path()), zap.Stringer("stage", stage)),
	}
}

// Handle returns the GPU shader object.
func (u *Unit) Handle() gpu.Handle { return u.handle }

// Loaded reports whether the unit has compiled at least once.
func (u *Unit) Loaded() bool { return u.loaded }

// TryLoad recompiles the unit if its source changed since the last compile
// and reports whether it did. Compiler diagnostics are logged, never
// returned: a broken edit still counts as a change so the program relinks.
func (u *Unit) TryLoad() bool {
	mod, err := u.src.ModTime()
	if err != nil {
		if !u.loaded {
			u.log.Warn("shader source unavailable", zap.Error(err))
		}
		return false
	}
	if u.seen && mod.Equal(u.modTime) {
		return false
	}

	text, err := u.src.Read()
	if err != nil {
		u.log.Warn("shader source unreadable", zap.Error(err))
		return false
	}
	// Remember the timestamp even if the document is malformed so a bad
	// save is reported once, not every frame.
	u.modTime = mod
	u.seen = true
	section, err := Section(text, u.stage)
	if err != nil {
		u.log.Warn("shader source malformed", zap.Error(err))
		return false
	}

	if msg := u.dev.CompileShader(u.handle, section); msg != "" {
		u.log.Warn("shader compile log", zap.String("log", msg))
	}
	u.loaded = true
	u.log.Debug("shader compiled", zap.Time("modified", mod))
	return true
}

// Destroy deletes the shader object.
func (u *Unit) Destroy() {
	if u.handle != 0 {
		u.dev.DeleteShader(u.handle)
		u.handle = 0
	}
}
