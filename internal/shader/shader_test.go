package shader

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"deferred-engine/internal/gpu"
	"deferred-engine/internal/gpu/gputest"
	"deferred-engine/internal/pass"
)

const unified = "void main() { /* vertex */ }\n" + Separator + "\nvoid main() { /* fragment */ }\n"

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestLayout(t *testing.T) {
	tests := []struct {
		name    string
		sizes   []int32
		stride  int32
		offsets []int32
	}{
		{"geometry", []int32{3, 2, 4, 3}, 48, []int32{0, 12, 20, 36}},
		{"permuted", []int32{4, 3, 3, 2}, 48, []int32{0, 16, 28, 40}},
		{"reversed", []int32{3, 4, 2, 3}, 48, []int32{0, 12, 28, 36}},
		{"interface", []int32{2, 2}, 16, []int32{0, 8}},
		{"empty", nil, 0, []int32{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stride, offsets := Layout(tt.sizes)
			if stride != tt.stride {
				t.Errorf("stride: expected %d, got %d", tt.stride, stride)
			}
			if len(offsets) != len(tt.offsets) {
				t.Fatalf("offsets: expected %v, got %v", tt.offsets, offsets)
			}
			for i := range offsets {
				if offsets[i] != tt.offsets[i] {
					t.Errorf("offsets[%d]: expected %d, got %d", i, tt.offsets[i], offsets[i])
				}
			}
		})
	}
}

func TestSection(t *testing.T) {
	vert, err := Section(unified, gpu.VertexStage)
	if err != nil || vert != "void main() { /* vertex */ }\n" {
		t.Errorf("vertex: got %q, %v", vert, err)
	}
	frag, err := Section(unified, gpu.FragmentStage)
	if err != nil || frag != "\nvoid main() { /* fragment */ }\n" {
		t.Errorf("fragment: got %q, %v", frag, err)
	}
	if _, err := Section("no separator here", gpu.FragmentStage); !errors.Is(err, ErrMissingSection) {
		t.Errorf("expected ErrMissingSection, got %v", err)
	}
}

func TestTryLoadIsIdempotentWithoutChange(t *testing.T) {
	dev := gputest.NewDevice()
	src := NewMemorySource("mem://test.glsl", unified, epoch)
	u := NewUnit(dev, src, gpu.VertexStage, nil)

	if !u.TryLoad() {
		t.Fatal("first TryLoad: expected change")
	}
	for i := 0; i < 5; i++ {
		if u.TryLoad() {
			t.Fatalf("TryLoad %d: expected no change", i+2)
		}
	}
	if n := dev.Shaders[u.Handle()].Compiles; n != 1 {
		t.Errorf("compiles: expected 1, got %d", n)
	}
	if src.Reads() != 1 {
		t.Errorf("reads: expected 1, got %d", src.Reads())
	}
}

func TestTryLoadRecompilesOnChange(t *testing.T) {
	dev := gputest.NewDevice()
	src := NewMemorySource("mem://test.glsl", unified, epoch)
	u := NewUnit(dev, src, gpu.FragmentStage, nil)
	u.TryLoad()

	src.Set("a"+Separator+"b", epoch.Add(time.Second))
	if !u.TryLoad() {
		t.Fatal("expected change after Set")
	}
	s := dev.Shaders[u.Handle()]
	if s.Compiles != 2 {
		t.Errorf("compiles: expected 2, got %d", s.Compiles)
	}
	if s.Source != "b" {
		t.Errorf("source: expected %q, got %q", "b", s.Source)
	}
}

func TestTryLoadLogsCompileDiagnostics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dev := gputest.NewDevice()
	dev.CompileLog = func(stage gpu.Stage, _ string) string {
		if stage == gpu.FragmentStage {
			return "0:1: error: syntax error"
		}
		return ""
	}
	src := NewMemorySource("mem://test.glsl", unified, epoch)

	NewUnit(dev, src, gpu.VertexStage, zap.New(core)).TryLoad()
	NewUnit(dev, src, gpu.FragmentStage, zap.New(core)).TryLoad()

	warnings := logs.FilterMessage("shader compile log").All()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 compile warning, got %d", len(warnings))
	}
	if warnings[0].Level != zapcore.WarnLevel {
		t.Errorf("level: expected warn, got %v", warnings[0].Level)
	}
}

func TestTryLoadMalformedSourceIsReportedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dev := gputest.NewDevice()
	src := NewMemorySource("mem://broken.glsl", "vertex only", epoch)
	u := NewUnit(dev, src, gpu.FragmentStage, zap.New(core))

	for i := 0; i < 3; i++ {
		if u.TryLoad() {
			t.Fatal("malformed source must not report a change")
		}
	}
	if n := logs.FilterMessage("shader source malformed").Len(); n != 1 {
		t.Errorf("expected 1 malformed warning, got %d", n)
	}
	if dev.Shaders[u.Handle()].Compiles != 0 {
		t.Error("malformed source must not be compiled")
	}
}

func newTestProgram(t *testing.T, dev *gputest.Device, src Source, log *zap.Logger) *Program {
	t.Helper()
	p, err := NewProgram(dev, LightingSpec(src), log)
	if err != nil {
		t.Fatalf("NewProgram: %v", err)
	}
	return p
}

func TestNewProgramLinksAndBindsSamplers(t *testing.T) {
	dev := gputest.NewDevice()
	p := newTestProgram(t, dev, NewMemorySource("mem://lighting.glsl", unified, epoch), nil)

	if p.Links() != 1 {
		t.Errorf("links: expected 1, got %d", p.Links())
	}
	for name, unit := range map[string]int32{"gPosition": 0, "gNormal": 1, "gAlbedoSpec": 2} {
		v, ok := dev.Uniform(p.Handle(), name)
		if !ok || v != unit {
			t.Errorf("%s: expected %d, got %v", name, unit, v)
		}
	}
	if dev.Labels[p.Handle()] != "lighting" {
		t.Errorf("label: expected lighting, got %q", dev.Labels[p.Handle()])
	}
}

func TestUseRelinksOnlyWhenSourceChanges(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dev := gputest.NewDevice()
	dev.LinkLog = func(gpu.Handle) string { return "warning: unused varying" }
	src := NewMemorySource("mem://lighting.glsl", unified, epoch)
	p := newTestProgram(t, dev, src, zap.New(core))

	for i := 0; i < 3; i++ {
		p.Use(pass.Describe(pass.Lighting))
	}
	if p.Links() != 1 {
		t.Fatalf("links after unchanged uses: expected 1, got %d", p.Links())
	}

	src.Set(unified+"// edit\n", epoch.Add(time.Minute))
	ctx := p.Use(pass.Describe(pass.Lighting))
	if p.Links() != 2 {
		t.Errorf("links after edit: expected 2, got %d", p.Links())
	}
	if ctx.Pass != pass.Lighting {
		t.Errorf("context pass: expected lighting, got %v", ctx.Pass)
	}
	// Samplers survive the relink.
	if v, _ := dev.Uniform(p.Handle(), "gAlbedoSpec"); v != int32(2) {
		t.Errorf("gAlbedoSpec after relink: expected 2, got %v", v)
	}
	if n := logs.FilterMessage("program link log").Len(); n != 2 {
		t.Errorf("link warnings: expected 2, got %d", n)
	}
	if dev.CurrentProgram != p.Handle() {
		t.Error("program not bound after Use")
	}
}

func TestFailedRelinkKeepsPreviousProgram(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dev := gputest.NewDevice()
	dev.LinkFails = func(sources []string) bool {
		for _, s := range sources {
			if strings.Contains(s, "broken") {
				return true
			}
		}
		return false
	}
	src := NewMemorySource("mem://lighting.glsl", unified, epoch)
	p := newTestProgram(t, dev, src, zap.New(core))
	good := p.Handle()

	src.Set(unified+"// broken\n", epoch.Add(time.Minute))
	p.Use(pass.Describe(pass.Lighting))
	if p.Handle() != good {
		t.Errorf("handle after failed link: expected %d, got %d", good, p.Handle())
	}
	if p.Links() != 1 {
		t.Errorf("links after failed link: expected 1, got %d", p.Links())
	}
	if dev.Programs[good].Deleted {
		t.Error("working program deleted by failed link")
	}
	if dev.CurrentProgram != good {
		t.Errorf("bound program: expected %d, got %d", good, dev.CurrentProgram)
	}
	if len(dev.Errors) != 0 {
		t.Errorf("gl errors: expected none, got %v", dev.Errors)
	}
	if v, _ := dev.Uniform(good, "gNormal"); v != int32(1) {
		t.Errorf("gNormal after failed link: expected 1, got %v", v)
	}
	for h, prog := range dev.Programs {
		if h != good && !prog.Deleted {
			t.Errorf("scratch program %d leaked", h)
		}
	}
	if n := logs.FilterMessage("program link failed, keeping previous binary").Len(); n != 1 {
		t.Errorf("link failure warnings: expected 1, got %d", n)
	}

	// Fixing the source swaps in a new program and retires the old one.
	src.Set(unified+"// fixed\n", epoch.Add(2*time.Minute))
	p.Use(pass.Describe(pass.Lighting))
	if p.Links() != 2 {
		t.Errorf("links after fix: expected 2, got %d", p.Links())
	}
	if p.Handle() == good {
		t.Error("handle unchanged after successful relink")
	}
	if !dev.Programs[good].Deleted {
		t.Error("previous program not deleted after relink")
	}
	if dev.CurrentProgram != p.Handle() {
		t.Errorf("bound program: expected %d, got %d", p.Handle(), dev.CurrentProgram)
	}
	if v, _ := dev.Uniform(p.Handle(), "gNormal"); v != int32(1) {
		t.Errorf("gNormal after relink: expected 1, got %v", v)
	}
	if len(dev.Errors) != 0 {
		t.Errorf("gl errors: expected none, got %v", dev.Errors)
	}
}

func TestNewProgramFailsWhenFirstLinkFails(t *testing.T) {
	dev := gputest.NewDevice()
	dev.LinkFails = func([]string) bool { return true }
	p, err := NewProgram(dev, LightingSpec(NewMemorySource("mem://lighting.glsl", unified, epoch)), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if p != nil {
		t.Error("expected nil program")
	}
	for h, prog := range dev.Programs {
		if !prog.Deleted {
			t.Errorf("program %d leaked", h)
		}
	}
}

func TestUseAppliesInterfaceDescriptor(t *testing.T) {
	dev := gputest.NewDevice()
	p, err := NewProgram(dev, InterfaceSpec(NewMemorySource("mem://ui.glsl", unified, epoch)), nil)
	if err != nil {
		t.Fatal(err)
	}

	p.Use(pass.Describe(pass.InterfaceText))
	if v, _ := dev.Uniform(p.Handle(), "depth"); v != pass.TextDepth {
		t.Errorf("depth: expected %v, got %v", pass.TextDepth, v)
	}
	if v, _ := dev.Uniform(p.Handle(), "isFont"); v != float32(1) {
		t.Errorf("isFont: expected 1, got %v", v)
	}

	p.Use(pass.Describe(pass.InterfaceBackground))
	if v, _ := dev.Uniform(p.Handle(), "depth"); v != pass.BackgroundDepth {
		t.Errorf("depth: expected %v, got %v", pass.BackgroundDepth, v)
	}
	if v, _ := dev.Uniform(p.Handle(), "isFont"); v != float32(0) {
		t.Errorf("isFont: expected 0, got %v", v)
	}
}

func TestSetVertexAttribPointers(t *testing.T) {
	dev := gputest.NewDevice()
	p, err := NewProgram(dev, GeometrySpec(NewMemorySource("mem://geo.glsl", unified, epoch)), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := p.SetVertexAttribPointers(GeometryLayout); err != nil {
		t.Fatalf("SetVertexAttribPointers: %v", err)
	}
	if p.Stride() != 48 {
		t.Errorf("stride: expected 48, got %d", p.Stride())
	}
	want := []gputest.Attrib{
		{Size: 3, Offset: 0},
		{Size: 2, Offset: 12},
		{Size: 4, Offset: 20},
		{Size: 3, Offset: 36},
	}
	for i, a := range want {
		if got := dev.Attribs[uint32(i)]; got != a {
			t.Errorf("attrib %d: expected %+v, got %+v", i, a, got)
		}
	}

	if err := p.SetVertexAttribPointers(InterfaceLayout); !errors.Is(err, ErrLayoutSet) {
		t.Errorf("second layout: expected ErrLayoutSet, got %v", err)
	}
}

type missingSource struct{}

func (missingSource) Path() string { return "missing.glsl" }

func (missingSource) ModTime() (time.Time, error) {
	return time.Time{}, errors.New("no such file")
}

func (missingSource) Read() (string, error) { return "", errors.New("no such file") }

func TestNewProgramFailsWithoutSource(t *testing.T) {
	dev := gputest.NewDevice()
	p, err := NewProgram(dev, GeometrySpec(missingSource{}), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if p != nil {
		t.Error("expected nil program")
	}
	for h, prog := range dev.Programs {
		if !prog.Deleted {
			t.Errorf("program %d leaked", h)
		}
	}
}

func TestShippedShadersSplit(t *testing.T) {
	for _, name := range []string{"geometry", "lighting", "interface"} {
		src := NewFileSource(filepath.Join("..", "..", "shaders", name+".glsl"))
		text, err := src.Read()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if n := strings.Count(text, Separator); n != 1 {
			t.Errorf("%s: expected one separator, got %d", name, n)
		}
		for _, stage := range []gpu.Stage{gpu.VertexStage, gpu.FragmentStage} {
			section, err := Section(text, stage)
			if err != nil {
				t.Fatalf("%s %v: %v", name, stage, err)
			}
			if !strings.Contains(section, "#version 430") {
				t.Errorf("%s %v: missing #version 430", name, stage)
			}
		}
	}
}

func TestSpecNamesMatchShippedShaders(t *testing.T) {
	for _, spec := range []Spec{
		GeometrySpec(NewFileSource(filepath.Join("..", "..", "shaders", "geometry.glsl"))),
		LightingSpec(NewFileSource(filepath.Join("..", "..", "shaders", "lighting.glsl"))),
		InterfaceSpec(NewFileSource(filepath.Join("..", "..", "shaders", "interface.glsl"))),
	} {
		text, err := spec.Source.Read()
		if err != nil {
			t.Fatalf("%s: %v", spec.Name, err)
		}
		names := append([]string(nil), spec.Uniforms...)
		for name := range spec.Samplers {
			names = append(names, name)
		}
		for _, name := range names {
			if !strings.Contains(text, " "+name+";") {
				t.Errorf("%s: uniform %s not declared in %s", spec.Name, name, spec.Source.Path())
			}
		}
	}
}
