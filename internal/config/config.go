// Package config loads the engine's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the whole engine configuration. Zero-valued fields in a file
// keep their defaults.
type Config struct {
	Window   Window   `yaml:"window"`
	Shaders  Shaders  `yaml:"shaders"`
	Camera   Camera   `yaml:"camera"`
	Renderer Renderer `yaml:"renderer"`
	Log      Log      `yaml:"log"`
	Scene    Scene    `yaml:"scene"`
}

type Window struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Title     string `yaml:"title"`
	VSync     bool   `yaml:"vsync"`
	Resizable bool   `yaml:"resizable"`
}

// Shaders holds the paths of the unified shader documents.
type Shaders struct {
	Geometry  string `yaml:"geometry"`
	Lighting  string `yaml:"lighting"`
	Interface string `yaml:"interface"`
}

// Camera places the viewer. Target is an offset from Position, not a point.
type Camera struct {
	Position [3]float32 `yaml:"position"`
	Target   [3]float32 `yaml:"target"`
	FOV      float32    `yaml:"fov"`
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
}

type Renderer struct {
	// ResizeTargets reallocates the G-buffer when the window size changes.
	ResizeTargets bool       `yaml:"resize_targets"`
	Debug         bool       `yaml:"gl_debug"`
	ClearColor    [4]float32 `yaml:"clear_color"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Scene struct {
	// File is a YAML scene description. Empty uses the built-in demo scene.
	File string `yaml:"file"`
	// Model is an optional glTF file added to the 3D tree.
	Model string `yaml:"model"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Window: Window{
			Width:     1280,
			Height:    720,
			Title:     "Deferred Engine",
			VSync:     true,
			Resizable: true,
		},
		Shaders: Shaders{
			Geometry:  "shaders/geometry.glsl",
			Lighting:  "shaders/lighting.glsl",
			Interface: "shaders/interface.glsl",
		},
		Camera: Camera{
			Position: [3]float32{0, 1, 3},
			Target:   [3]float32{0, 0, -1},
			FOV:      90,
			Near:     0.01,
			Far:      1e6,
		},
		Renderer: Renderer{
			ResizeTargets: true,
			Debug:         true,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the YAML file at path over Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	for name, path := range map[string]string{
		"geometry":  c.Shaders.Geometry,
		"lighting":  c.Shaders.Lighting,
		"interface": c.Shaders.Interface,
	} {
		if path == "" {
			errs = append(errs, fmt.Errorf("shaders.%s is empty", name))
		}
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera near/far %v/%v: need 0 < near < far", c.Camera.Near, c.Camera.Far))
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera fov %v must be in (0, 180)", c.Camera.FOV))
	}
	return errors.Join(errs...)
}
