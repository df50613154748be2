// Command demo renders a scene through the deferred pipeline in a window.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"deferred-engine/core"
	"deferred-engine/internal/config"
	"deferred-engine/internal/logger"
	"deferred-engine/internal/opengl"
	"deferred-engine/internal/pipeline"
	"deferred-engine/scene"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	scenePath := flag.String("scene", "", "YAML scene description, overrides scene.file")
	modelPath := flag.String("model", "", "glTF model added to the scene, overrides scene.model")
	logLevel := flag.String("log-level", "", "log level, overrides log.level")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *scenePath != "" {
		cfg.Scene.File = *scenePath
	}
	if *modelPath != "" {
		cfg.Scene.Model = *modelPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode reports err and returns the process status. The logger is synced
// here because os.Exit skips deferred calls.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("demo failed", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg config.Config, log *zap.Logger) error {
	window, err := core.NewWindow(core.WindowConfig{
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		Title:     cfg.Window.Title,
		Resizable: cfg.Window.Resizable,
		VSync:     cfg.Window.VSync,
		Debug:     cfg.Renderer.Debug,
	}, log)
	if err != nil {
		return err
	}
	defer window.Destroy()

	dev, err := opengl.New(log, cfg.Renderer.Debug)
	if err != nil {
		return err
	}

	r, err := pipeline.New(dev, window, cfg, log)
	if err != nil {
		return err
	}
	defer r.Destroy()
	window.OnResize(r.Resize)

	s, err := loadScene(cfg, log)
	if err != nil {
		return err
	}
	hud := NewFrameHUD()
	s.AddOverlay(hud.Node())
	s.Upload(dev)
	defer s.Destroy(dev)

	controller := NewCameraController()
	controller.Face(r.Camera())
	dayNight := NewDayNight()
	sun := s.Root.Find(sunName)
	nWasDown := false

	log.Info("entering render loop",
		zap.Int("lights", len(s.Lights())),
		zap.Bool("day_night", sun != nil))

	lastTime := time.Now()
	lastTitle := lastTime
	for !window.ShouldClose() {
		now := time.Now()
		deltaTime := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if window.IsKeyPressed(core.KeyEscape) {
			window.Close()
		}
		nDown := window.IsKeyPressed(core.KeyN)
		if nDown && !nWasDown {
			dayNight.Active = !dayNight.Active
			log.Info("day/night cycle", zap.Bool("active", dayNight.Active))
		}
		nWasDown = nDown

		controller.Update(window, r.Camera(), deltaTime)
		dayNight.Update(deltaTime)
		dayNight.Apply(sun)

		stats := r.RenderFrame(s)
		hud.Update(stats)

		if now.Sub(lastTitle) >= 250*time.Millisecond {
			window.SetTitle(stats.Title(cfg.Window.Title))
			lastTitle = now
		}
		window.PollEvents()
	}

	log.Info("shutting down", zap.Int("frames", r.Analyzer().Frames()))
	return nil
}

// loadScene builds the scene from the configured description, or the
// built-in demo, and adds the optional glTF model.
func loadScene(cfg config.Config, log *zap.Logger) (*scene.Scene, error) {
	var s *scene.Scene
	if cfg.Scene.File != "" {
		desc, err := scene.LoadDescription(cfg.Scene.File)
		if err != nil {
			return nil, err
		}
		s, err = desc.Build(filepath.Dir(cfg.Scene.File), log)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", cfg.Scene.File, err)
		}
		log.Info("scene loaded", zap.String("file", cfg.Scene.File))
	} else {
		s = demoWorld()
	}

	if cfg.Scene.Model != "" {
		model, err := scene.ReadGLTF(cfg.Scene.Model, log)
		if err != nil {
			return nil, err
		}
		s.AddNode(model)
		log.Info("model loaded", zap.String("file", cfg.Scene.Model))
	}
	return s, nil
}
