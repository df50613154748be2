package main

import (
	"deferred-engine/internal/pass"
	"deferred-engine/internal/pipeline"
	"deferred-engine/scene"
)

const (
	hudX      = 10
	hudY      = 10
	hudWidth  = 200
	hudHeight = 14
	// hudBudgetMs is the frame time that fills the bar.
	hudBudgetMs = 33.3
)

// FrameHUD draws the rolling frame time as a bar in the overlay, one panel
// per interface layer.
type FrameHUD struct {
	root   *scene.Node
	bar    *scene.Node
	marker *scene.Node
}

func NewFrameHUD() *FrameHUD {
	h := &FrameHUD{root: scene.NewNode("HUD")}

	back := scene.NewPanelNode("HUD: background", pass.InterfaceBackground,
		hudX, hudY, hudWidth, hudHeight, scene.NewSolidTexture("hud_back", 20, 20, 28, 200))
	h.bar = scene.NewPanelNode("HUD: frame time", pass.InterfaceForeground,
		hudX, hudY, 0, hudHeight, scene.NewSolidTexture("hud_bar", 90, 200, 120, 255))
	// 60 Hz line, drawn in the text layer so it sits above the bar.
	h.marker = scene.NewPanelNode("HUD: 60Hz", pass.InterfaceText,
		hudX+hudWidth*(1000.0/60.0)/hudBudgetMs, hudY-2, 2, hudHeight+4,
		scene.NewSolidTexture("hud_marker", 255, 255, 255, 255))

	h.root.AddChild(back)
	h.root.AddChild(h.bar)
	h.root.AddChild(h.marker)
	return h
}

func (h *FrameHUD) Node() *scene.Node { return h.root }

// Update sizes the bar to the average frame time.
func (h *FrameHUD) Update(stats pipeline.FrameStats) {
	fill := float32(stats.AverageMs / hudBudgetMs)
	if fill > 1 {
		fill = 1
	}
	if fill < 0 {
		fill = 0
	}
	h.bar.Panel.Rect[2] = hudWidth * fill
}
