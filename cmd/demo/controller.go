package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/core"
	"deferred-engine/scene"
)

// input is the part of the window the controller polls.
type input interface {
	IsKeyPressed(key int) bool
	IsMouseButtonPressed(button int) bool
	GetCursorPos() (float64, float64)
}

// CameraController flies the camera with WASD, Q/E for down/up and
// right-mouse drag to look around. Shift doubles the speed.
type CameraController struct {
	moveSpeed  float32
	lookSpeed  float32
	lastMouseX float64
	lastMouseY float64
	firstMouse bool
	yaw        float32 // degrees, -90 looks down -Z
	pitch      float32
}

func NewCameraController() *CameraController {
	return &CameraController{
		moveSpeed:  6.0,
		lookSpeed:  0.15,
		firstMouse: true,
		yaw:        -90.0,
	}
}

// Face points the controller along the camera's current target so the first
// mouse drag does not snap the view.
func (cc *CameraController) Face(camera *scene.Camera) {
	t := camera.Target
	if t.Len() == 0 {
		return
	}
	t = t.Normalize()
	cc.pitch = mgl32.RadToDeg(float32(math.Asin(float64(t.Y()))))
	cc.yaw = mgl32.RadToDeg(float32(math.Atan2(float64(t.Z()), float64(t.X()))))
}

func (cc *CameraController) Update(in input, camera *scene.Camera, deltaTime float32) {
	// Cap deltaTime so a hitch does not teleport the camera.
	if deltaTime > 0.05 {
		deltaTime = 0.05
	}

	if in.IsMouseButtonPressed(core.MouseButtonRight) {
		mouseX, mouseY := in.GetCursorPos()
		if cc.firstMouse {
			cc.lastMouseX = mouseX
			cc.lastMouseY = mouseY
			cc.firstMouse = false
		}
		cc.yaw += float32(mouseX-cc.lastMouseX) * cc.lookSpeed
		cc.pitch += float32(cc.lastMouseY-mouseY) * cc.lookSpeed
		cc.pitch = mgl32.Clamp(cc.pitch, -88, 88)
		cc.lastMouseX = mouseX
		cc.lastMouseY = mouseY
	} else {
		cc.firstMouse = true
	}

	forward := cc.forward()
	// Strafing ignores pitch so movement stays level.
	level := mgl32.Vec3{forward.X(), 0, forward.Z()}
	if level.Len() > 0 {
		level = level.Normalize()
	}
	right := level.Cross(mgl32.Vec3{0, 1, 0})

	speed := cc.moveSpeed * deltaTime
	if in.IsKeyPressed(core.KeyLeftShift) {
		speed *= 2
	}
	var move mgl32.Vec3
	if in.IsKeyPressed(core.KeyW) {
		move = move.Add(level)
	}
	if in.IsKeyPressed(core.KeyS) {
		move = move.Sub(level)
	}
	if in.IsKeyPressed(core.KeyD) {
		move = move.Add(right)
	}
	if in.IsKeyPressed(core.KeyA) {
		move = move.Sub(right)
	}
	if in.IsKeyPressed(core.KeyE) {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if in.IsKeyPressed(core.KeyQ) {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.Len() > 0 {
		camera.Translate(move.Normalize().Mul(speed))
	}
	camera.Target = forward
}

func (cc *CameraController) forward() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(cc.yaw))
	pitch := float64(mgl32.DegToRad(cc.pitch))
	return mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}.Normalize()
}
