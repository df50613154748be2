package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a viewer at Position looking along Target, which is an offset
// from the position rather than a point in the world.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	FOV      float32 // vertical, degrees
	Near     float32
	Far      float32
}

// NewCamera returns a camera at the origin looking down -Z.
func NewCamera(fov, near, far float32) *Camera {
	return &Camera{
		Target: mgl32.Vec3{0, 0, -1},
		FOV:    fov,
		Near:   near,
		Far:    far,
	}
}

// View returns the world-to-eye matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Target), mgl32.Vec3{0, 1, 0})
}

// Perspective returns the 3D projection for a surface with the given aspect
// ratio.
func (c *Camera) Perspective(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// Ortho returns the 2D projection mapping pixels to clip space, origin at
// the bottom left.
func (c *Camera) Ortho(width, height float32) mgl32.Mat4 {
	return mgl32.Ortho(0, width, 0, height, c.Near, c.Far)
}

func (c *Camera) Translate(delta mgl32.Vec3) {
	c.Position = c.Position.Add(delta)
}

// LookAt points the camera at a world position.
func (c *Camera) LookAt(point mgl32.Vec3) {
	if d := point.Sub(c.Position); d.Len() > 0 {
		c.Target = d.Normalize()
	}
}

// OrbitCamera circles a point at a fixed distance.
type OrbitCamera struct {
	Camera
	Center   mgl32.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
}

func NewOrbitCamera(center mgl32.Vec3, distance, fov, near, far float32) *OrbitCamera {
	c := &OrbitCamera{
		Camera:   *NewCamera(fov, near, far),
		Center:   center,
		Distance: distance,
		Pitch:    0.3,
	}
	c.UpdatePosition()
	return c
}

func (c *OrbitCamera) UpdatePosition() {
	if c.Pitch > 1.5 {
		c.Pitch = 1.5
	}
	if c.Pitch < -1.5 {
		c.Pitch = -1.5
	}

	cosPitch := float32(math.Cos(float64(c.Pitch)))
	sinPitch := float32(math.Sin(float64(c.Pitch)))
	cosYaw := float32(math.Cos(float64(c.Yaw)))
	sinYaw := float32(math.Sin(float64(c.Yaw)))

	offset := mgl32.Vec3{
		c.Distance * cosPitch * sinYaw,
		c.Distance * sinPitch,
		c.Distance * cosPitch * cosYaw,
	}
	c.Position = c.Center.Add(offset)
	c.LookAt(c.Center)
}

func (c *OrbitCamera) Orbit(deltaYaw, deltaPitch float32) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch
	c.UpdatePosition()
}

func (c *OrbitCamera) Zoom(delta float32) {
	c.Distance += delta
	if c.Distance < 0.1 {
		c.Distance = 0.1
	}
	c.UpdatePosition()
}
