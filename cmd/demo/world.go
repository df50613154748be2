package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/scene"
)

const sunName = "Sun"

// demoWorld builds the default scene: a ground plane, a ring of cubes around
// a sphere, the sun and two coloured point lights.
func demoWorld() *scene.Scene {
	s := scene.NewScene()

	ground := scene.NewNode("Ground")
	ground.Mesh = scene.CreatePlane(40, 40, 8)
	ground.Mesh.Texture = scene.NewSolidTexture("ground", 158, 148, 133, 255)
	s.AddNode(ground)

	colors := [][4]uint8{
		{178, 110, 77, 255},
		{90, 140, 200, 255},
		{120, 180, 90, 255},
		{220, 200, 90, 255},
		{180, 90, 160, 255},
		{200, 200, 200, 255},
	}
	for i, c := range colors {
		angle := float64(i) * 2 * math.Pi / float64(len(colors))
		cube := scene.NewNode("Cube")
		cube.Mesh = scene.CreateCube(1.2)
		cube.Mesh.Texture = scene.NewSolidTexture("cube", c[0], c[1], c[2], c[3])
		cube.Position = mgl32.Vec3{6 * float32(math.Cos(angle)), 0.6, 6 * float32(math.Sin(angle))}
		cube.Rotate(mgl32.Vec3{0, 1, 0}, float32(angle))
		s.AddNode(cube)
	}

	sphere := scene.NewNode("Sphere")
	sphere.Mesh = scene.CreateSphere(1.5, 48, 24)
	sphere.Position = mgl32.Vec3{0, 1.5, 0}
	s.AddNode(sphere)

	s.AddNode(scene.NewLightNode(sunName, mgl32.Vec3{0, 30, 10}, mgl32.Vec3{1, 0.98, 0.92}, 900))
	s.AddNode(scene.NewLightNode("Warm", mgl32.Vec3{-4, 2, 3}, mgl32.Vec3{1, 0.6, 0.3}, 12))
	s.AddNode(scene.NewLightNode("Cool", mgl32.Vec3{4, 2, -3}, mgl32.Vec3{0.3, 0.5, 1}, 12))
	return s
}
