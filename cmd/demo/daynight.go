package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/scene"
)

// sunKey is the sun's colour and strength at one time of day.
type sunKey struct {
	t        float32 // normalised time 0..1
	color    mgl32.Vec3
	strength float32
}

// sunKeys are ordered by t and wrap (0 == 1).
var sunKeys = []sunKey{
	{t: 0.00, color: mgl32.Vec3{1.00, 0.98, 0.92}, strength: 900}, // noon
	{t: 0.22, color: mgl32.Vec3{1.00, 0.65, 0.25}, strength: 650}, // golden hour
	{t: 0.30, color: mgl32.Vec3{0.70, 0.40, 0.55}, strength: 180}, // dusk
	{t: 0.50, color: mgl32.Vec3{0.40, 0.45, 0.65}, strength: 90},  // moonlight
	{t: 0.70, color: mgl32.Vec3{0.75, 0.42, 0.60}, strength: 150}, // pre-dawn
	{t: 0.78, color: mgl32.Vec3{1.00, 0.60, 0.28}, strength: 500}, // sunrise
}

// DayNight swings a sun light around the scene.
type DayNight struct {
	Time   float32 // 0..1: 0=noon, 0.25=sunset, 0.5=midnight, 0.75=sunrise
	Speed  float32 // full-cycle duration in seconds
	Radius float32 // distance of the sun from the origin
	Active bool
}

func NewDayNight() *DayNight {
	return &DayNight{
		Speed:  120.0,
		Radius: 30.0,
		Active: true,
	}
}

func (dn *DayNight) Update(dt float32) {
	if !dn.Active || dn.Speed <= 0 {
		return
	}
	dn.Time += dt / dn.Speed
	for dn.Time >= 1.0 {
		dn.Time -= 1.0
	}
}

// sampleSun interpolates the keys at t.
func sampleSun(t float32) (mgl32.Vec3, float32) {
	n := len(sunKeys)
	for i := 0; i < n; i++ {
		a := sunKeys[i]
		b := sunKeys[(i+1)%n]
		tb := b.t
		if i == n-1 {
			tb = 1.0
		}
		local := t
		if i == n-1 && t < sunKeys[0].t {
			local = t + 1.0
		}
		if local >= a.t && local < tb {
			f := (local - a.t) / (tb - a.t)
			return a.color.Add(b.color.Sub(a.color).Mul(f)), a.strength + (b.strength-a.strength)*f
		}
	}
	return sunKeys[0].color, sunKeys[0].strength
}

// Apply moves sun along its arc and sets its colour for the current time.
func (dn *DayNight) Apply(sun *scene.Node) {
	if sun == nil || sun.Light == nil {
		return
	}
	color, strength := sampleSun(dn.Time)

	angle := float64(dn.Time * 2 * math.Pi)
	dir := mgl32.Vec3{
		float32(math.Sin(angle)),
		float32(math.Cos(angle)), // 1 = noon, overhead
		0.35,
	}.Normalize()

	sun.SetPosition(dir.Mul(dn.Radius))
	sun.Light.Direction = dir.Mul(-1)
	sun.Light.Color = color
	sun.Light.Strength = strength
}
