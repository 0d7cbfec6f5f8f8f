// Package particles implements the particle engine: emitters spawn particles
// into a technique's pool, affectors mutate them, and the technique ages,
// culls and integrates them once per step before writing vertices for draw.
//
// Systems are composed from effect documents (see package node) into a
// Container, which holds the named prototype catalog and the active set.
package particles

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Color is an 8-bit RGBA colour.
type Color struct {
	R, G, B, A uint8
}

// White is the default particle colour.
var White = Color{255, 255, 255, 255}

// PhysicsParameters is the kinematic state of a particle or emitter.
//
// Direction carries the velocity vector: an emitter sets it to the deviated
// unit direction scaled by the spawn speed, and affectors accelerate it.
type PhysicsParameters struct {
	Position    Vec3
	Color       Color
	Dimensions  Vec3
	TimeToLive  float64
	Mass        float64
	Velocity    float64
	Direction   Vec3
	Orientation Quat
}

// DefaultPhysics returns the state every particle starts from before its
// emitter initializes it.
func DefaultPhysics() PhysicsParameters {
	return PhysicsParameters{
		Color:       White,
		Dimensions:  Vec3{1, 1, 1},
		TimeToLive:  10,
		Mass:        1,
		Velocity:    100,
		Direction:   Vec3{0, 1, 0},
		Orientation: mgl64.QuatIdent(),
	}
}

// Progress returns the fraction of life elapsed, in [0, 1] for live states.
func Progress(initial, current *PhysicsParameters) float64 {
	if initial.TimeToLive <= 0 {
		return 1
	}
	return 1 - current.TimeToLive/initial.TimeToLive
}

// Rect is a texture-space rectangle.
type Rect struct {
	X, Y, W, H float32
}

// FullRect covers the whole texture.
var FullRect = Rect{0, 0, 1, 1}

// Particle is one pooled simulation element.
type Particle struct {
	Initial     PhysicsParameters
	Current     PhysicsParameters
	EmittedBy   EmitterRef
	// EmitterName is the name of the spawning emitter. It stays valid after
	// the emitter itself is gone.
	EmitterName string
	UV          Rect
}

// Expired reports whether the particle should be removed.
func (p *Particle) Expired() bool {
	return p.Current.TimeToLive < 0
}
