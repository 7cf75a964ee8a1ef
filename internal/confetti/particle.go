package confetti

import (
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// particlePool is a sync.Pool for reusing Particle objects to reduce allocations.
var particlePool = sync.Pool{
	New: func() any {
		return &Particle{}
	},
}

// Particle is one piece of confetti. Positions are normalised viewport
// coordinates; velocities are viewport units per second.
type Particle struct {
	X, Y        float64
	VX, VY      float64
	Fall        float64 // Constant downward drift from gravity
	Lifetime    float64 // Seconds remaining
	MaxLifetime float64 // Initial lifetime (for fade calculation)
	Drag        float64 // Per-frame velocity decay at 60fps (1.0 = no drag)
	Wobble      float64 // Phase of the side-to-side flutter
	Size        int     // Width in pixels
	Color       colorful.Color
}

// newParticle takes a particle from the pool.
func newParticle(x, y, vx, vy, fall, lifetime float64, size int, col colorful.Color) *Particle {
	p := particlePool.Get().(*Particle)
	*p = Particle{
		X:           x,
		Y:           y,
		VX:          vx,
		VY:          vy,
		Fall:        fall,
		Lifetime:    lifetime,
		MaxLifetime: lifetime,
		Drag:        frameDrag,
		Size:        size,
		Color:       col,
	}
	return p
}

// Release returns the particle to the pool for reuse.
func (p *Particle) Release() {
	particlePool.Put(p)
}

// Update moves the particle. Returns true once it has burnt out.
func (p *Particle) Update(dt float64) bool {
	p.Lifetime -= dt
	if p.Lifetime <= 0 {
		return true
	}

	dragFactor := math.Pow(p.Drag, dt*60) // Normalize drag to ~60fps
	p.VX *= dragFactor
	p.VY *= dragFactor

	p.Wobble += dt * 10
	p.X += (p.VX + math.Cos(p.Wobble)*wobbleSpeed) * dt
	p.Y += (p.VY + p.Fall) * dt

	// Far below the viewport there is nothing left to see.
	return p.Y > 1.5
}

// Fade returns the remaining life fraction in [0,1].
func (p *Particle) Fade() float64 {
	if p.MaxLifetime <= 0 {
		return 0
	}
	return p.Lifetime / p.MaxLifetime
}
