// Package confetti renders confetti bursts as colored pixels on a draw.Canvas.
package confetti

import (
	"math"
	"math/rand"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/tomz197/greeting/internal/draw"
	"github.com/tomz197/greeting/internal/reveal"
)

// Burst parameters are given the way browser confetti libraries take them:
// velocities in CSS pixels per frame, gravity as pixels of fall per frame,
// lifetimes in frames. These constants map them onto a viewport of one unit.
const (
	pxPerUnit   = 1000.0
	frameRate   = 60.0
	frameDrag   = 0.9
	wobbleSpeed = 0.05
	defaultTick = 200
	fadeStart   = 0.3 // Life fraction below which particles blend into the scene
)

// DefaultMaxParticles bounds a field's memory and per-frame work.
const DefaultMaxParticles = 3000

// Options configures a Field.
type Options struct {
	Density      float64        // Fraction of each burst's particles actually spawned, default 1
	MaxParticles int            // Live particle cap, default DefaultMaxParticles
	Random       func() float64 // Uniform [0,1) source, defaults to math/rand
}

// Field is a live set of confetti particles. It implements reveal.Emitter.
// A Field is not safe for concurrent use; drive it from the viewer loop.
type Field struct {
	particles []*Particle
	density   float64
	max       int
	random    func() float64
	palette   map[string]colorful.Color
}

var _ reveal.Emitter = (*Field)(nil)

// NewField creates an empty field.
func NewField(opts Options) *Field {
	if opts.Density <= 0 {
		opts.Density = 1
	}
	if opts.MaxParticles <= 0 {
		opts.MaxParticles = DefaultMaxParticles
	}
	if opts.Random == nil {
		opts.Random = rand.Float64
	}
	return &Field{
		density: opts.Density,
		max:     opts.MaxParticles,
		random:  opts.Random,
		palette: make(map[string]colorful.Color),
	}
}

// Emit spawns one burst. Particles beyond the field's cap are dropped.
func (f *Field) Emit(spec reveal.BurstSpec) {
	count := int(math.Round(float64(spec.ParticleCount) * f.density))
	if count < 1 && spec.ParticleCount > 0 {
		count = 1
	}
	scalar := spec.Scalar
	if scalar <= 0 {
		scalar = 1
	}
	ticks := spec.Ticks
	if ticks <= 0 {
		ticks = defaultTick
	}

	speed := spec.StartVelocity * scalar * frameRate / pxPerUnit
	fall := spec.Gravity * 3 * frameRate / pxPerUnit
	life := float64(ticks) / frameRate
	size := 1
	if scalar >= 1 {
		size = 2
	}

	for i := 0; i < count && len(f.particles) < f.max; i++ {
		// Launch upwards, spread evenly across the cone.
		angle := (90 + spec.Spread/2 - f.random()*spec.Spread) * math.Pi / 180
		v := speed * (0.5 + f.random()*0.5)
		p := newParticle(
			spec.OriginX, spec.OriginY,
			math.Cos(angle)*v, -math.Sin(angle)*v,
			fall,
			life*(0.75+f.random()*0.25),
			size,
			f.color(spec.Colors, i),
		)
		p.Wobble = f.random() * 2 * math.Pi
		f.particles = append(f.particles, p)
	}
}

// Update advances every particle by dt and drops the burnt-out ones.
func (f *Field) Update(dt time.Duration) {
	seconds := dt.Seconds()
	kept := f.particles[:0]
	for _, p := range f.particles {
		if p.Update(seconds) {
			p.Release()
			continue
		}
		kept = append(kept, p)
	}
	clear(f.particles[len(kept):])
	f.particles = kept
}

// Draw paints the particles onto c. Dying particles fade into whatever is
// already drawn beneath them.
func (f *Field) Draw(c *draw.Canvas) {
	w, h := float64(c.Width()), float64(c.Height())
	for _, p := range f.particles {
		x := int(math.Floor(p.X * w))
		y := int(math.Floor(p.Y * h))
		col := p.Color
		if fade := p.Fade(); fade < fadeStart {
			col = c.At(x, y).BlendRgb(col, fade/fadeStart)
		}
		for dx := 0; dx < p.Size; dx++ {
			c.Set(x+dx, y, col)
		}
	}
}

// Len returns the number of live particles.
func (f *Field) Len() int {
	return len(f.particles)
}

// Reset drops every particle.
func (f *Field) Reset() {
	for _, p := range f.particles {
		p.Release()
	}
	clear(f.particles)
	f.particles = f.particles[:0]
}

var white = colorful.Color{R: 1, G: 1, B: 1}

// color picks the i-th palette entry, parsing and caching hex colors.
func (f *Field) color(colors reveal.ColorSet, i int) colorful.Color {
	if len(colors) == 0 {
		return white
	}
	hex := colors[i%len(colors)]
	if c, ok := f.palette[hex]; ok {
		return c
	}
	c := draw.Hex(hex, white)
	f.palette[hex] = c
	return c
}
