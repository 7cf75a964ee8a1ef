// Package reveal implements the greeting card's interaction controller: the
// intro overlay gate with its timed confetti, the open/close card toggle with a
// one-time celebratory burst, and the scheduler that keeps those effects from
// outliving the state that started them.
package reveal

import (
	"context"
	"time"

	"github.com/tomz197/greeting/internal/schedule"
)

// ColorSet is a palette of "#rrggbb" colors used by a burst.
type ColorSet []string

// BurstSpec describes one confetti burst. Origins are normalised viewport
// coordinates: (0,0) is the top-left corner, (1,1) the bottom-right.
type BurstSpec struct {
	ParticleCount int
	Spread        float64 // Cone width in degrees
	StartVelocity float64
	Ticks         int // Particle lifetime in frames
	Gravity       float64
	Scalar        float64 // Particle size and speed multiplier
	Colors        ColorSet
	OriginX       float64
	OriginY       float64
}

// Emitter renders bursts. Emit must not block and its failures stay inside the
// implementation.
type Emitter interface {
	Emit(spec BurstSpec)
}

// Audio is the session's background music output. Start may be refused, for
// example when no output device is available.
type Audio interface {
	Start(ctx context.Context) error
}

// Host is the event loop effects are scheduled on. *schedule.Loop satisfies it.
type Host interface {
	Now() time.Time
	RequestFrame(fn func(now time.Time)) schedule.FrameID
	CancelFrame(id schedule.FrameID)
	AfterFunc(d time.Duration, fn func()) schedule.TimerID
	CancelTimer(id schedule.TimerID)
}

var _ Host = (*schedule.Loop)(nil)

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(spec BurstSpec)

// Emit calls f(spec).
func (f EmitterFunc) Emit(spec BurstSpec) {
	f(spec)
}

// Defaults for the intro gate.
const (
	DefaultIntroDuration = 3500 * time.Millisecond
	DefaultGrace         = 300 * time.Millisecond
)

// DefaultIntroColors is the intro fireworks palette.
var DefaultIntroColors = ColorSet{"#fecaca", "#fbbf24", "#fb7185", "#e0f2fe", "#c4b5fd"}

// DefaultCelebrationColors is the palette of the first-open burst.
var DefaultCelebrationColors = ColorSet{"#fb7185", "#f472b6", "#fbbf24", "#fde68a", "#fff1f2"}

// IntroBurst is the template for the bursts fired every frame while the intro
// is visible. Origin is filled in per burst.
var IntroBurst = BurstSpec{
	ParticleCount: 40,
	Spread:        70,
	StartVelocity: 55,
	Ticks:         70,
	Gravity:       0.9,
	Scalar:        0.9,
}

// CelebrationBurst is the single burst fired when the card opens for the first time.
var CelebrationBurst = BurstSpec{
	ParticleCount: 160,
	Spread:        100,
	StartVelocity: 45,
	Ticks:         120,
	Gravity:       1.0,
	Scalar:        1.1,
	OriginX:       0.5,
	OriginY:       0.1,
}
