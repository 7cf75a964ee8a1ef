package reveal

import (
	"math/rand"
	"slices"
	"time"

	"github.com/tomz197/greeting/internal/schedule"
)

// Handle is a live confetti run. It is only meaningful to the scheduler that
// issued it.
type Handle struct {
	end      time.Time
	colors   ColorSet
	onExpire func()
	frame    schedule.FrameID
	timer    schedule.TimerID
}

// SchedulerOptions configures a ConfettiScheduler.
type SchedulerOptions struct {
	Grace  time.Duration  // Delay after the deadline before onExpire runs
	Burst  BurstSpec      // Template; Colors and origin are set per burst
	Random func() float64 // Uniform [0,1) source, defaults to math/rand
}

// ConfettiScheduler fires a burst on every frame until a deadline, then stops on
// its own. A backstop timer armed at deadline+grace reports expiry to the owner
// even if frames stopped arriving. At most one run is live at a time.
type ConfettiScheduler struct {
	host   Host
	emit   Emitter
	grace  time.Duration
	burst  BurstSpec
	random func() float64
	live   *Handle
}

// NewConfettiScheduler creates a scheduler emitting to emit on host's frames.
func NewConfettiScheduler(host Host, emit Emitter, opts SchedulerOptions) *ConfettiScheduler {
	if opts.Random == nil {
		opts.Random = rand.Float64
	}
	if opts.Burst.ParticleCount == 0 {
		opts.Burst = IntroBurst
	}
	return &ConfettiScheduler{
		host:   host,
		emit:   emit,
		grace:  opts.Grace,
		burst:  opts.Burst,
		random: opts.Random,
	}
}

// Start begins a run lasting deadline. onExpire runs once, at deadline+grace,
// unless the run is cancelled first. A run already live is cancelled.
func (s *ConfettiScheduler) Start(deadline time.Duration, colors ColorSet, onExpire func()) *Handle {
	s.Cancel(s.live)

	now := s.host.Now()
	h := &Handle{
		end:      now.Add(deadline),
		colors:   slices.Clone(colors),
		onExpire: onExpire,
	}
	s.live = h
	h.timer = s.host.AfterFunc(deadline+s.grace, func() { s.expire(h) })
	s.tick(h, now)
	return h
}

// Cancel stops the run's frame loop and backstop timer. Cancelling nil, a
// finished run, or the same handle twice does nothing.
func (s *ConfettiScheduler) Cancel(h *Handle) {
	if h == nil {
		return
	}
	if h.frame != 0 {
		s.host.CancelFrame(h.frame)
		h.frame = 0
	}
	if h.timer != 0 {
		s.host.CancelTimer(h.timer)
		h.timer = 0
	}
	if s.live == h {
		s.live = nil
	}
}

// Live reports whether a run is in progress, including its grace period.
func (s *ConfettiScheduler) Live() bool {
	return s.live != nil
}

// Emitting reports whether the frame loop of the live run is still armed.
func (s *ConfettiScheduler) Emitting() bool {
	return s.live != nil && s.live.frame != 0
}

// tick emits one burst and re-arms itself while before the deadline.
func (s *ConfettiScheduler) tick(h *Handle, now time.Time) {
	h.frame = 0
	if s.live != h || !now.Before(h.end) {
		return
	}
	s.emit.Emit(s.nextBurst(h.colors))
	h.frame = s.host.RequestFrame(func(now time.Time) { s.tick(h, now) })
}

func (s *ConfettiScheduler) expire(h *Handle) {
	h.timer = 0
	if s.live != h {
		return
	}
	s.Cancel(h)
	if h.onExpire != nil {
		h.onExpire()
	}
}

// nextBurst places a burst at a random point in the upper half of the viewport.
func (s *ConfettiScheduler) nextBurst(colors ColorSet) BurstSpec {
	spec := s.burst
	spec.Colors = colors
	spec.OriginX = s.random()
	spec.OriginY = s.random() * 0.5
	return spec
}
