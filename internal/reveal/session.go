package reveal

import (
	"time"

	"github.com/charmbracelet/log"
)

// Options configures a Session.
type Options struct {
	IntroDuration     time.Duration
	Grace             time.Duration
	IntroColors       ColorSet
	CelebrationColors ColorSet
	Random            func() float64
	Logger            *log.Logger
}

// Session composes the intro and the card over one ScreenState and routes the
// viewer's taps: the intro takes every tap while it is visible, the card gets
// them afterwards.
type Session struct {
	state  ScreenState
	host   Host
	sched  *ConfettiScheduler
	intro  *IntroOverlay
	card   *CardReveal
	closed bool
}

// NewSession wires a session. Call Start to mount the intro.
func NewSession(host Host, emit Emitter, audio Audio, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Session{
		state: NewScreenState(),
		host:  host,
	}
	s.sched = NewConfettiScheduler(host, emit, SchedulerOptions{
		Grace:  opts.Grace,
		Burst:  IntroBurst,
		Random: opts.Random,
	})
	s.intro = NewIntroOverlay(&s.state, host, s.sched, audio, IntroOptions{
		Duration: opts.IntroDuration,
		Colors:   opts.IntroColors,
		Logger:   opts.Logger,
	})
	burst := CelebrationBurst
	burst.Colors = opts.CelebrationColors
	s.card = NewCardReveal(&s.state, host, emit, CardOptions{
		Burst:  burst,
		Logger: opts.Logger,
	})
	return s
}

// Start mounts the intro overlay.
func (s *Session) Start() {
	s.intro.Mount()
}

// Tap routes one viewer tap.
func (s *Session) Tap() {
	if s.closed {
		return
	}
	if s.state.IntroVisible {
		s.intro.Dismiss()
		return
	}
	s.card.Toggle()
}

// State returns a copy of the current screen state.
func (s *Session) State() ScreenState {
	return s.state
}

// Intro returns the intro controller.
func (s *Session) Intro() *IntroOverlay {
	return s.intro
}

// Card returns the card controller.
func (s *Session) Card() *CardReveal {
	return s.card
}

// Confetti returns the intro's confetti scheduler.
func (s *Session) Confetti() *ConfettiScheduler {
	return s.sched
}

// Close tears the session down. Nothing scheduled by the session runs afterwards.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.intro.Teardown()
}
