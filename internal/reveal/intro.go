package reveal

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DismissReason records what closed the intro.
type DismissReason int

const (
	ReasonNone    DismissReason = iota // Still visible
	ReasonUser                         // Viewer tapped the overlay
	ReasonExpired                      // Backstop timer fired after the confetti run
)

func (r DismissReason) String() string {
	switch r {
	case ReasonUser:
		return "user"
	case ReasonExpired:
		return "expired"
	default:
		return "none"
	}
}

// IntroOverlay owns the intro gate. While the intro is visible its confetti run
// is live; every way of dismissing it goes through the same transition, which
// cancels the run and clears IntroVisible.
type IntroOverlay struct {
	state    *ScreenState
	host     Host
	sched    *ConfettiScheduler
	audio    Audio
	duration time.Duration
	colors   ColorSet
	logger   *log.Logger

	handle      *Handle
	reason      DismissReason
	dismissedAt time.Time
	torndown    bool

	ctx    context.Context
	cancel context.CancelFunc
	audioW sync.WaitGroup
}

// IntroOptions configures an IntroOverlay.
type IntroOptions struct {
	Duration time.Duration
	Colors   ColorSet
	Logger   *log.Logger
}

// NewIntroOverlay creates the intro controller. state is shared with the rest of
// the session; the overlay only writes IntroVisible. audio may be nil.
func NewIntroOverlay(state *ScreenState, host Host, sched *ConfettiScheduler, audio Audio, opts IntroOptions) *IntroOverlay {
	if opts.Duration <= 0 {
		opts.Duration = DefaultIntroDuration
	}
	if len(opts.Colors) == 0 {
		opts.Colors = DefaultIntroColors
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &IntroOverlay{
		state:    state,
		host:     host,
		sched:    sched,
		audio:    audio,
		duration: opts.Duration,
		colors:   opts.Colors,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Mount starts the confetti run. It does nothing once the intro is gone or
// the overlay was torn down.
func (i *IntroOverlay) Mount() {
	if i.torndown || !i.state.IntroVisible {
		return
	}
	i.handle = i.sched.Start(i.duration, i.colors, func() { i.close(ReasonExpired) })
}

// Dismiss handles a tap on the overlay: it hides the intro and asks the audio
// output to start. Returns false if the intro was already gone.
func (i *IntroOverlay) Dismiss() bool {
	if !i.close(ReasonUser) {
		return false
	}
	i.requestAudio()
	return true
}

// Visible reports whether the intro is still showing.
func (i *IntroOverlay) Visible() bool {
	return i.state.IntroVisible
}

// Reason reports what dismissed the intro.
func (i *IntroOverlay) Reason() DismissReason {
	return i.reason
}

// DismissedAt returns the loop time of the dismissal, zero while visible.
func (i *IntroOverlay) DismissedAt() time.Time {
	return i.dismissedAt
}

// Teardown releases the confetti run and waits for a pending audio request.
// No callback of this overlay fires afterwards.
func (i *IntroOverlay) Teardown() {
	i.torndown = true
	i.sched.Cancel(i.handle)
	i.handle = nil
	i.cancel()
	i.audioW.Wait()
}

// close is the only Visible→Dismissed transition.
func (i *IntroOverlay) close(reason DismissReason) bool {
	if i.torndown || !i.state.IntroVisible {
		return false
	}
	i.sched.Cancel(i.handle)
	i.handle = nil
	*i.state = i.state.DismissIntro()
	i.reason = reason
	i.dismissedAt = i.host.Now()
	i.logger.Debug("intro dismissed", "reason", reason)
	return true
}

// requestAudio starts playback off the loop goroutine. A refusal is logged and
// otherwise ignored.
func (i *IntroOverlay) requestAudio() {
	if i.audio == nil {
		return
	}
	i.audioW.Add(1)
	go func() {
		defer i.audioW.Done()
		if err := i.audio.Start(i.ctx); err != nil {
			i.logger.Warn("audio start rejected", "err", err)
			return
		}
		i.logger.Info("music started")
	}()
}
