package reveal

import (
	"time"

	"github.com/charmbracelet/log"
)

// CardReveal owns the card's open/closed toggle and fires one celebratory burst
// the first time the card opens.
type CardReveal struct {
	state     *ScreenState
	host      Host
	emit      Emitter
	burst     BurstSpec
	logger    *log.Logger
	changedAt time.Time
}

// CardOptions configures a CardReveal.
type CardOptions struct {
	Burst  BurstSpec // Defaults to CelebrationBurst
	Logger *log.Logger
}

// NewCardReveal creates the card controller. It only writes CardOpen and
// HasOpenedOnce of state.
func NewCardReveal(state *ScreenState, host Host, emit Emitter, opts CardOptions) *CardReveal {
	if opts.Burst.ParticleCount == 0 {
		opts.Burst = CelebrationBurst
	}
	if len(opts.Burst.Colors) == 0 {
		opts.Burst.Colors = DefaultCelebrationColors
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &CardReveal{
		state:  state,
		host:   host,
		emit:   emit,
		burst:  opts.Burst,
		logger: opts.Logger,
	}
}

// Toggle opens or closes the card. It is ignored while the intro is visible.
func (c *CardReveal) Toggle() bool {
	if c.state.IntroVisible {
		return false
	}
	next, celebrate := c.state.ToggleCard()
	*c.state = next
	c.changedAt = c.host.Now()
	if celebrate {
		c.logger.Debug("card opened for the first time")
		c.emit.Emit(c.burst)
	}
	return true
}

// Open reports whether the card is open.
func (c *CardReveal) Open() bool {
	return c.state.CardOpen
}

// HasOpenedOnce reports whether the card has ever been opened.
func (c *CardReveal) HasOpenedOnce() bool {
	return c.state.HasOpenedOnce
}

// ChangedAt returns the loop time of the last toggle.
func (c *CardReveal) ChangedAt() time.Time {
	return c.changedAt
}
