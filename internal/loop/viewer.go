// Package loop runs one viewer's frame loop: input, scheduled effects,
// particles and drawing at a fixed frame rate.
package loop

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/greeting/internal/audio"
	"github.com/tomz197/greeting/internal/card"
	"github.com/tomz197/greeting/internal/confetti"
	"github.com/tomz197/greeting/internal/config"
	"github.com/tomz197/greeting/internal/draw"
	"github.com/tomz197/greeting/internal/input"
	"github.com/tomz197/greeting/internal/reveal"
	"github.com/tomz197/greeting/internal/schedule"
)

// maxFrameDelta caps the particle step after a stall.
const maxFrameDelta = 100 * time.Millisecond

// Viewer handles rendering and input for a single terminal.
type Viewer struct {
	cfg        config.Config
	logger     *log.Logger
	host       *schedule.Loop
	field      *confetti.Field
	gate       *audio.Gate
	session    *reveal.Session
	renderer   *card.Renderer
	canvas     *draw.Canvas
	out        *draw.ChunkWriter
	termSize   draw.TermSizeFunc
	inactivity time.Duration

	lastFrame   time.Time
	lastInput   time.Time
	inactive    bool
	wasInactive bool
	running     bool
	closed      bool
}

// Options configures a Viewer.
type Options struct {
	Config config.Config

	// Player builds the music player. out is the viewer's terminal, safe to
	// write from any goroutine. Nil means silent.
	Player func(out io.Writer) audio.Player

	TermSizeFunc draw.TermSizeFunc // Defaults to the local terminal
	Inactivity   time.Duration     // Disconnect after this long without a key; 0 disables
	Logger       *log.Logger
	Start        time.Time      // Clock origin, defaults to time.Now()
	Random       func() float64 // Randomness for confetti, defaults to math/rand
}

// NewViewer creates a viewer writing to w and mounts the intro.
func NewViewer(w io.Writer, opts Options) *Viewer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	termSize := opts.TermSizeFunc
	if termSize == nil {
		termSize = draw.DefaultTermSizeFunc
	}
	start := opts.Start
	if start.IsZero() {
		start = time.Now()
	}
	cfg := opts.Config

	host := schedule.NewLoop(start)
	field := confetti.NewField(confetti.Options{
		Density:      cfg.Render.Density,
		MaxParticles: cfg.Render.MaxParticles,
		Random:       opts.Random,
	})
	out := draw.NewChunkWriter(w)
	var player audio.Player = audio.Silent{}
	if opts.Player != nil {
		player = opts.Player(out)
	}
	gate := audio.NewGate(player)
	session := reveal.NewSession(host, field, gate, reveal.Options{
		IntroDuration:     cfg.Intro.Duration,
		Grace:             cfg.Intro.Grace,
		IntroColors:       reveal.ColorSet(cfg.Intro.Colors),
		CelebrationColors: reveal.ColorSet(cfg.Card.CelebrationColors),
		Random:            opts.Random,
		Logger:            logger,
	})

	cols, rows := clampSize(cfg.Render, termSize)
	v := &Viewer{
		cfg:        cfg,
		logger:     logger,
		host:       host,
		field:      field,
		gate:       gate,
		session:    session,
		renderer:   card.New(card.Options{Intro: cfg.Intro, Card: cfg.Card, Logger: logger}),
		canvas:     draw.NewCanvas(cols, rows),
		out:        out,
		termSize:   termSize,
		inactivity: opts.Inactivity,
		lastFrame:  start,
		lastInput:  start,
		running:    true,
	}
	session.Start()
	return v
}

// Run drives frames until the viewer quits, input ends or ctx is done.
// The session is torn down before Run returns.
func (v *Viewer) Run(ctx context.Context, r io.Reader) error {
	stream := input.StartStream(r)
	defer stream.Stop()
	defer v.Close()

	draw.EnterAltScreen(v.out)
	draw.HideCursor(v.out)
	draw.ClearScreen(v.out)
	defer func() {
		draw.ClearScreen(v.out)
		draw.ShowCursor(v.out)
		draw.ExitAltScreen(v.out)
		_ = v.out.Flush()
	}()

	ticker := time.NewTicker(v.cfg.FrameTime())
	defer ticker.Stop()

	for {
		if err := v.Step(input.ReadInput(stream), time.Now()); err != nil {
			return err
		}
		if !v.running {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Step advances the viewer by one frame at now with the frame's input and
// draws the result.
func (v *Viewer) Step(in input.Input, now time.Time) error {
	if !v.running {
		return nil
	}
	dt := min(max(now.Sub(v.lastFrame), 0), maxFrameDelta)
	v.lastFrame = now

	v.processInput(in, now)
	if !v.running {
		return nil
	}

	v.host.Tick(now)
	v.field.Update(dt)

	return v.drawFrame(now)
}

// processInput routes taps and tracks inactivity.
func (v *Viewer) processInput(in input.Input, now time.Time) {
	if in.Quit {
		v.running = false
		return
	}

	if len(in.Pressed) > 0 {
		v.lastInput = now
		if v.inactive {
			// The key only dismisses the warning.
			v.inactive = false
			return
		}
	} else if v.inactivity > 0 {
		idle := now.Sub(v.lastInput)
		if idle > v.inactivity {
			v.logger.Info("disconnecting idle viewer", "idle", idle.Round(time.Second))
			v.running = false
			return
		}
		v.inactive = idle > v.inactivity*3/4
	}

	for range in.Taps {
		v.session.Tap()
	}
}

// drawFrame composes and writes one frame.
func (v *Viewer) drawFrame(now time.Time) error {
	cols, rows := clampSize(v.cfg.Render, v.termSize)
	if cols != v.canvas.TerminalWidth() || rows != v.canvas.TerminalHeight() {
		draw.ClearScreen(v.out)
		v.canvas.Resize(cols, rows)
	}
	if v.inactive != v.wasInactive {
		v.canvas.ForceRedraw()
		v.wasInactive = v.inactive
	}

	v.renderer.Draw(v.canvas, card.Frame{
		State:     v.session.State(),
		Now:       now,
		ChangedAt: v.session.Card().ChangedAt(),
	})
	v.field.Draw(v.canvas)

	if v.inactive {
		left := v.inactivity - now.Sub(v.lastInput)
		msg := fmt.Sprintf("Still there? Press any key. Disconnecting in %ds.", int(left.Seconds())+1)
		row := v.canvas.TerminalHeight() - 1
		v.canvas.SetText(max((v.canvas.TerminalWidth()-len(msg))/2, 0), row, msg, draw.MustHex("#fff1f2"))
	}

	if err := v.canvas.Render(v.out); err != nil {
		return err
	}
	return v.out.Flush()
}

// clampSize returns the terminal size limited to the configured maximum.
// Errors from the size function keep a minimal canvas.
func clampSize(r config.RenderConfig, termSize draw.TermSizeFunc) (int, int) {
	cols, rows, err := termSize()
	if err != nil {
		return 0, 0
	}
	return min(cols, r.MaxWidth), min(rows, r.MaxHeight)
}

// Running reports whether the viewer still wants frames.
func (v *Viewer) Running() bool {
	return v.running
}

// Inactive reports whether the idle warning is showing.
func (v *Viewer) Inactive() bool {
	return v.inactive
}

// Session returns the viewer's interaction session.
func (v *Viewer) Session() *reveal.Session {
	return v.session
}

// Audio returns the viewer's music gate.
func (v *Viewer) Audio() *audio.Gate {
	return v.gate
}

// Particles returns the number of live confetti particles.
func (v *Viewer) Particles() int {
	return v.field.Len()
}

// Close tears the session down, stops the music and closes the host loop.
// It is safe to call more than once.
func (v *Viewer) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.running = false
	v.session.Close()
	v.gate.Stop()
	v.host.Close()
	v.field.Reset()
}
