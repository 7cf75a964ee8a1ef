// Package audio provides the greeting's background music outputs.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnavailable is returned when a player has no way to make sound.
var ErrUnavailable = errors.New("audio unavailable")

// Player starts looping playback. Play returns once playback has begun or failed.
type Player interface {
	Play(ctx context.Context) error
}

// Stopper is implemented by players holding resources that must be released.
type Stopper interface {
	Stop()
}

// Gate guards a session's single Player: the first successful Start begins
// playback and later Starts are no-ops. A refused Start leaves the gate idle.
// Gate is safe for concurrent use.
type Gate struct {
	mu      sync.Mutex
	player  Player
	playing bool
	starts  int
}

// NewGate wraps p.
func NewGate(p Player) *Gate {
	return &Gate{player: p}
}

// Start begins playback unless it is already running.
func (g *Gate) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.playing {
		return nil
	}
	g.starts++
	if err := g.player.Play(ctx); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	g.playing = true
	return nil
}

// Playing reports whether playback has started.
func (g *Gate) Playing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playing
}

// Attempts returns how many times the player was asked to play.
func (g *Gate) Attempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.starts
}

// Stop halts playback and releases the player.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if s, ok := g.player.(Stopper); ok && g.playing {
		s.Stop()
	}
	g.playing = false
}

// Silent never plays. Its Start always fails with ErrUnavailable.
type Silent struct{}

// Play implements Player.
func (Silent) Play(context.Context) error {
	return ErrUnavailable
}
