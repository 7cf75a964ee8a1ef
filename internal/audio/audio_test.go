package audio

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPlayer struct {
	plays   int
	stopped bool
	err     error
}

func (p *countingPlayer) Play(context.Context) error {
	p.plays++
	return p.err
}

func (p *countingPlayer) Stop() {
	p.stopped = true
}

func TestGate_StartsOnce(t *testing.T) {
	p := &countingPlayer{}
	g := NewGate(p)

	require.NoError(t, g.Start(context.Background()))
	require.NoError(t, g.Start(context.Background()))

	assert.Equal(t, 1, p.plays)
	assert.Equal(t, 1, g.Attempts())
	assert.True(t, g.Playing())

	g.Stop()
	assert.True(t, p.stopped)
	assert.False(t, g.Playing())
}

func TestGate_RejectedStartStaysIdle(t *testing.T) {
	p := &countingPlayer{err: ErrUnavailable}
	g := NewGate(p)

	err := g.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, g.Playing())

	g.Stop()
	assert.False(t, p.stopped, "nothing to stop")
}

func TestSilent(t *testing.T) {
	err := NewGate(Silent{}).Start(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Bell{W: &buf}.Play(context.Background()))
	assert.Equal(t, "\a", buf.String())

	assert.ErrorIs(t, Bell{}.Play(context.Background()), ErrUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Bell{W: &buf}.Play(ctx), context.Canceled)
}

func TestNew(t *testing.T) {
	p, err := New("Speaker", "song.mp3", -1, nil)
	require.NoError(t, err)
	assert.Equal(t, &Speaker{Path: "song.mp3", Volume: -1}, p)

	p, err = New(KindBell, "", 0, &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, Bell{}, p)

	p, err = New("", "", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, Silent{}, p)

	_, err = New("kazoo", "", 0, nil)
	assert.Error(t, err)
}

func TestFrequency(t *testing.T) {
	assert.InDelta(t, 440.0, Frequency(69), 1e-9)
	assert.InDelta(t, 880.0, Frequency(81), 1e-9)
	assert.InDelta(t, 261.63, Frequency(60), 0.01)
}

func TestMelody_Length(t *testing.T) {
	notes := []Note{{69, 1}, {0, 1}}
	streamer, format := Melody(notes, 120)

	want := format.SampleRate.N(time.Second)
	assert.InDelta(t, want, streamer.Len(), 2)

	samples := make([][2]float64, 512)
	n, ok := streamer.Stream(samples)
	assert.True(t, ok)
	assert.Equal(t, 512, n)
}

func TestMelody_EnvelopeStaysQuiet(t *testing.T) {
	streamer, format := Melody([]Note{{69, 1}}, 60)
	samples := make([][2]float64, format.SampleRate.N(time.Second))
	n, _ := streamer.Stream(samples)
	for _, s := range samples[:n] {
		assert.LessOrEqual(t, s[0], 0.3+1e-3)
		assert.GreaterOrEqual(t, s[0], -0.3-1e-3)
	}
}
