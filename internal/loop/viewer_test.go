package loop

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tomz197/greeting/internal/audio"
	"github.com/tomz197/greeting/internal/config"
	"github.com/tomz197/greeting/internal/input"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const frameStep = 16 * time.Millisecond

var epoch = time.Date(2025, 5, 11, 9, 0, 0, 0, time.UTC)

type fakePlayer struct {
	mu      sync.Mutex
	plays   int
	stopped bool
}

func (p *fakePlayer) Play(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

func fixedSize(cols, rows int) func() (int, int, error) {
	return func() (int, int, error) { return cols, rows, nil }
}

func newTestViewer(t *testing.T, w io.Writer, p *fakePlayer, inactivity time.Duration) *Viewer {
	t.Helper()
	opts := Options{
		Config:       config.Default(),
		TermSizeFunc: fixedSize(100, 40),
		Inactivity:   inactivity,
		Logger:       log.New(io.Discard),
		Start:        epoch,
		Random:       func() float64 { return 0.5 },
	}
	if p != nil {
		opts.Player = func(io.Writer) audio.Player { return p }
	}
	v := NewViewer(w, opts)
	t.Cleanup(v.Close)
	return v
}

// run steps v every frame from from until until (inclusive), without input.
func run(t *testing.T, v *Viewer, from, until time.Duration) {
	t.Helper()
	for d := from; d <= until; d += frameStep {
		require.NoError(t, v.Step(input.Input{}, epoch.Add(d)))
	}
}

func tap(t *testing.T, v *Viewer, at time.Duration) {
	t.Helper()
	require.NoError(t, v.Step(input.Parse([]byte(" ")), epoch.Add(at)))
}

func TestViewer_IntroHidesItselfAfterGrace(t *testing.T) {
	var out bytes.Buffer
	v := newTestViewer(t, &out, nil, 0)

	run(t, v, 0, 3792*time.Millisecond)
	assert.True(t, v.Session().State().IntroVisible)
	assert.NotZero(t, out.Len(), "frames are written")

	run(t, v, 3808*time.Millisecond, 3808*time.Millisecond)
	assert.False(t, v.Session().State().IntroVisible)
	assert.False(t, v.Audio().Playing(), "music waits for a tap")
}

func TestViewer_TapsDriveTheSession(t *testing.T) {
	p := &fakePlayer{}
	v := newTestViewer(t, io.Discard, p, 0)

	run(t, v, 0, time.Second)
	tap(t, v, 1200*time.Millisecond)
	assert.False(t, v.Session().State().IntroVisible)

	tap(t, v, 2*time.Second)
	state := v.Session().State()
	assert.True(t, state.CardOpen)
	assert.Positive(t, v.Particles(), "celebration burst")

	v.Close()
	assert.Equal(t, 1, p.plays)
	assert.True(t, p.stopped)
	assert.Zero(t, v.Particles())
	assert.False(t, v.Running())
}

func TestViewer_TwoTapsInOneFrame(t *testing.T) {
	v := newTestViewer(t, io.Discard, nil, 0)
	run(t, v, 0, 100*time.Millisecond)

	require.NoError(t, v.Step(input.Parse([]byte("  ")), epoch.Add(200*time.Millisecond)))
	state := v.Session().State()
	assert.False(t, state.IntroVisible)
	assert.True(t, state.CardOpen, "second tap reaches the card")
}

func TestViewer_Quit(t *testing.T) {
	v := newTestViewer(t, io.Discard, nil, 0)
	require.NoError(t, v.Step(input.Parse([]byte("q")), epoch))
	assert.False(t, v.Running())
	require.NoError(t, v.Step(input.Parse([]byte(" ")), epoch.Add(time.Second)))
	assert.True(t, v.Session().State().IntroVisible, "no input after quit")
}

func TestViewer_Inactivity(t *testing.T) {
	v := newTestViewer(t, io.Discard, nil, time.Minute)

	require.NoError(t, v.Step(input.Input{}, epoch.Add(50*time.Second)))
	assert.True(t, v.Inactive())

	// A key only clears the warning.
	tap(t, v, 51*time.Second)
	assert.False(t, v.Inactive())
	assert.False(t, v.Session().State().CardOpen)

	require.NoError(t, v.Step(input.Input{}, epoch.Add(100*time.Second)))
	assert.True(t, v.Running())
	require.NoError(t, v.Step(input.Input{}, epoch.Add(112*time.Second)))
	assert.False(t, v.Running())
}

func TestViewer_SizeErrors(t *testing.T) {
	v := NewViewer(io.Discard, Options{
		Config:       config.Default(),
		TermSizeFunc: func() (int, int, error) { return 0, 0, errors.New("no tty") },
		Logger:       log.New(io.Discard),
		Start:        epoch,
	})
	defer v.Close()
	assert.NoError(t, v.Step(input.Input{}, epoch.Add(frameStep)))
}

func TestClampSize(t *testing.T) {
	r := config.Default().Render
	cols, rows := clampSize(r, fixedSize(500, 200))
	assert.Equal(t, r.MaxWidth, cols)
	assert.Equal(t, r.MaxHeight, rows)

	cols, rows = clampSize(r, fixedSize(80, 24))
	assert.Equal(t, 80, cols)
	assert.Equal(t, 24, rows)
}

func TestRun_QuitsOnKey(t *testing.T) {
	var out bytes.Buffer
	v := newTestViewer(t, &out, nil, 0)

	done := make(chan error, 1)
	go func() { done <- v.Run(context.Background(), strings.NewReader("q")) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("viewer did not quit")
	}
	assert.True(t, strings.HasPrefix(out.String(), "\033[?1049h"))
	assert.True(t, strings.HasSuffix(out.String(), "\033[?1049l"))
}

func TestRun_StopsOnCancel(t *testing.T) {
	r, w := io.Pipe()
	v := newTestViewer(t, io.Discard, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx, r) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("viewer did not stop")
	}
	assert.False(t, v.Running())
	require.NoError(t, w.Close())
}
