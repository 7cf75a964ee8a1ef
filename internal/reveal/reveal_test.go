package reveal

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tomz197/greeting/internal/schedule"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2025, 5, 11, 9, 0, 0, 0, time.UTC)

const frameStep = 16 * time.Millisecond

// burstLog records every burst with the loop time it was emitted at.
type burstLog struct {
	host  Host
	at    []time.Duration
	specs []BurstSpec
}

func (b *burstLog) Emit(spec BurstSpec) {
	b.at = append(b.at, b.host.Now().Sub(epoch))
	b.specs = append(b.specs, spec)
}

func (b *burstLog) last() time.Duration {
	if len(b.at) == 0 {
		return -1
	}
	return b.at[len(b.at)-1]
}

// fakeAudio records start requests. If block is set, Start waits for ctx.
type fakeAudio struct {
	mu    sync.Mutex
	calls int
	err   error
	block bool
}

func (a *fakeAudio) Start(ctx context.Context) error {
	a.mu.Lock()
	a.calls++
	block := a.block
	a.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return a.err
}

func (a *fakeAudio) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// advance ticks the loop every frameStep from its current time, finishing with
// a tick at exactly until.
func advance(l *schedule.Loop, until time.Duration) {
	for t := l.Now().Sub(epoch) + frameStep; t < until; t += frameStep {
		l.Tick(epoch.Add(t))
	}
	l.Tick(epoch.Add(until))
}

func newTestSession(t *testing.T, duration, grace time.Duration, audio Audio) (*Session, *schedule.Loop, *burstLog) {
	t.Helper()
	l := schedule.NewLoop(epoch)
	bursts := &burstLog{host: l}
	s := NewSession(l, bursts, audio, Options{
		IntroDuration: duration,
		Grace:         grace,
		Random:        rand.New(rand.NewSource(7)).Float64,
		Logger:        quietLogger(),
	})
	t.Cleanup(s.Close)
	return s, l, bursts
}

func TestScreenState_ToggleCard(t *testing.T) {
	s := NewScreenState().DismissIntro()

	s, celebrate := s.ToggleCard()
	assert.True(t, celebrate)
	assert.True(t, s.CardOpen)
	assert.True(t, s.HasOpenedOnce)

	s, celebrate = s.ToggleCard()
	assert.False(t, celebrate)
	assert.False(t, s.CardOpen)
	assert.True(t, s.HasOpenedOnce)

	s, celebrate = s.ToggleCard()
	assert.False(t, celebrate)
	assert.True(t, s.CardOpen)
}

func TestScheduler_BurstsStayInUpperHalf(t *testing.T) {
	l := schedule.NewLoop(epoch)
	bursts := &burstLog{host: l}
	sched := NewConfettiScheduler(l, bursts, SchedulerOptions{
		Grace:  DefaultGrace,
		Random: rand.New(rand.NewSource(1)).Float64,
	})

	sched.Start(time.Second, DefaultIntroColors, nil)
	advance(l, 2*time.Second)

	require.NotEmpty(t, bursts.specs)
	for _, spec := range bursts.specs {
		assert.GreaterOrEqual(t, spec.OriginX, 0.0)
		assert.Less(t, spec.OriginX, 1.0)
		assert.GreaterOrEqual(t, spec.OriginY, 0.0)
		assert.Less(t, spec.OriginY, 0.5)
		assert.Equal(t, IntroBurst.ParticleCount, spec.ParticleCount)
		assert.Equal(t, DefaultIntroColors, spec.Colors)
	}
}

func TestScheduler_SelfTerminatesAtDeadline(t *testing.T) {
	l := schedule.NewLoop(epoch)
	bursts := &burstLog{host: l}
	sched := NewConfettiScheduler(l, bursts, SchedulerOptions{Grace: DefaultGrace})

	expired := 0
	sched.Start(500*time.Millisecond, DefaultIntroColors, func() { expired++ })
	advance(l, 700*time.Millisecond)

	assert.Less(t, bursts.last(), 500*time.Millisecond)
	assert.False(t, sched.Emitting())
	assert.Equal(t, 0, expired, "backstop fires only after the grace period")

	advance(l, 900*time.Millisecond)
	assert.Equal(t, 1, expired)
	assert.False(t, sched.Live())

	frames, timers := l.Pending()
	assert.Zero(t, frames)
	assert.Zero(t, timers)
}

func TestScheduler_RestartCancelsPreviousRun(t *testing.T) {
	l := schedule.NewLoop(epoch)
	bursts := &burstLog{host: l}
	sched := NewConfettiScheduler(l, bursts, SchedulerOptions{Grace: DefaultGrace})

	firstExpired := false
	first := sched.Start(time.Second, DefaultIntroColors, func() { firstExpired = true })
	second := sched.Start(time.Second, DefaultIntroColors, nil)
	require.NotSame(t, first, second)

	frames, timers := l.Pending()
	assert.Equal(t, 1, frames)
	assert.Equal(t, 1, timers)

	before := len(bursts.at)
	l.Tick(epoch.Add(frameStep))
	assert.Equal(t, before+1, len(bursts.at), "one live loop emits once per frame")

	advance(l, 2*time.Second)
	assert.False(t, firstExpired)
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	l := schedule.NewLoop(epoch)
	bursts := &burstLog{host: l}
	sched := NewConfettiScheduler(l, bursts, SchedulerOptions{Grace: DefaultGrace})

	h := sched.Start(time.Second, DefaultIntroColors, func() { t.Fatal("expired after cancel") })
	sched.Cancel(h)
	sched.Cancel(h)
	sched.Cancel(nil)

	emitted := len(bursts.at)
	advance(l, 2*time.Second)
	assert.Equal(t, emitted, len(bursts.at))
	assert.False(t, sched.Live())
}

func TestScheduler_StaleHandleIsDiscarded(t *testing.T) {
	l := schedule.NewLoop(epoch)
	bursts := &burstLog{host: l}
	sched := NewConfettiScheduler(l, bursts, SchedulerOptions{Grace: DefaultGrace})

	expired := false
	h := sched.Start(time.Second, DefaultIntroColors, func() { expired = true })
	sched.live = nil // the run was superseded without its callbacks being released

	l.Tick(epoch.Add(frameStep))
	sched.expire(h)

	assert.Len(t, bursts.at, 1, "only the burst fired by Start")
	assert.False(t, expired)
}

func TestIntro_AutoDismissesAfterGrace(t *testing.T) {
	audio := &fakeAudio{}
	s, l, bursts := newTestSession(t, 3500*time.Millisecond, 300*time.Millisecond, audio)
	s.Start()
	require.True(t, s.State().IntroVisible)
	require.True(t, s.Confetti().Emitting())

	advance(l, 3500*time.Millisecond)
	assert.Less(t, bursts.last(), 3500*time.Millisecond)
	assert.False(t, s.Confetti().Emitting())
	assert.True(t, s.State().IntroVisible)

	advance(l, 3800*time.Millisecond-time.Millisecond)
	assert.True(t, s.State().IntroVisible)

	advance(l, 3800*time.Millisecond+frameStep-time.Millisecond)
	assert.False(t, s.State().IntroVisible)
	assert.Equal(t, ReasonExpired, s.Intro().Reason())
	dismissed := s.Intro().DismissedAt().Sub(epoch)
	assert.GreaterOrEqual(t, dismissed, 3800*time.Millisecond)
	assert.Less(t, dismissed, 3800*time.Millisecond+frameStep)

	s.Close()
	assert.Zero(t, audio.Calls())
}

func TestIntro_UserDismissStopsConfettiAndStartsAudio(t *testing.T) {
	audio := &fakeAudio{}
	s, l, bursts := newTestSession(t, 30*time.Second, 300*time.Millisecond, audio)
	s.Start()

	advance(l, 1200*time.Millisecond)
	require.Equal(t, 1200*time.Millisecond, l.Now().Sub(epoch))
	s.Tap()

	assert.False(t, s.State().IntroVisible)
	assert.Equal(t, ReasonUser, s.Intro().Reason())
	assert.Equal(t, 1200*time.Millisecond, s.Intro().DismissedAt().Sub(epoch))
	assert.False(t, s.Confetti().Live())

	advance(l, 5*time.Second)
	assert.LessOrEqual(t, bursts.last(), 1200*time.Millisecond)
	assert.False(t, s.State().CardOpen, "the dismissing tap does not reach the card")

	s.Close()
	assert.Equal(t, 1, audio.Calls())
}

func TestIntro_RejectedAudioDoesNotDelayDismissal(t *testing.T) {
	audio := &fakeAudio{err: errors.New("no output device")}
	s, l, _ := newTestSession(t, time.Second, DefaultGrace, audio)
	s.Start()
	l.Tick(epoch.Add(frameStep))

	s.Tap()
	assert.False(t, s.State().IntroVisible)

	s.Close()
	assert.Equal(t, 1, audio.Calls())
}

func TestIntro_BlockedAudioDoesNotBlockDismissal(t *testing.T) {
	audio := &fakeAudio{block: true}
	s, l, _ := newTestSession(t, time.Second, DefaultGrace, audio)
	s.Start()
	l.Tick(epoch.Add(frameStep))

	s.Tap()
	assert.False(t, s.State().IntroVisible)

	// Close cancels the pending request and waits for it.
	s.Close()
	assert.Equal(t, 1, audio.Calls())
}

func TestIntro_DismissIsTerminal(t *testing.T) {
	audio := &fakeAudio{}
	s, l, _ := newTestSession(t, time.Second, DefaultGrace, audio)
	s.Start()

	assert.True(t, s.Intro().Dismiss())
	assert.False(t, s.Intro().Dismiss())

	s.Intro().Mount()
	assert.False(t, s.Confetti().Live())
	advance(l, 3*time.Second)
	assert.False(t, s.State().IntroVisible)
	assert.Equal(t, ReasonUser, s.Intro().Reason())

	s.Close()
	assert.Equal(t, 1, audio.Calls())
}

func TestIntro_TeardownReleasesEverything(t *testing.T) {
	s, l, bursts := newTestSession(t, time.Second, DefaultGrace, &fakeAudio{})
	s.Start()
	l.Tick(epoch.Add(frameStep))

	s.Close()
	frames, timers := l.Pending()
	assert.Zero(t, frames)
	assert.Zero(t, timers)

	emitted := len(bursts.at)
	advance(l, 3*time.Second)
	assert.Equal(t, emitted, len(bursts.at))
	assert.True(t, s.State().IntroVisible, "torn down, not dismissed")

	s.Tap()
	assert.True(t, s.State().IntroVisible)
}

func TestCard_CelebratesOnlyOnFirstOpen(t *testing.T) {
	s, l, bursts := newTestSession(t, time.Second, DefaultGrace, nil)
	s.Start()
	advance(l, 2*time.Second)
	require.False(t, s.State().IntroVisible)
	introBursts := len(bursts.at)

	advance(l, 5*time.Second)
	s.Tap()
	require.True(t, s.State().CardOpen)
	require.Len(t, bursts.at, introBursts+1)
	celebration := bursts.specs[introBursts]
	assert.Equal(t, CelebrationBurst.ParticleCount, celebration.ParticleCount)
	assert.Equal(t, 0.5, celebration.OriginX)
	assert.Equal(t, DefaultCelebrationColors, celebration.Colors)
	assert.Equal(t, 5*time.Second, bursts.last())

	advance(l, 6*time.Second)
	s.Tap()
	assert.False(t, s.State().CardOpen)
	assert.True(t, s.State().HasOpenedOnce)

	advance(l, 7*time.Second)
	s.Tap()
	assert.True(t, s.State().CardOpen)
	assert.Len(t, bursts.at, introBursts+1)
	assert.Equal(t, 7*time.Second, s.Card().ChangedAt().Sub(epoch))
}

func TestCard_IgnoredWhileIntroVisible(t *testing.T) {
	l := schedule.NewLoop(epoch)
	state := NewScreenState()
	bursts := &burstLog{host: l}
	card := NewCardReveal(&state, l, bursts, CardOptions{Logger: quietLogger()})

	assert.False(t, card.Toggle())
	assert.False(t, state.CardOpen)
	assert.Empty(t, bursts.at)

	state = state.DismissIntro()
	assert.True(t, card.Toggle())
	assert.True(t, card.Open())
	assert.True(t, card.HasOpenedOnce())
	assert.Len(t, bursts.at, 1)
}
