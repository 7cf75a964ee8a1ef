// Package schedule provides the single-threaded host loop that drives frame
// callbacks and one-shot timers for a viewer session.
//
// A Loop never spawns goroutines. All callbacks run on the goroutine that calls
// Tick, so code scheduled through the same Loop never races with itself.
package schedule

import (
	"maps"
	"slices"
	"time"
)

// FrameID identifies a pending frame callback. The zero value is never issued.
type FrameID uint64

// TimerID identifies a pending one-shot timer. The zero value is never issued.
type TimerID uint64

type timer struct {
	due time.Time
	fn  func()
}

// Loop is a cooperative scheduler stand-in for a display's frame clock.
// Frame callbacks requested before a Tick run during that Tick; callbacks
// requested while a Tick is in progress run on the next one.
type Loop struct {
	now    time.Time
	nextID uint64
	frames map[FrameID]func(now time.Time)
	timers map[TimerID]*timer
	closed bool
}

// NewLoop creates a loop whose clock starts at start.
func NewLoop(start time.Time) *Loop {
	return &Loop{
		now:    start,
		frames: make(map[FrameID]func(time.Time)),
		timers: make(map[TimerID]*timer),
	}
}

// Now returns the loop clock: the time passed to the latest Tick.
func (l *Loop) Now() time.Time {
	return l.now
}

// RequestFrame schedules fn to run once on the next Tick.
// Returns 0 if the loop is closed.
func (l *Loop) RequestFrame(fn func(now time.Time)) FrameID {
	if l.closed || fn == nil {
		return 0
	}
	l.nextID++
	id := FrameID(l.nextID)
	l.frames[id] = fn
	return id
}

// CancelFrame drops a pending frame callback. Unknown or already-run ids are ignored.
func (l *Loop) CancelFrame(id FrameID) {
	delete(l.frames, id)
}

// AfterFunc arms a one-shot timer that fires on the first Tick at or after Now()+d.
// Returns 0 if the loop is closed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) TimerID {
	if l.closed || fn == nil {
		return 0
	}
	l.nextID++
	id := TimerID(l.nextID)
	l.timers[id] = &timer{due: l.now.Add(d), fn: fn}
	return id
}

// CancelTimer disarms a timer. Unknown or already-fired ids are ignored.
func (l *Loop) CancelTimer(id TimerID) {
	delete(l.timers, id)
}

// Pending reports how many frame callbacks and timers are outstanding.
func (l *Loop) Pending() (frames, timers int) {
	return len(l.frames), len(l.timers)
}

// Tick advances the clock to now, fires every due timer in deadline order, then
// runs the frame callbacks that were requested before this call.
// The clock never moves backwards.
func (l *Loop) Tick(now time.Time) {
	if l.closed {
		return
	}
	if now.After(l.now) {
		l.now = now
	}
	// Work scheduled from inside a callback waits for the next tick.
	boundary := l.nextID

	for {
		id, ok := l.nextDueTimer(boundary)
		if !ok {
			break
		}
		t := l.timers[id]
		delete(l.timers, id)
		t.fn()
		if l.closed {
			return
		}
	}

	for _, id := range slices.Sorted(maps.Keys(l.frames)) {
		if uint64(id) > boundary {
			continue
		}
		fn, ok := l.frames[id]
		if !ok {
			// Cancelled by an earlier callback in this tick.
			continue
		}
		delete(l.frames, id)
		fn(l.now)
		if l.closed {
			return
		}
	}
}

// nextDueTimer picks the earliest due timer armed before boundary.
func (l *Loop) nextDueTimer(boundary uint64) (TimerID, bool) {
	var (
		bestID TimerID
		best   *timer
	)
	for id, t := range l.timers {
		if uint64(id) > boundary || t.due.After(l.now) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && id < bestID) {
			bestID, best = id, t
		}
	}
	return bestID, best != nil
}

// Close drops all pending work. Later requests are no-ops.
func (l *Loop) Close() {
	l.closed = true
	clear(l.frames)
	clear(l.timers)
}
