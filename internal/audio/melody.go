package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
)

// Note is one melody step. Pitch is a MIDI note number; 0 is a rest.
type Note struct {
	Pitch int
	Beats float64
}

// DefaultTempo is the melody tempo in beats per minute.
const DefaultTempo = 100

const (
	melodyRate = beep.SampleRate(44100)
	noteGap    = 30 * time.Millisecond // Silence between notes so repeats are audible
	noteDecay  = 3.0                   // Exponential decay per second of a note's envelope
)

// HappyBirthday is the four-phrase birthday tune in C major, with a bar of rest
// before it repeats.
var HappyBirthday = []Note{
	{67, 0.75}, {67, 0.25}, {69, 1}, {67, 1}, {72, 1}, {71, 2},
	{67, 0.75}, {67, 0.25}, {69, 1}, {67, 1}, {74, 1}, {72, 2},
	{67, 0.75}, {67, 0.25}, {79, 1}, {76, 1}, {72, 1}, {71, 1}, {69, 2},
	{77, 0.75}, {77, 0.25}, {76, 1}, {72, 1}, {74, 1}, {72, 3},
	{0, 3},
}

// Frequency returns the frequency in Hz of a MIDI note number.
func Frequency(pitch int) float64 {
	return 440 * math.Pow(2, float64(pitch-69)/12)
}

// Melody renders notes at tempo into a seekable buffer ready for looping.
func Melody(notes []Note, tempo float64) (beep.StreamSeeker, beep.Format) {
	format := beep.Format{SampleRate: melodyRate, NumChannels: 2, Precision: 2}
	buf := beep.NewBuffer(format)
	beat := time.Duration(float64(time.Minute) / tempo)

	for _, n := range notes {
		length := time.Duration(n.Beats * float64(beat))
		samples := format.SampleRate.N(length)
		gap := min(format.SampleRate.N(noteGap), samples)

		if n.Pitch <= 0 {
			buf.Append(generators.Silence(samples))
			continue
		}
		tone, err := generators.SineTone(format.SampleRate, Frequency(n.Pitch))
		if err != nil {
			// Only pitches above Nyquist fail; skip them as rests.
			buf.Append(generators.Silence(samples))
			continue
		}
		buf.Append(&envelope{
			Streamer: beep.Take(samples-gap, tone),
			rate:     format.SampleRate,
			gain:     0.3,
		})
		buf.Append(generators.Silence(gap))
	}
	return buf.Streamer(0, buf.Len()), format
}

// envelope shapes a tone with a short attack and an exponential decay.
type envelope struct {
	beep.Streamer
	rate beep.SampleRate
	gain float64
	pos  int
}

func (e *envelope) Stream(samples [][2]float64) (int, bool) {
	n, ok := e.Streamer.Stream(samples)
	attack := e.rate.N(5 * time.Millisecond)
	for i := 0; i < n; i++ {
		t := e.rate.D(e.pos).Seconds()
		g := e.gain * math.Exp(-t*noteDecay)
		if e.pos < attack {
			g *= float64(e.pos) / float64(attack)
		}
		samples[i][0] *= g
		samples[i][1] *= g
		e.pos++
	}
	return n, ok
}
