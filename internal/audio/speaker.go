package audio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
)

// The speaker is process-wide; beep drives a single output device.
var (
	speakerMu   sync.Mutex
	speakerRate beep.SampleRate
)

// Speaker loops music through the local sound device. It plays the MP3 at
// Path, or a synthesized melody when Path is empty.
type Speaker struct {
	Path   string
	Volume float64 // In beep's base-2 scale; 0 is unchanged, -1 is half

	ctrl   *beep.Ctrl
	closer func() error
}

// Play opens the track and starts looping it.
func (s *Speaker) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	streamer, format, closer, err := s.open()
	if err != nil {
		return err
	}
	if err := initSpeaker(format.SampleRate); err != nil {
		_ = closer()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	looped := beep.Loop(-1, streamer)
	s.ctrl = &beep.Ctrl{Streamer: &effects.Volume{
		Streamer: looped,
		Base:     2,
		Volume:   s.Volume,
	}}
	s.closer = closer
	speaker.Play(s.ctrl)
	return nil
}

// Stop silences the track and closes the file.
func (s *Speaker) Stop() {
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	speaker.Clear()
	if s.closer != nil {
		_ = s.closer()
	}
	s.ctrl, s.closer = nil, nil
}

func (s *Speaker) open() (beep.StreamSeeker, beep.Format, func() error, error) {
	if s.Path == "" {
		streamer, format := Melody(HappyBirthday, DefaultTempo)
		return streamer, format, func() error { return nil }, nil
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, beep.Format{}, nil, fmt.Errorf("open track: %w", err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return streamer, format, streamer.Close, nil
}

// initSpeaker initialises the device once per sample rate.
func initSpeaker(rate beep.SampleRate) error {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerRate == rate {
		return nil
	}
	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speakerRate = rate
	return nil
}
