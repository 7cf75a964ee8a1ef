package audio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tomz197/greeting/internal/draw"
)

// Bell rings the viewer's terminal bell once. It is the only sound that reaches
// a remote terminal.
type Bell struct {
	W io.Writer
}

// Play implements Player.
func (b Bell) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.W == nil {
		return ErrUnavailable
	}
	if err := draw.Bell(b.W); err != nil {
		return fmt.Errorf("ring bell: %w", err)
	}
	return nil
}

// Kinds of audio output selectable in configuration.
const (
	KindSpeaker = "speaker"
	KindBell    = "bell"
	KindNone    = "none"
)

// New builds the player named by kind. w is the viewer's terminal, used by the bell.
func New(kind, path string, volume float64, w io.Writer) (Player, error) {
	switch strings.ToLower(kind) {
	case KindSpeaker:
		return &Speaker{Path: path, Volume: volume}, nil
	case KindBell:
		return Bell{W: w}, nil
	case KindNone, "":
		return Silent{}, nil
	default:
		return nil, fmt.Errorf("unknown audio kind %q", kind)
	}
}
