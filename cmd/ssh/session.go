package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/google/uuid"

	"github.com/tomz197/greeting/internal/audio"
	"github.com/tomz197/greeting/internal/config"
	"github.com/tomz197/greeting/internal/draw"
	"github.com/tomz197/greeting/internal/loop"
)

// cardMiddleware runs one independent viewer per SSH session.
func cardMiddleware(cfg config.Config, logger *log.Logger, viewers *viewerSet) wish.Middleware {
	audioKind := cfg.SSH.Audio
	if audioKind == audio.KindSpeaker {
		// The server's speaker is not the viewer's.
		logger.Warn("speaker audio is not available over SSH, using the bell")
		audioKind = audio.KindBell
	}

	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			pty, winCh, ok := sess.Pty()
			if !ok {
				fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
				return
			}

			id := uuid.NewString()
			vlog := logger.With("session", id, "user", sess.User())
			vlog.Info("viewer connected", "term", pty.Term,
				"size", fmt.Sprintf("%dx%d", pty.Window.Width, pty.Window.Height))

			// Track terminal size from window change events
			sizes := newSizeTracker(pty.Window.Width, pty.Window.Height)
			go func() {
				for win := range winCh {
					sizes.update(win.Width, win.Height)
				}
			}()

			ctx, done := viewers.add(id, sess.Context())
			defer done()

			v := loop.NewViewer(sess, loop.Options{
				Config: cfg,
				Player: func(out io.Writer) audio.Player {
					p, err := audio.New(audioKind, "", 0, out)
					if err != nil {
						vlog.Warn("audio disabled", "err", err)
						return audio.Silent{}
					}
					return p
				},
				TermSizeFunc: sizes.getSize,
				Inactivity:   cfg.SSH.Inactivity,
				Logger:       vlog,
			})
			if err := v.Run(ctx, sess); err != nil {
				vlog.Error("viewer failed", "err", err)
			}

			vlog.Info("viewer disconnected", "audio_attempts", v.Audio().Attempts())
			next(sess)
		}
	}
}

// viewerSet tracks running viewers so shutdown can close them cleanly.
type viewerSet struct {
	mu     sync.Mutex
	active map[string]context.CancelFunc
	closed bool
}

func newViewerSet() *viewerSet {
	return &viewerSet{active: make(map[string]context.CancelFunc)}
}

// add registers a viewer. The returned context ends with parent or CloseAll;
// call done when the viewer has finished.
func (s *viewerSet) add(id string, parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		cancel()
		return ctx, func() {}
	}
	s.active[id] = cancel
	return ctx, func() {
		cancel()
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	}
}

// Len returns the number of running viewers.
func (s *viewerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// CloseAll ends every running viewer and refuses new ones.
func (s *viewerSet) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, cancel := range s.active {
		cancel()
	}
}

// sizeTracker tracks terminal size from SSH window change events.
type sizeTracker struct {
	mu     sync.RWMutex
	width  int
	height int
}

func newSizeTracker(width, height int) *sizeTracker {
	return &sizeTracker{width: width, height: height}
}

func (s *sizeTracker) update(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

func (s *sizeTracker) getSize() (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, nil
}

// Ensure sizeTracker.getSize satisfies draw.TermSizeFunc
var _ draw.TermSizeFunc = (*sizeTracker)(nil).getSize
