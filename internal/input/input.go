// Package input turns the viewer's raw key bytes into per-frame actions.
package input

import (
	"bufio"
	"io"
)

// Control bytes.
const (
	ctrlC  = 0x03
	ctrlD  = 0x04
	escape = 0x1b
)

// Input represents the current frame's input state.
type Input struct {
	Taps    int  // Space, enter and other printable keys pressed this frame
	Quit    bool // q, Ctrl-C, Ctrl-D or the stream ended
	Pressed []byte
}

// Stream delivers input bytes via a channel.
type Stream struct {
	ch     chan byte
	done   chan struct{}
	closed bool // ch was closed by the reader
}

// StartStream spawns a goroutine that reads from r and sends bytes to the
// stream. The goroutine exits when r fails or Stop is called and another byte
// arrives.
func StartStream(r io.Reader) *Stream {
	s := &Stream{
		ch:   make(chan byte, 128),
		done: make(chan struct{}),
	}
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	go func() {
		defer close(s.ch)
		for {
			b, err := br.ReadByte()
			if err != nil {
				return
			}
			select {
			case s.ch <- b:
			case <-s.done:
				return
			}
		}
	}()
	return s
}

// Stop releases the reader goroutine.
func (s *Stream) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// ReadInput drains all available bytes from the stream without blocking.
func ReadInput(s *Stream) Input {
	var buf []byte
drain:
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}

	in := Parse(buf)
	if s.closed {
		in.Quit = true
	}
	return in
}

// Parse interprets a batch of key bytes. Escape sequences such as arrow keys
// are skipped whole.
func Parse(buf []byte) Input {
	in := Input{Pressed: buf}
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		switch {
		case b == escape && i+1 < len(buf) && (buf[i+1] == '[' || buf[i+1] == 'O'):
			// CSI or SS3: skip parameters up to the final byte.
			i += 2
			for i < len(buf) && (buf[i] < 0x40 || buf[i] > 0x7e) {
				i++
			}
		case b == 'q' || b == 'Q' || b == ctrlC || b == ctrlD:
			in.Quit = true
		case b == ' ' || b == '\r' || b == '\n':
			in.Taps++
		case b > ' ' && b < 0x7f:
			in.Taps++
		}
	}
	return in
}
