package draw

import (
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Point represents a 2D coordinate.
type Point struct {
	X, Y float64
}

// Block characters for drawing.
const (
	BlockFull      = '█'
	BlockUpperHalf = '▀'
	BlockLowerHalf = '▄'
)

// ResetStyle restores the terminal's default colors.
const ResetStyle = "\033[0m"

// FG returns the truecolor escape sequence selecting c as foreground.
func FG(c colorful.Color) string {
	return sgr("38", c)
}

// BG returns the truecolor escape sequence selecting c as background.
func BG(c colorful.Color) string {
	return sgr("48", c)
}

func sgr(kind string, c colorful.Color) string {
	r, g, b := c.Clamped().RGB255()
	buf := make([]byte, 0, 24)
	buf = append(buf, "\033["...)
	buf = append(buf, kind...)
	buf = append(buf, ";2;"...)
	buf = strconv.AppendUint(buf, uint64(r), 10)
	buf = append(buf, ';')
	buf = strconv.AppendUint(buf, uint64(g), 10)
	buf = append(buf, ';')
	buf = strconv.AppendUint(buf, uint64(b), 10)
	buf = append(buf, 'm')
	return string(buf)
}

// Hex parses a "#rrggbb" color, returning fallback when s is malformed.
func Hex(s string, fallback colorful.Color) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return fallback
	}
	return c
}

// MustHex parses a "#rrggbb" literal and panics when malformed.
func MustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Gradient returns the color at t in [0,1] along evenly spaced stops, blended in Lab space.
func Gradient(t float64, stops ...colorful.Color) colorful.Color {
	switch len(stops) {
	case 0:
		return colorful.Color{}
	case 1:
		return stops[0]
	}
	t = min(max(t, 0), 1)
	seg := t * float64(len(stops)-1)
	i := int(seg)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	if seg == float64(i) {
		return stops[i]
	}
	return stops[i].BlendLab(stops[i+1], seg-float64(i)).Clamped()
}
