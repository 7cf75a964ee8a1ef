package draw

import (
	"image"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Cell is one terminal character as it appears on screen.
type Cell struct {
	Ch rune
	FG colorful.Color
	BG colorful.Color
}

// Canvas is a truecolor drawing buffer with 2x vertical resolution using
// half-block characters, plus a text layer. Drawing follows painter's order:
// a pixel drawn over a text cell erases the text.
//
// Render only writes cells that changed since the previous Render.
type Canvas struct {
	termWidth      int // Terminal columns
	termHeight     int // Terminal rows
	subPixelHeight int // termHeight * 2

	pixels []colorful.Color // [y * termWidth + x]
	text   []rune           // [row * termWidth + col], 0 = no text
	textFG []colorful.Color

	background colorful.Color
	prev       []Cell
	fresh      bool // prev is invalid, repaint everything

	renderBuf       strings.Builder
	numBuf          [20]byte
	intersectionBuf []float64
}

// NewCanvas creates a canvas for the given terminal dimensions.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.Resize(width, height)
	return c
}

// Resize reallocates buffers when the terminal size changed and forces a full repaint.
func (c *Canvas) Resize(termWidth, termHeight int) {
	if termWidth == c.termWidth && termHeight == c.termHeight && c.pixels != nil {
		return
	}
	termWidth = max(termWidth, 0)
	termHeight = max(termHeight, 0)
	c.termWidth = termWidth
	c.termHeight = termHeight
	c.subPixelHeight = termHeight * 2
	c.pixels = make([]colorful.Color, c.subPixelHeight*termWidth)
	c.text = make([]rune, termHeight*termWidth)
	c.textFG = make([]colorful.Color, termHeight*termWidth)
	c.prev = make([]Cell, termHeight*termWidth)
	c.fresh = true
}

// ForceRedraw makes the next Render repaint every cell.
func (c *Canvas) ForceRedraw() {
	c.fresh = true
}

// Clear fills every pixel with bg and drops all text.
func (c *Canvas) Clear(bg colorful.Color) {
	c.background = bg
	for i := range c.pixels {
		c.pixels[i] = bg
	}
	clear(c.text)
}

// Width returns the pixel width (terminal columns).
func (c *Canvas) Width() int {
	return c.termWidth
}

// Height returns the pixel height (twice the terminal rows).
func (c *Canvas) Height() int {
	return c.subPixelHeight
}

// TerminalWidth returns the terminal column count.
func (c *Canvas) TerminalWidth() int {
	return c.termWidth
}

// TerminalHeight returns the terminal row count.
func (c *Canvas) TerminalHeight() int {
	return c.termHeight
}

// Set paints one pixel. Out-of-range coordinates are ignored.
func (c *Canvas) Set(x, y int, col colorful.Color) {
	if x < 0 || x >= c.termWidth || y < 0 || y >= c.subPixelHeight {
		return
	}
	c.pixels[y*c.termWidth+x] = col
	c.text[(y/2)*c.termWidth+x] = 0
}

// SetFloat paints the pixel nearest to (x, y).
func (c *Canvas) SetFloat(x, y float64, col colorful.Color) {
	c.Set(int(math.Floor(x)), int(math.Floor(y)), col)
}

// At returns the pixel color at (x, y), or the background when out of range.
func (c *Canvas) At(x, y int) colorful.Color {
	if x < 0 || x >= c.termWidth || y < 0 || y >= c.subPixelHeight {
		return c.background
	}
	return c.pixels[y*c.termWidth+x]
}

// FillRect paints the pixels of r, clipped to the canvas.
func (c *Canvas) FillRect(r image.Rectangle, col colorful.Color) {
	r = r.Intersect(c.bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c.Set(x, y, col)
		}
	}
}

// Blend mixes col into every pixel of r by amount t in [0,1].
func (c *Canvas) Blend(r image.Rectangle, col colorful.Color, t float64) {
	r = r.Intersect(c.bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := y*c.termWidth + x
			c.pixels[i] = c.pixels[i].BlendRgb(col, t)
		}
	}
}

// DrawImage copies img into the canvas with its top-left corner at at,
// clipped to clip. Each image pixel maps to one canvas pixel.
func (c *Canvas) DrawImage(img image.Image, at image.Point, clip image.Rectangle) {
	b := img.Bounds()
	dst := b.Sub(b.Min).Add(at).Intersect(clip).Intersect(c.bounds())
	for y := dst.Min.Y; y < dst.Max.Y; y++ {
		for x := dst.Min.X; x < dst.Max.X; x++ {
			col, _ := colorful.MakeColor(img.At(b.Min.X+x-at.X, b.Min.Y+y-at.Y))
			c.Set(x, y, col)
		}
	}
}

// FillPolygon fills a polygon in pixel coordinates using a scanline fill.
func (c *Canvas) FillPolygon(points []Point, col colorful.Color) {
	if len(points) < 3 {
		return
	}

	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	for y := int(math.Floor(minY)); y <= int(math.Ceil(maxY)); y++ {
		scanY := float64(y) + 0.5

		intersections := c.intersectionBuf[:0]
		n := len(points)
		for i := 0; i < n; i++ {
			p1 := points[i]
			p2 := points[(i+1)%n]
			if (p1.Y <= scanY && p2.Y > scanY) || (p2.Y <= scanY && p1.Y > scanY) {
				t := (scanY - p1.Y) / (p2.Y - p1.Y)
				intersections = append(intersections, p1.X+t*(p2.X-p1.X))
			}
		}
		c.intersectionBuf = intersections

		sort.Float64s(intersections)
		for i := 0; i+1 < len(intersections); i += 2 {
			for x := int(math.Ceil(intersections[i])); x <= int(math.Floor(intersections[i+1])); x++ {
				c.Set(x, y, col)
			}
		}
	}
}

// SetText writes s starting at the 0-based cell (col, row). Runes falling
// outside the canvas are dropped.
func (c *Canvas) SetText(col, row int, s string, fg colorful.Color) {
	if row < 0 || row >= c.termHeight {
		return
	}
	for _, r := range s {
		if col >= 0 && col < c.termWidth && r != ' ' {
			i := row*c.termWidth + col
			c.text[i] = r
			c.textFG[i] = fg
		}
		col++
	}
}

// Text returns the text layer of row, with a space wherever no text is set.
func (c *Canvas) Text(row int) string {
	if row < 0 || row >= c.termHeight {
		return ""
	}
	out := make([]rune, c.termWidth)
	for col := range out {
		out[col] = ' '
		if r := c.text[row*c.termWidth+col]; r != 0 {
			out[col] = r
		}
	}
	return string(out)
}

func (c *Canvas) bounds() image.Rectangle {
	return image.Rect(0, 0, c.termWidth, c.subPixelHeight)
}

// cell composes the visible character at (col, row).
func (c *Canvas) cell(col, row int) Cell {
	top := c.pixels[(row*2)*c.termWidth+col]
	bottom := c.pixels[(row*2+1)*c.termWidth+col]
	if r := c.text[row*c.termWidth+col]; r != 0 {
		return Cell{Ch: r, FG: c.textFG[row*c.termWidth+col], BG: top.BlendRgb(bottom, 0.5)}
	}
	if top == bottom {
		return Cell{Ch: ' ', BG: top}
	}
	return Cell{Ch: BlockUpperHalf, FG: top, BG: bottom}
}

// Render writes every changed cell to w in a single write. Wrap slow
// writers in a ChunkWriter.
func (c *Canvas) Render(w io.Writer) error {
	c.renderBuf.Reset()

	var lastFG, lastBG colorful.Color
	styled, fgSet := false, false
	for row := 0; row < c.termHeight; row++ {
		cursorCol := -1
		for col := 0; col < c.termWidth; col++ {
			i := row*c.termWidth + col
			cell := c.cell(col, row)
			if !c.fresh && c.prev[i] == cell {
				continue
			}
			c.prev[i] = cell

			if cursorCol != col {
				c.renderBuf.WriteString("\033[")
				c.renderBuf.Write(strconv.AppendInt(c.numBuf[:0], int64(row+1), 10))
				c.renderBuf.WriteByte(';')
				c.renderBuf.Write(strconv.AppendInt(c.numBuf[:0], int64(col+1), 10))
				c.renderBuf.WriteByte('H')
			}
			if !styled || cell.BG != lastBG {
				c.renderBuf.WriteString(BG(cell.BG))
				lastBG = cell.BG
			}
			if cell.Ch != ' ' && (!fgSet || cell.FG != lastFG) {
				c.renderBuf.WriteString(FG(cell.FG))
				lastFG, fgSet = cell.FG, true
			}
			styled = true
			c.renderBuf.WriteRune(cell.Ch)
			cursorCol = col + 1
		}
	}
	c.fresh = false
	if styled {
		c.renderBuf.WriteString(ResetStyle)
	}

	if c.renderBuf.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(w, c.renderBuf.String())
	return err
}
