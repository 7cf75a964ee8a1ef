// Package card composes one frame of the greeting: background, card with its
// message, the sliding photo cover and the intro overlay.
package card

import (
	"image"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/tomz197/greeting/internal/config"
	"github.com/tomz197/greeting/internal/draw"
	"github.com/tomz197/greeting/internal/reveal"
)

// Palette.
var (
	rose50   = draw.MustHex("#fff1f2")
	rose100  = draw.MustHex("#ffe4e6")
	rose200  = draw.MustHex("#fecdd3")
	rose300  = draw.MustHex("#fda4af")
	rose400  = draw.MustHex("#fb7185")
	rose500  = draw.MustHex("#f43f5e")
	rose700  = draw.MustHex("#be123c")
	pink200  = draw.MustHex("#fbcfe8")
	pink500  = draw.MustHex("#ec4899")
	amber200 = draw.MustHex("#fde68a")
	amber300 = draw.MustHex("#fcd34d")
	gray700  = draw.MustHex("#374151")
	gray800  = draw.MustHex("#1f2937")
	slate950 = draw.MustHex("#020617")
)

// Card size limits in terminal cells.
const (
	maxCardCols = 72
	maxCardRows = 24
	minCardCols = 24
	minCardRows = 8
	cardPadding = 3 // Columns between the card edge and the message
)

// tooSmall replaces the card when the terminal cannot fit it.
const tooSmall = "Make the terminal a little bigger ♥"

// overlayDim is how much of the slate overlay covers the scene during the intro.
const overlayDim = 0.8

// Frame is everything that changes between two drawn frames.
type Frame struct {
	State     reveal.ScreenState
	Now       time.Time
	ChangedAt time.Time // Last time the card was opened or closed
}

// Options configures a Renderer.
type Options struct {
	Intro  config.IntroConfig
	Card   config.CardConfig
	Logger *log.Logger
}

// Renderer draws frames. It caches the background and wrapped text per
// terminal size, so one Renderer belongs to one viewer.
type Renderer struct {
	intro config.IntroConfig
	card  config.CardConfig

	left, right *Photo

	bg          []colorful.Color
	bgW, bgH    int
	wrapWidth   int
	message     []line
	heartPoints []draw.Point
}

// line is one row of the card's inside message.
type line struct {
	text  string
	color colorful.Color
	right bool
}

// New creates a renderer. Photos that fail to load are replaced by the
// built-in cover and reported at warn level.
func New(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	r := &Renderer{
		intro: opts.Intro,
		card:  opts.Card,
	}

	genLeft, genRight := GeneratedCover()
	r.left = loadOr(opts.Card.LeftPhoto, genLeft, logger)
	r.right = loadOr(opts.Card.RightPhoto, genRight, logger)
	return r
}

func loadOr(path string, fallback *Photo, logger *log.Logger) *Photo {
	if path == "" {
		return fallback
	}
	p, err := LoadPhoto(path)
	if err != nil {
		logger.Warn("using built-in cover", "path", path, "err", err)
		return fallback
	}
	return p
}

// layout is the position of every element in terminal cells.
type layout struct {
	card     image.Rectangle // Cells covered by the card
	badgeRow int
	hintRow  int
	fits     bool
}

func layoutFor(cols, rows int) layout {
	w := min(cols-4, maxCardCols)
	h := min(rows-5, maxCardRows)
	if w < minCardCols || h < minCardRows {
		return layout{}
	}
	top := (rows - h - 3) / 2
	left := (cols - w) / 2
	return layout{
		card:     image.Rect(left, top+3, left+w, top+3+h),
		badgeRow: top,
		hintRow:  top + 1,
		fits:     true,
	}
}

// pixels converts a cell rectangle to canvas pixels.
func pixels(r image.Rectangle) image.Rectangle {
	return image.Rect(r.Min.X, r.Min.Y*2, r.Max.X, r.Max.Y*2)
}

// Progress returns how far the cover has slid open, in [0,1].
func (r *Renderer) Progress(f Frame) float64 {
	if !f.State.HasOpenedOnce {
		return 0
	}
	t := 1.0
	if r.card.RevealDuration > 0 {
		t = float64(f.Now.Sub(f.ChangedAt)) / float64(r.card.RevealDuration)
		t = min(max(t, 0), 1)
	}
	eased := 1 - math.Pow(1-t, 3)
	if f.State.CardOpen {
		return eased
	}
	return 1 - eased
}

// Draw paints f onto c. Confetti is drawn separately on top.
func (r *Renderer) Draw(c *draw.Canvas, f Frame) {
	cols, rows := c.TerminalWidth(), c.TerminalHeight()
	r.drawBackground(c)

	l := layoutFor(cols, rows)
	if !l.fits {
		centerText(c, rows/2, tooSmall, rose50)
		return
	}

	r.drawCard(c, l.card, r.Progress(f))

	// The overlay only dims pixels, so text under it is skipped.
	if f.State.IntroVisible {
		r.drawIntro(c, f)
		return
	}

	centerText(c, l.badgeRow, r.card.Badge, rose100)
	hint := r.card.HintClosed
	if f.State.CardOpen {
		hint = r.card.HintOpen
	}
	centerText(c, l.hintRow, hint, rose200)
}

// drawBackground fills the canvas with the diagonal rose→pink→amber wash.
func (r *Renderer) drawBackground(c *draw.Canvas) {
	w, h := c.Width(), c.Height()
	if r.bgW != w || r.bgH != h {
		r.bgW, r.bgH = w, h
		r.bg = make([]colorful.Color, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				t := (float64(x)/float64(max(w-1, 1)) + float64(y)/float64(max(h-1, 1))) / 2
				r.bg[y*w+x] = draw.Gradient(t, rose700, pink500, amber300)
			}
		}
	}
	c.Clear(rose700)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c.Set(x, y, r.bg[y*w+x])
		}
	}
}

// drawCard paints the framed card, its message and the cover halves.
func (r *Renderer) drawCard(c *draw.Canvas, cells image.Rectangle, progress float64) {
	px := pixels(cells)

	// Gradient frame one pixel wide.
	for y := px.Min.Y - 1; y <= px.Max.Y; y++ {
		for x := px.Min.X - 1; x <= px.Max.X; x++ {
			t := float64(x-px.Min.X) / float64(max(px.Dx(), 1))
			c.Set(x, y, draw.Gradient(t, pink500, rose500, amber300))
		}
	}
	c.FillRect(px, rose50)

	if progress > 0 {
		r.drawMessage(c, cells, progress)
	}

	half := px.Dx() / 2
	shift := int(math.Round(progress * float64(half)))
	if shift >= half {
		return
	}
	leftImg := r.left.Fit(half, px.Dy())
	rightImg := r.right.Fit(px.Dx()-half, px.Dy())
	c.DrawImage(leftImg, image.Pt(px.Min.X-shift, px.Min.Y), px)
	c.DrawImage(rightImg, image.Pt(px.Min.X+half+shift, px.Min.Y), px)

	// Seam between the closed halves.
	if shift == 0 {
		seam := image.Rect(px.Min.X+half, px.Min.Y, px.Min.X+half+1, px.Max.Y)
		c.Blend(seam, rose700, 0.35)
	}
}

// drawMessage writes the inside text, fading it in with progress.
func (r *Renderer) drawMessage(c *draw.Canvas, cells image.Rectangle, progress float64) {
	width := cells.Dx() - 2*cardPadding
	lines := r.wrap(width)

	start := cells.Min.Y + max((cells.Dy()-len(lines))/2, 1)
	for i, ln := range lines {
		row := start + i
		if row >= cells.Max.Y-1 {
			break
		}
		col := cells.Min.X + cardPadding
		if ln.right {
			col = cells.Max.X - cardPadding - runewidth.StringWidth(ln.text)
		}
		c.SetText(col, row, ln.text, rose50.BlendRgb(ln.color, progress))
	}

	// A small heart below the signature.
	if last := start + len(lines); last < cells.Max.Y-1 && progress >= 1 {
		cx := float64(cells.Max.X - cardPadding - 2)
		cy := float64(last*2 + 1)
		r.heartPoints = draw.Heart(cx, cy, 4, 2, r.heartPoints)
		c.FillPolygon(r.heartPoints, rose400)
	}
}

// wrap lays the message out for width columns, reusing the previous result.
func (r *Renderer) wrap(width int) []line {
	if width == r.wrapWidth && r.message != nil {
		return r.message
	}
	r.wrapWidth = width

	var out []line
	add := func(text string, col colorful.Color) {
		for _, s := range strings.Split(wordwrap.String(text, width), "\n") {
			out = append(out, line{text: runewidth.Truncate(s, width, "…"), color: col})
		}
	}
	add(r.card.Eyebrow, rose400)
	out = append(out, line{})
	add(r.card.Heading, gray800)
	out = append(out, line{})
	add(r.card.Greeting, gray700)
	for _, p := range r.card.Paragraphs {
		out = append(out, line{})
		add(p, gray700)
	}
	out = append(out, line{})
	out = append(out, line{text: runewidth.Truncate(r.card.Signature, width, "…"), color: rose500, right: true})

	r.message = out
	return out
}

// drawIntro dims the scene and writes the title, subtitle and hint.
func (r *Renderer) drawIntro(c *draw.Canvas, f Frame) {
	c.Blend(image.Rect(0, 0, c.Width(), c.Height()), slate950, overlayDim)

	rows := c.TerminalHeight()
	mid := rows / 2

	title := spaced(r.intro.Title)
	if runewidth.StringWidth(title) > c.TerminalWidth()-2 {
		title = r.intro.Title
	}
	// Shimmer: the gradient drifts across the letters.
	phase := float64(f.Now.UnixMilli()%3000) / 3000
	col := (c.TerminalWidth() - runewidth.StringWidth(title)) / 2
	n := max(len([]rune(title))-1, 1)
	for i, ch := range []rune(title) {
		t := math.Mod(float64(i)/float64(n)+phase, 1)
		c.SetText(col+i, mid-2, string(ch), draw.Gradient(t, amber200, pink200, rose300, amber200))
	}

	centerText(c, mid, r.intro.Subtitle, rose100)
	centerText(c, mid+2, r.intro.Hint, rose200)
}

// spaced puts one space between letters and three between words.
func spaced(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.Join(strings.Split(w, ""), " ")
	}
	return strings.Join(words, "   ")
}

// centerText writes s centred on row, truncating it to the canvas width.
func centerText(c *draw.Canvas, row int, s string, fg colorful.Color) {
	cols := c.TerminalWidth()
	s = runewidth.Truncate(s, cols, "…")
	c.SetText((cols-runewidth.StringWidth(s))/2, row, s, fg)
}
