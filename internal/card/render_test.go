package card

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/greeting/internal/config"
	"github.com/tomz197/greeting/internal/draw"
	"github.com/tomz197/greeting/internal/reveal"
)

var epoch = time.Date(2025, 5, 11, 9, 0, 0, 0, time.UTC)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	cfg := config.Default()
	return New(Options{Intro: cfg.Intro, Card: cfg.Card, Logger: log.New(&strings.Builder{})})
}

// screenText joins every text row of the canvas.
func screenText(c *draw.Canvas) string {
	rows := make([]string, c.TerminalHeight())
	for i := range rows {
		rows[i] = c.Text(i)
	}
	return strings.Join(rows, "\n")
}

func TestLayout(t *testing.T) {
	assert.False(t, layoutFor(20, 40).fits)
	assert.False(t, layoutFor(120, 10).fits)

	l := layoutFor(160, 50)
	require.True(t, l.fits)
	assert.Equal(t, maxCardCols, l.card.Dx())
	assert.Equal(t, maxCardRows, l.card.Dy())
	assert.Equal(t, (160-maxCardCols)/2, l.card.Min.X)
	assert.Equal(t, l.badgeRow+3, l.card.Min.Y)
	assert.LessOrEqual(t, l.card.Max.Y, 50)

	small := layoutFor(40, 20)
	require.True(t, small.fits)
	assert.Equal(t, 36, small.card.Dx())
	assert.Equal(t, 15, small.card.Dy())
}

func TestProgress(t *testing.T) {
	r := newRenderer(t)
	d := r.card.RevealDuration

	closed := reveal.NewScreenState().DismissIntro()
	assert.Zero(t, r.Progress(Frame{State: closed, Now: epoch}))

	open, _ := closed.ToggleCard()
	assert.Zero(t, r.Progress(Frame{State: open, Now: epoch, ChangedAt: epoch}))
	mid := r.Progress(Frame{State: open, Now: epoch.Add(d / 2), ChangedAt: epoch})
	assert.Greater(t, mid, 0.5, "eased out")
	assert.Less(t, mid, 1.0)
	assert.Equal(t, 1.0, r.Progress(Frame{State: open, Now: epoch.Add(2 * d), ChangedAt: epoch}))

	reclosed, celebrate := open.ToggleCard()
	assert.False(t, celebrate)
	assert.Equal(t, 1.0, r.Progress(Frame{State: reclosed, Now: epoch, ChangedAt: epoch}))
	assert.Zero(t, r.Progress(Frame{State: reclosed, Now: epoch.Add(d), ChangedAt: epoch}))
}

func TestDraw_Intro(t *testing.T) {
	r := newRenderer(t)
	c := draw.NewCanvas(120, 40)
	r.Draw(c, Frame{State: reveal.NewScreenState(), Now: epoch})

	text := screenText(c)
	assert.Contains(t, text, "H A P P Y   B I R T H D A Y")
	assert.Contains(t, text, r.intro.Subtitle)
	assert.Contains(t, text, r.intro.Hint)
	assert.NotContains(t, text, r.card.Badge, "text under the overlay is hidden")
}

func TestDraw_ClosedCardHidesMessage(t *testing.T) {
	r := newRenderer(t)
	c := draw.NewCanvas(120, 40)
	r.Draw(c, Frame{State: reveal.NewScreenState().DismissIntro(), Now: epoch})

	text := screenText(c)
	assert.Contains(t, text, r.card.Badge)
	assert.Contains(t, text, r.card.HintClosed)
	assert.NotContains(t, text, r.card.Eyebrow)
}

func TestDraw_OpenCardShowsMessage(t *testing.T) {
	r := newRenderer(t)
	c := draw.NewCanvas(120, 40)
	open, _ := reveal.NewScreenState().DismissIntro().ToggleCard()
	r.Draw(c, Frame{State: open, Now: epoch.Add(time.Second), ChangedAt: epoch})

	text := screenText(c)
	assert.Contains(t, text, r.card.HintOpen)
	assert.Contains(t, text, r.card.Eyebrow)
	assert.Contains(t, text, r.card.Heading)
	assert.Contains(t, text, r.card.Signature)
}

func TestDraw_TooSmall(t *testing.T) {
	r := newRenderer(t)
	c := draw.NewCanvas(30, 6)
	r.Draw(c, Frame{State: reveal.NewScreenState(), Now: epoch})
	assert.Contains(t, c.Text(3), "Make the terminal")
}

func TestWrap_FitsWidth(t *testing.T) {
	r := newRenderer(t)
	lines := r.wrap(30)
	require.NotEmpty(t, lines)
	for _, ln := range lines {
		assert.LessOrEqual(t, len([]rune(ln.text)), 30, ln.text)
	}
	assert.True(t, lines[len(lines)-1].right, "signature is right-aligned")
	assert.Same(t, &lines[0], &r.wrap(30)[0], "cached per width")
}

func TestCoverCrop(t *testing.T) {
	assert.Equal(t, image.Rect(50, 0, 150, 100), coverCrop(image.Rect(0, 0, 200, 100), 10, 10))
	assert.Equal(t, image.Rect(0, 50, 100, 150), coverCrop(image.Rect(0, 0, 100, 200), 10, 10))
	assert.Equal(t, image.Rect(0, 0, 64, 32), coverCrop(image.Rect(0, 0, 64, 32), 2, 1))
}

func TestPhoto_FitCaches(t *testing.T) {
	left, right := GeneratedCover()
	img := left.Fit(20, 30)
	assert.Equal(t, image.Rect(0, 0, 20, 30), img.Bounds())
	assert.Same(t, img, left.Fit(20, 30))
	assert.NotSame(t, img, left.Fit(21, 30))
	assert.Equal(t, image.Rect(0, 0, 20, 30), right.Fit(20, 30).Bounds())
	assert.True(t, left.Fit(0, 5).Bounds().Empty())
}

func TestLoadPhoto(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			src.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "mom.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	p, err := LoadPhoto(path)
	require.NoError(t, err)
	r, _, _, _ := p.Fit(4, 4).At(2, 2).RGBA()
	assert.InDelta(t, 200, r>>8, 2)

	_, err = LoadPhoto(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o600))
	_, err = LoadPhoto(bad)
	assert.Error(t, err)
}

func TestNew_FallsBackOnBadPhoto(t *testing.T) {
	var logs strings.Builder
	cfg := config.Default()
	cfg.Card.LeftPhoto = filepath.Join(t.TempDir(), "missing.jpg")
	r := New(Options{Intro: cfg.Intro, Card: cfg.Card, Logger: log.New(&logs)})

	require.NotNil(t, r.left)
	assert.Contains(t, logs.String(), "using built-in cover")
}

func TestSpaced(t *testing.T) {
	assert.Equal(t, "H I   M O M", spaced("HI MOM"))
	assert.Equal(t, "", spaced(""))
}
