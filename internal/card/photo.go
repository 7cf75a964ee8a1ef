package card

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoders for cover photos
	_ "image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/tomz197/greeting/internal/draw"
)

// Photo is one half of the card's cover. It keeps the decoded source and a
// copy scaled to the last requested size.
type Photo struct {
	src    image.Image
	scaled *image.RGBA
}

// LoadPhoto decodes a JPEG, PNG or WebP file.
func LoadPhoto(path string) (*Photo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode photo %s: %w", path, err)
	}
	return &Photo{src: img}, nil
}

// NewPhoto wraps an already decoded image.
func NewPhoto(img image.Image) *Photo {
	return &Photo{src: img}
}

// Fit returns the photo cropped to the aspect ratio of w×h around its centre
// and scaled to exactly w×h, like CSS object-fit: cover.
func (p *Photo) Fit(w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	if p.scaled != nil && p.scaled.Rect.Dx() == w && p.scaled.Rect.Dy() == h {
		return p.scaled
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), p.src, coverCrop(p.src.Bounds(), w, h), xdraw.Src, nil)
	p.scaled = dst
	return dst
}

// coverCrop returns the largest centred sub-rectangle of b with aspect w:h.
func coverCrop(b image.Rectangle, w, h int) image.Rectangle {
	bw, bh := b.Dx(), b.Dy()
	if bw*h > bh*w {
		// Source is wider: trim the sides.
		cw := bh * w / h
		x0 := b.Min.X + (bw-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := bw * h / w
	y0 := b.Min.Y + (bh-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}

// Generated cover dimensions. The full cover is split into two halves.
const (
	generatedWidth  = 128
	generatedHeight = 96
)

// GeneratedCover returns the two halves of a built-in cover: a warm gradient
// with a heart across the split line.
func GeneratedCover() (left, right *Photo) {
	full := image.NewRGBA(image.Rect(0, 0, generatedWidth, generatedHeight))
	top := draw.MustHex("#fda4af")
	bottom := draw.MustHex("#db2777")
	heart := draw.MustHex("#fff1f2")

	for y := 0; y < generatedHeight; y++ {
		for x := 0; x < generatedWidth; x++ {
			fy := float64(y) / generatedHeight
			fx := float64(x) / generatedWidth
			col := draw.Gradient(fy, top, bottom)

			// Vignette towards the corners.
			d := math.Hypot(fx-0.5, fy-0.5)
			col = col.BlendRgb(bottom, math.Min(d*0.6, 0.4))

			// Heart curve (x²+y²-1)³ - x²y³ ≤ 0 centred on the split line.
			hx := (fx - 0.5) * 3.2
			hy := (0.45 - fy) * 2.6
			a := hx*hx + hy*hy - 1
			if a*a*a-hx*hx*hy*hy*hy <= 0 {
				col = heart
			}

			r, g, b := col.Clamped().RGB255()
			full.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}

	half := generatedWidth / 2
	left = NewPhoto(full.SubImage(image.Rect(0, 0, half, generatedHeight)))
	right = NewPhoto(full.SubImage(image.Rect(half, 0, generatedWidth, generatedHeight)))
	return left, right
}
