// Package watermark stamps the free-tier mark onto generated headshots.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	_ "image/jpeg"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	markRatio     = 0.15
	inset         = 20
	backingMargin = 10
)

var (
	backing     = image.NewUniform(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 204})
	markOpacity = image.NewUniform(color.Alpha{A: 178})
)

// Watermarker composites a fixed logo. It holds no mutable state and is safe
// for concurrent use.
type Watermarker struct {
	logo image.Image
}

// New returns a Watermarker for logo, or for DefaultLogo when logo is nil.
func New(logo image.Image) *Watermarker {
	if logo == nil {
		logo = DefaultLogo()
	}
	return &Watermarker{logo: logo}
}

// Apply decodes img, stamps the mark in the bottom-right corner and returns
// PNG bytes. Output depends only on the input bytes and the logo.
func (w *Watermarker) Apply(img []byte, mediaType string) ([]byte, error) {
	src, err := decode(img, mediaType)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)

	markRect := w.placement(canvas.Bounds())
	mark := image.NewNRGBA(image.Rect(0, 0, markRect.Dx(), markRect.Dy()))
	draw.CatmullRom.Scale(mark, mark.Bounds(), w.logo, w.logo.Bounds(), draw.Src, nil)

	draw.Draw(canvas, markRect.Inset(-backingMargin), backing, image.Point{}, draw.Over)
	draw.DrawMask(canvas, markRect, mark, image.Point{}, markOpacity, image.Point{}, draw.Over)

	return encodePNG(canvas)
}

// placement sizes the mark to 15% of the shorter side, keeping the logo's
// aspect ratio, and insets it from the bottom-right corner.
func (w *Watermarker) placement(bounds image.Rectangle) image.Rectangle {
	short := bounds.Dx()
	if bounds.Dy() < short {
		short = bounds.Dy()
	}
	lb := w.logo.Bounds()
	mw := int(math.Round(float64(short) * markRatio))
	if mw < 1 {
		mw = 1
	}
	mh := int(math.Round(float64(mw) * float64(lb.Dy()) / float64(lb.Dx())))
	if mh < 1 {
		mh = 1
	}
	corner := bounds.Max.Sub(image.Pt(inset, inset))
	return image.Rectangle{Min: corner.Sub(image.Pt(mw, mh)), Max: corner}
}

// ToPNG returns data unchanged when it already is a PNG, otherwise decodes
// and re-encodes it.
func ToPNG(data []byte, mediaType string) ([]byte, error) {
	if bytes.HasPrefix(data, pngSignature) {
		return data, nil
	}
	img, err := decode(data, mediaType)
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func decode(data []byte, mediaType string) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("watermark: decode %s: %w", mediaType, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("watermark: decode %s: empty image", mediaType)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("watermark: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
