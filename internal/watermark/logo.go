package watermark

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

const logoSize = 256

// DefaultLogo draws the built-in mark: a portrait silhouette inside a ring.
// It is generated rather than embedded so the binary carries no assets.
func DefaultLogo() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, logoSize, logoSize))
	ink := color.NRGBA{R: 0x31, G: 0x2e, B: 0x81, A: 0xff}
	c := float64(logoSize) / 2
	for y := 0; y < logoSize; y++ {
		for x := 0; x < logoSize; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if inRing(fx, fy, c, c, 0.46*logoSize, 0.40*logoSize) ||
				inCircle(fx, fy, c, 0.40*logoSize, 0.15*logoSize) ||
				inShoulders(fx, fy, c) {
				img.SetNRGBA(x, y, ink)
			}
		}
	}
	return img
}

func inCircle(x, y, cx, cy, r float64) bool {
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r*r
}

func inRing(x, y, cx, cy, outer, inner float64) bool {
	return inCircle(x, y, cx, cy, outer) && !inCircle(x, y, cx, cy, inner)
}

// shoulders: upper half of an ellipse clipped by the inner ring.
func inShoulders(x, y, c float64) bool {
	cy := 0.80 * logoSize
	rx, ry := 0.28*logoSize, 0.22*logoSize
	if y > cy {
		return false
	}
	dx, dy := (x-c)/rx, (y-cy)/ry
	return dx*dx+dy*dy <= 1 && inCircle(x, y, c, c, 0.40*logoSize)
}

// LoadLogo reads a PNG mark from path; an empty path yields DefaultLogo.
func LoadLogo(path string) (image.Image, error) {
	if path == "" {
		return DefaultLogo(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("watermark: open logo: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("watermark: decode logo %s: %w", path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("watermark: logo %s is empty", path)
	}
	return img, nil
}
