package watermark

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	return img
}

func TestApplyIsDeterministic(t *testing.T) {
	input := solidPNG(t, 400, 300, color.RGBA{R: 40, G: 90, B: 160, A: 255})
	w := New(nil)

	first, err := w.Apply(input, "image/png")
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	second, err := New(DefaultLogo()).Apply(input, "image/png")
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("two runs produced different bytes")
	}
	if bytes.Equal(first, input) {
		t.Fatalf("output identical to input; mark not applied")
	}
}

func TestApplyPlacement(t *testing.T) {
	input := solidPNG(t, 400, 300, color.Black)
	out, err := New(nil).Apply(input, "image/png")
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	img := decodePNG(t, out)
	if got := img.Bounds(); got.Dx() != 400 || got.Dy() != 300 {
		t.Fatalf("bounds = %v, want 400x300", got)
	}

	// mark is 45x45 at [335,380)x[235,280); backing extends 10px further.
	tests := []struct {
		name   string
		x, y   int
		lo, hi uint32
	}{
		{"untouched corner", 10, 10, 0, 0},
		{"outside backing", 320, 220, 0, 0},
		{"backing margin", 327, 227, 200, 208},
		{"right of inset", 395, 295, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _, _ := img.At(tt.x, tt.y).RGBA()
			r >>= 8
			if r < tt.lo || r > tt.hi {
				t.Fatalf("red at (%d,%d) = %d, want [%d,%d]", tt.x, tt.y, r, tt.lo, tt.hi)
			}
		})
	}
}

func TestPlacementScalesWithShorterSide(t *testing.T) {
	w := New(image.NewNRGBA(image.Rect(0, 0, 200, 100)))
	tests := []struct {
		bounds image.Rectangle
		want   image.Rectangle
	}{
		{image.Rect(0, 0, 1000, 600), image.Rect(890, 535, 980, 580)},
		{image.Rect(0, 0, 600, 1000), image.Rect(490, 935, 580, 980)},
	}
	for _, tt := range tests {
		if got := w.placement(tt.bounds); got != tt.want {
			t.Errorf("placement(%v) = %v, want %v", tt.bounds, got, tt.want)
		}
	}
}

func TestApplyAcceptsJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 120, 160))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	out, err := New(nil).Apply(buf.Bytes(), "image/jpeg")
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if !bytes.HasPrefix(out, pngSignature) {
		t.Fatalf("output is not PNG")
	}
}

func TestApplyRejectsGarbage(t *testing.T) {
	if _, err := New(nil).Apply([]byte("not an image"), "image/png"); err == nil {
		t.Fatalf("Apply() error = nil, want decode error")
	}
}

func TestToPNG(t *testing.T) {
	pngBytes := solidPNG(t, 8, 8, color.White)
	got, err := ToPNG(pngBytes, "image/png")
	if err != nil || !bytes.Equal(got, pngBytes) {
		t.Fatalf("ToPNG(png) changed the payload: %v", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	got, err = ToPNG(buf.Bytes(), "image/jpeg")
	if err != nil {
		t.Fatalf("ToPNG(jpeg) error: %v", err)
	}
	decodePNG(t, got)
}

func TestLoadLogo(t *testing.T) {
	logo, err := LoadLogo("")
	if err != nil || logo.Bounds().Dx() != logoSize {
		t.Fatalf("LoadLogo(\"\") = %v, %v", logo.Bounds(), err)
	}

	path := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(path, solidPNG(t, 32, 16, color.White), 0o600); err != nil {
		t.Fatalf("write logo: %v", err)
	}
	logo, err = LoadLogo(path)
	if err != nil {
		t.Fatalf("LoadLogo() error: %v", err)
	}
	if b := logo.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Fatalf("logo bounds = %v", b)
	}

	if _, err := LoadLogo(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("LoadLogo(missing) error = nil")
	}
}
