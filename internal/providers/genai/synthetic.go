package genai

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"golang.org/x/image/draw"

	"headshot/internal/domain"
)

const syntheticSize = 768

func (c *Client) synthetic(images []domain.UploadedImage, prompt string) (domain.GenerationResult, error) {
	parts := make([]any, 0, len(images)+2)
	parts = append(parts, c.model, prompt)
	for _, img := range images {
		sum := sha256.Sum256(img.Data)
		parts = append(parts, hex.EncodeToString(sum[:8]))
	}
	seed := deterministicSeed(parts...)
	data, err := renderSyntheticPortrait(syntheticSize, seed)
	if err != nil {
		return domain.GenerationResult{}, remoteError(err)
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("seed", seed).
		Int("images", len(images)).
		Msg("genai: generated synthetic headshot")

	return domain.GenerationResult{
		Image: &domain.GeneratedImage{Data: data, MediaType: "image/png"},
		Text:  "Synthetic headshot (no Gemini API key configured).",
	}, nil
}

// renderSyntheticPortrait draws a flat backdrop with a head-and-shoulders
// silhouette, colored from seed.
func renderSyntheticPortrait(size int, seed string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	backdrop := colorFromSeed(seed, 0)
	suit := colorFromSeed(seed, 1)
	skin := color.RGBA{R: 0xe0, G: 0xb8, B: 0x96, A: 0xff}
	draw.Draw(img, img.Bounds(), &image.Uniform{backdrop}, image.Point{}, draw.Src)

	cx := float64(size) / 2
	headY, headR := 0.40*float64(size), 0.16*float64(size)
	shoulderY, shoulderRX, shoulderRY := float64(size), 0.38*float64(size), 0.30*float64(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			dx, dy := (fx-cx)/shoulderRX, (fy-shoulderY)/shoulderRY
			if dx*dx+dy*dy <= 1 {
				img.SetRGBA(x, y, suit)
				continue
			}
			hx, hy := fx-cx, fy-headY
			if hx*hx+hy*hy <= headR*headR {
				img.SetRGBA(x, y, skin)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode synthetic portrait: %w", err)
	}
	return buf.Bytes(), nil
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{
		R: parseHexByte(segment[0:2]),
		G: parseHexByte(segment[2:4]),
		B: parseHexByte(segment[4:6]),
		A: 255,
	}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
