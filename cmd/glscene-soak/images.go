package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"

	"github.com/klauspost/compress/zstd"
)

// payload is one generated image resource.
type payload struct {
	key  string
	data []byte
}

// generateImages encodes n gradient images of random size as PNG. Every
// third payload is wrapped in a zstd frame.
func generateImages(rng *rand.Rand, n, maxSize int) ([]payload, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	defer func() { _ = enc.Close() }()

	out := make([]payload, 0, n)
	for i := range n {
		w := 16 + rng.IntN(max(maxSize-16, 1))
		h := 16 + rng.IntN(max(maxSize-16, 1))
		img := gradient(w, h, color.NRGBA{
			R: uint8(rng.IntN(256)),
			G: uint8(rng.IntN(256)),
			B: uint8(rng.IntN(256)),
			A: 255,
		})

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode image %d: %w", i, err)
		}
		data := buf.Bytes()
		if i%3 == 2 {
			data = enc.EncodeAll(data, nil)
		}
		out = append(out, payload{key: fmt.Sprintf("img-%04d", i), data: data})
	}
	return out, nil
}

func gradient(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		a := uint8(255 * (y + 1) / h)
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: uint8(255 * x / w), A: a})
		}
	}
	return img
}

// coverage returns a w x h circular alpha mask.
func coverage(w, h int) []byte {
	out := make([]byte, w*h)
	cx, cy := float64(w)/2, float64(h)/2
	r2 := min(cx, cy) * min(cx, cy)
	for y := range h {
		for x := range w {
			dx, dy := float64(x)-cx+0.5, float64(y)-cy+0.5
			if dx*dx+dy*dy <= r2 {
				out[y*w+x] = 255
			}
		}
	}
	return out
}
