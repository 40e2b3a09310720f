package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 7, A: 128})
		}
	}
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	return data
}

// =============================================================================
// Decode Tests
// =============================================================================

func TestDecode_PNG(t *testing.T) {
	img, err := Decode(testPNG(t, 4, 3))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Rect.Dx() != 4 || img.Rect.Dy() != 3 {
		t.Fatalf("size = %v, want 4x3", img.Rect)
	}
	if img.Stride != 16 {
		t.Errorf("Stride = %d, want 16", img.Stride)
	}
	// Non-premultiplied values survive decode.
	got := img.NRGBAAt(2, 1)
	want := color.NRGBA{R: 20, G: 10, B: 7, A: 128}
	if got != want {
		t.Errorf("pixel (2,1) = %v, want %v", got, want)
	}
}

func TestDecode_JPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}

	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Rect.Dx() != 8 || img.Rect.Dy() != 8 {
		t.Errorf("size = %v, want 8x8", img.Rect)
	}
	if a := img.NRGBAAt(4, 4).A; a != 255 {
		t.Errorf("alpha = %d, want 255", a)
	}
}

func TestDecode_Zstd(t *testing.T) {
	raw := testPNG(t, 5, 5)
	wrapped, err := Wrap(raw)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if !IsCompressed(wrapped) {
		t.Fatal("Wrap output lacks zstd magic")
	}
	if IsCompressed(raw) {
		t.Fatal("PNG data reported as compressed")
	}

	img, err := Decode(wrapped)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Rect.Dx() != 5 {
		t.Errorf("width = %d, want 5", img.Rect.Dx())
	}

	cfg, err := DecodeConfig(wrapped)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if !cfg.Compressed || cfg.Format != "png" || cfg.Width != 5 || cfg.Height != 5 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"nil", nil, ErrEmptyData},
		{"empty", []byte{}, ErrEmptyData},
		{"garbage", []byte("definitely not an image"), ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
			if _, err := DecodeConfig(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("DecodeConfig error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecode_CorruptZstd(t *testing.T) {
	data := append(append([]byte{}, zstdMagic...), 1, 2, 3, 4, 5)
	if _, err := Decode(data); err == nil {
		t.Error("expected an error for a truncated zstd frame")
	}
}

// =============================================================================
// ToNRGBA / Scale Tests
// =============================================================================

func TestToNRGBA_SubImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	src.SetNRGBA(6, 7, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	sub := src.SubImage(image.Rect(5, 5, 9, 9))

	got := ToNRGBA(sub)
	if got.Rect.Min != (image.Point{}) || got.Rect.Dx() != 4 {
		t.Fatalf("rect = %v, want zero-origin 4x4", got.Rect)
	}
	if c := got.NRGBAAt(1, 2); c != (color.NRGBA{R: 1, G: 2, B: 3, A: 4}) {
		t.Errorf("pixel = %v", c)
	}
}

func TestToNRGBA_Gray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 2, 2))
	g.SetGray(1, 1, color.Gray{Y: 90})
	got := ToNRGBA(g)
	if c := got.NRGBAAt(1, 1); c != (color.NRGBA{R: 90, G: 90, B: 90, A: 255}) {
		t.Errorf("pixel = %v", c)
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h, limit  int
		wantW, wantH int
	}{
		{"no limit", 5000, 10, 0, 5000, 10},
		{"fits", 100, 200, 256, 100, 200},
		{"width only", 1000, 100, 256, 250, 100},
		{"both axes", 2048, 600, 512, 512, 300},
		{"odd rounds up", 513, 10, 512, 257, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.w, tt.h, tt.limit)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("FitWithin(%d, %d, %d) = %d, %d, want %d, %d",
					tt.w, tt.h, tt.limit, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDownscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	if got := Downscale(src, 8, 8); got != src {
		t.Error("Downscale to the same size should return src")
	}

	got := Downscale(src, 4, 2)
	if got.Rect.Dx() != 4 || got.Rect.Dy() != 2 {
		t.Fatalf("size = %v, want 4x2", got.Rect)
	}
	if c := got.RGBAAt(2, 1); c.A != 255 || c.R != 255 {
		t.Errorf("pixel = %v, want opaque white", c)
	}
}

func TestDownscaleKeepsPremultipliedEdges(t *testing.T) {
	// Premultiplied red fading to transparent: every pixel has R == A.
	src := image.NewRGBA(image.Rect(0, 0, 16, 4))
	for y := range 4 {
		for x := range 16 {
			v := uint8(255 - x*17)
			if x >= 8 {
				v = 0
			}
			src.SetRGBA(x, y, color.RGBA{R: v, A: v})
		}
	}

	got := Downscale(src, 4, 1)
	for x := range 4 {
		c := got.RGBAAt(x, 0)
		if c.R != c.A || c.G != 0 || c.B != 0 {
			t.Errorf("pixel %d = %v, want R == A and no green or blue", x, c)
		}
	}
	if c := got.RGBAAt(0, 0); c.A == 0 {
		t.Error("opaque side downscaled to transparent")
	}
}
