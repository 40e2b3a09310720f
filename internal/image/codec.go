package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"sync"

	"github.com/klauspost/compress/zstd"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Codec errors.
var (
	// ErrUnsupportedFormat is returned when no registered decoder recognizes the data.
	ErrUnsupportedFormat = errors.New("image: unsupported format")

	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("image: empty data")

	// ErrTooLarge is returned when the encoded dimensions exceed MaxPixels.
	ErrTooLarge = errors.New("image: dimensions too large")
)

// MaxPixels caps width*height of anything Decode will allocate.
const MaxPixels = 1 << 26

// zstdMagic prefixes a zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
})

// Config describes encoded image data without decoding its pixels.
type Config struct {
	Width      int
	Height     int
	Format     string
	Compressed bool
}

// IsCompressed reports whether data is wrapped in a zstd frame.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Unwrap returns data with any zstd framing removed.
func Unwrap(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return data, nil
	}
	dec, err := zstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("image: zstd reader: %w", err)
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("image: zstd decode: %w", err)
	}
	return out, nil
}

// Wrap compresses data into a zstd frame.
func Wrap(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("image: zstd writer: %w", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// DecodeConfig reads the dimensions and format of encoded data.
func DecodeConfig(data []byte) (Config, error) {
	if len(data) == 0 {
		return Config{}, ErrEmptyData
	}
	compressed := IsCompressed(data)
	raw, err := Unwrap(data)
	if err != nil {
		return Config{}, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Config{}, ErrUnsupportedFormat
		}
		return Config{}, fmt.Errorf("image: decode config: %w", err)
	}
	return Config{Width: cfg.Width, Height: cfg.Height, Format: format, Compressed: compressed}, nil
}

// Decode decodes data into non-premultiplied RGBA8 pixels with rows top to
// bottom. The returned image always has a zero origin and Stride == 4*Width.
func Decode(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	raw, err := Unwrap(data)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("image: decode config: %w", err)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image: decode: %w", err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts img to a tightly packed *image.NRGBA with a zero origin.
// img is returned unchanged when it already has that shape.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}

	w, h := b.Dx(), b.Dy()
	dst := &image.NRGBA{
		Pix:    defaultPool.Get(w * h * 4),
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}

	if n, ok := img.(*image.NRGBA); ok {
		for y := range h {
			src := n.Pix[n.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src[:w*4])
		}
		return dst
	}

	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// EncodePNG encodes non-premultiplied pixels as PNG.
func EncodePNG(img *image.NRGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("image: encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
