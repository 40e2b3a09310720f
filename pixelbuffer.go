package glscene

import (
	"image"
	"image/color"

	imgpkg "github.com/gogpu/glscene/internal/image"
)

// PixelBuffer is a CPU-side RGBA8 image with rows stored top to bottom
// unless UpsideDown is set. A buffer whose pixels have been freed is
// uninitialized and reports zero size.
//
// PixelBuffer is not safe for concurrent use.
type PixelBuffer struct {
	width      int
	height     int
	upsideDown bool
	pix        []byte
}

// NewPixelBuffer creates a zeroed (transparent) buffer.
// Non-positive dimensions produce an uninitialized buffer.
func NewPixelBuffer(width, height int) *PixelBuffer {
	pb := &PixelBuffer{}
	pb.Init(width, height)
	return pb
}

// PixelBufferFromImage copies img into a new non-premultiplied buffer.
func PixelBufferFromImage(img image.Image) *PixelBuffer {
	n := imgpkg.ToNRGBA(img)
	pb := &PixelBuffer{width: n.Rect.Dx(), height: n.Rect.Dy()}
	if n == img {
		pb.pix = append([]byte(nil), n.Pix...)
	} else {
		pb.pix = n.Pix
	}
	return pb
}

// pixelBufferFromNRGBA adopts the pixels of a decoder result.
func pixelBufferFromNRGBA(n *image.NRGBA) *PixelBuffer {
	return &PixelBuffer{width: n.Rect.Dx(), height: n.Rect.Dy(), pix: n.Pix}
}

// Init (re)allocates the buffer as width x height transparent pixels.
func (pb *PixelBuffer) Init(width, height int) {
	if width <= 0 || height <= 0 {
		pb.Term()
		return
	}
	n := width * height * 4
	if len(pb.pix) == n {
		clear(pb.pix)
	} else {
		pb.pix = make([]byte, n)
	}
	pb.width, pb.height = width, height
}

// Term frees the pixels, leaving the buffer uninitialized.
func (pb *PixelBuffer) Term() {
	pb.pix = nil
	pb.width, pb.height = 0, 0
}

// recycle frees the pixels and hands the storage back for reuse.
// Only call when nothing else can hold the slice.
func (pb *PixelBuffer) recycle() {
	imgpkg.PutToDefault(pb.pix)
	pb.Term()
}

// Initialized reports whether the buffer holds pixels.
func (pb *PixelBuffer) Initialized() bool {
	return pb != nil && len(pb.pix) > 0
}

// Width returns the width in pixels.
func (pb *PixelBuffer) Width() int { return pb.width }

// Height returns the height in pixels.
func (pb *PixelBuffer) Height() int { return pb.height }

// Pix returns the raw RGBA8 bytes, row-major.
func (pb *PixelBuffer) Pix() []byte { return pb.pix }

// Size returns the byte length of the pixel data.
func (pb *PixelBuffer) Size() int64 { return int64(len(pb.pix)) }

// UpsideDown reports whether rows are stored bottom to top.
func (pb *PixelBuffer) UpsideDown() bool { return pb.upsideDown }

// SetUpsideDown sets the row-order flag without moving pixels.
func (pb *PixelBuffer) SetUpsideDown(v bool) { pb.upsideDown = v }

// At returns the pixel at (x, y) in storage order.
func (pb *PixelBuffer) At(x, y int) color.NRGBA {
	if x < 0 || y < 0 || x >= pb.width || y >= pb.height {
		return color.NRGBA{}
	}
	i := (y*pb.width + x) * 4
	return color.NRGBA{R: pb.pix[i], G: pb.pix[i+1], B: pb.pix[i+2], A: pb.pix[i+3]}
}

// Set writes the pixel at (x, y) in storage order.
func (pb *PixelBuffer) Set(x, y int, c color.NRGBA) {
	if x < 0 || y < 0 || x >= pb.width || y >= pb.height {
		return
	}
	i := (y*pb.width + x) * 4
	pb.pix[i], pb.pix[i+1], pb.pix[i+2], pb.pix[i+3] = c.R, c.G, c.B, c.A
}

// Fill sets every pixel to c.
func (pb *PixelBuffer) Fill(c color.NRGBA) {
	px := [4]byte{c.R, c.G, c.B, c.A}
	for i := 0; i+4 <= len(pb.pix); i += 4 {
		copy(pb.pix[i:i+4], px[:])
	}
}

// Flip reverses row order in place and toggles UpsideDown.
func (pb *PixelBuffer) Flip() {
	stride := pb.width * 4
	for top, bottom := 0, pb.height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pb.pix[top*stride : (top+1)*stride]
		b := pb.pix[bottom*stride : (bottom+1)*stride]
		for i := range a {
			a[i], b[i] = b[i], a[i]
		}
	}
	pb.upsideDown = !pb.upsideDown
}

// Premultiply scales color channels by alpha in place.
func (pb *PixelBuffer) Premultiply() {
	for i := 0; i+4 <= len(pb.pix); i += 4 {
		a := uint32(pb.pix[i+3])
		if a == 255 {
			continue
		}
		pb.pix[i] = uint8((uint32(pb.pix[i])*a + 127) / 255)
		pb.pix[i+1] = uint8((uint32(pb.pix[i+1])*a + 127) / 255)
		pb.pix[i+2] = uint8((uint32(pb.pix[i+2])*a + 127) / 255)
	}
}

// Blit copies a w x h region of src at (srcX, srcY) to (dstX, dstY),
// clipped to both buffers.
func (pb *PixelBuffer) Blit(src *PixelBuffer, srcX, srcY, dstX, dstY, w, h int) {
	if !src.Initialized() || !pb.Initialized() {
		return
	}
	if srcX < 0 {
		dstX -= srcX
		w += srcX
		srcX = 0
	}
	if srcY < 0 {
		dstY -= srcY
		h += srcY
		srcY = 0
	}
	if dstX < 0 {
		srcX -= dstX
		w += dstX
		dstX = 0
	}
	if dstY < 0 {
		srcY -= dstY
		h += dstY
		dstY = 0
	}
	w = min(w, src.width-srcX, pb.width-dstX)
	h = min(h, src.height-srcY, pb.height-dstY)
	if w <= 0 || h <= 0 {
		return
	}
	for row := range h {
		s := ((srcY+row)*src.width + srcX) * 4
		d := ((dstY+row)*pb.width + dstX) * 4
		copy(pb.pix[d:d+w*4], src.pix[s:s+w*4])
	}
}

// Clone returns a deep copy.
func (pb *PixelBuffer) Clone() *PixelBuffer {
	c := *pb
	c.pix = append([]byte(nil), pb.pix...)
	return &c
}

// ToImage wraps the pixels as a non-premultiplied image without copying.
// Row order follows storage order.
func (pb *PixelBuffer) ToImage() *image.NRGBA {
	return &image.NRGBA{Pix: pb.pix, Stride: pb.width * 4, Rect: image.Rect(0, 0, pb.width, pb.height)}
}
