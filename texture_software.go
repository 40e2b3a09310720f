package glscene

import (
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/glscene/backend"
)

// Default size of the CPU-composited backing.
const (
	DefaultSoftwareWidth  = 1280
	DefaultSoftwareHeight = 720
)

// SoftwareTexture is a fixed-size CPU raster that is uploaded on bind.
// Writes are accumulated as a dirty rectangle and only that region is sent
// to the device on the next bind.
type SoftwareTexture struct {
	textureBase

	// backing rows are stored bottom to top, the device's row order.
	backing  *PixelBuffer
	id       backend.TextureID
	uploaded bool
	dirty    image.Rectangle
}

var (
	_ gpucontext.TextureUpdater       = (*SoftwareTexture)(nil)
	_ gpucontext.TextureRegionUpdater = (*SoftwareTexture)(nil)
)

// NewSoftwareTexture creates a transparent width x height backing.
func (c *RenderContext) NewSoftwareTexture(width, height int) *SoftwareTexture {
	t := &SoftwareTexture{backing: NewPixelBuffer(width, height)}
	t.backing.SetUpsideDown(true)
	t.init(c.env, t.destroyed)
	c.env.registry.Register(t)
	return t
}

// Kind returns KindSoftware.
func (t *SoftwareTexture) Kind() TextureKind { return KindSoftware }

// Width returns the backing width.
func (t *SoftwareTexture) Width() int { return t.backing.Width() }

// Height returns the backing height.
func (t *SoftwareTexture) Height() int { return t.backing.Height() }

func (t *SoftwareTexture) bounds() image.Rectangle {
	return image.Rect(0, 0, t.backing.Width(), t.backing.Height())
}

// UpdateData replaces the whole backing with width*height*4 bytes of
// premultiplied RGBA, rows top to bottom.
func (t *SoftwareTexture) UpdateData(data []byte) error {
	return t.UpdateRegion(0, 0, t.backing.Width(), t.backing.Height(), data)
}

// UpdateRegion replaces a w x h region at (x, y), top-left origin, with
// densely packed premultiplied RGBA rows.
func (t *SoftwareTexture) UpdateRegion(x, y, w, h int, data []byte) error {
	if !t.backing.Initialized() {
		return fmt.Errorf("%w: software texture deleted", ErrNotInitialized)
	}
	r := image.Rect(x, y, x+w, y+h)
	if w <= 0 || h <= 0 || !r.In(t.bounds()) {
		return fmt.Errorf("glscene: region %v outside %v", r, t.bounds())
	}
	if len(data) != w*h*4 {
		return fmt.Errorf("glscene: region data is %d bytes, want %d", len(data), w*h*4)
	}
	bw, bh := t.backing.Width(), t.backing.Height()
	for row := range h {
		d := ((bh-1-(y+row))*bw + x) * 4
		copy(t.backing.pix[d:d+w*4], data[row*w*4:(row+1)*w*4])
	}
	t.markDirty(x, y, w, h)
	return nil
}

// blit copies a region of src (rows top to bottom) into the backing.
func (t *SoftwareTexture) blit(src *PixelBuffer, srcX, srcY, dstX, dstY, w, h int) {
	if !src.Initialized() || !t.backing.Initialized() {
		return
	}
	dst := image.Rect(dstX, dstY, dstX+w, dstY+h)
	srcR := image.Rect(srcX, srcY, srcX+w, srcY+h).Intersect(image.Rect(0, 0, src.Width(), src.Height()))
	dst = dst.Add(srcR.Min.Sub(image.Pt(srcX, srcY)))
	dst.Max = dst.Min.Add(srcR.Size())
	dst = dst.Intersect(t.bounds())
	if dst.Empty() {
		return
	}
	off := image.Pt(srcX-dstX, srcY-dstY)
	bw, bh := t.backing.Width(), t.backing.Height()
	rowBytes := dst.Dx() * 4
	for y := dst.Min.Y; y < dst.Max.Y; y++ {
		s := ((y+off.Y)*src.Width() + dst.Min.X + off.X) * 4
		d := ((bh-1-y)*bw + dst.Min.X) * 4
		copy(t.backing.pix[d:d+rowBytes], src.pix[s:s+rowBytes])
	}
	t.markDirty(dst.Min.X, dst.Min.Y, dst.Dx(), dst.Dy())
}

// markDirty records a top-left-origin region as needing upload.
func (t *SoftwareTexture) markDirty(x, y, w, h int) {
	bh := t.backing.Height()
	r := image.Rect(x, bh-y-h, x+w, bh-y)
	t.dirty = t.dirty.Union(r)
}

// clear makes the backing transparent.
func (t *SoftwareTexture) clear() {
	clear(t.backing.pix)
	t.dirty = t.bounds()
}

// Bind uploads the backing on first use, or its dirty region afterwards.
func (t *SoftwareTexture) Bind() error { return t.bindUnit(backend.UnitTexture) }

// BindAsMask is Bind on the mask sampler.
func (t *SoftwareTexture) BindAsMask() error { return t.bindUnit(backend.UnitMask) }

func (t *SoftwareTexture) bindUnit(unit int) error {
	t.touch()
	if !t.backing.Initialized() {
		return fmt.Errorf("%w: software texture deleted", ErrDimensionlessInput)
	}
	d := t.env.device

	if !t.uploaded {
		size := t.backing.Size()
		if !t.env.makeRoom(size) {
			return t.env.outOfMemory(t, size)
		}
		id, err := d.CreateTexture(backend.TextureDescriptor{
			Label:   "software",
			Size:    gputypes.Extent3D{Width: uint32(t.backing.Width()), Height: uint32(t.backing.Height()), DepthOrArrayLayers: 1},
			Format:  gputypes.TextureFormatRGBA8Unorm,
			Usage:   gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
			Sampler: linearSampler(),
		}, t.backing.pix)
		if err != nil {
			return fmt.Errorf("glscene: upload software texture: %w", err)
		}
		t.id, t.uploaded = id, true
		t.dirty = image.Rectangle{}
		t.env.budget.Adjust(size)
		t.env.uploads.Add(1)
	} else if !t.dirty.Empty() {
		r := t.dirty
		bw := t.backing.Width()
		region := make([]byte, 0, r.Dx()*r.Dy()*4)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			s := (y*bw + r.Min.X) * 4
			region = append(region, t.backing.pix[s:s+r.Dx()*4]...)
		}
		if err := d.UpdateTexture(t.id, r.Min.X, r.Min.Y, r.Dx(), r.Dy(), region); err != nil {
			return fmt.Errorf("glscene: update software texture: %w", err)
		}
		t.dirty = image.Rectangle{}
	}

	d.BindTexture(unit, t.id)
	return nil
}

func (t *SoftwareTexture) releaseGPU() int64 {
	if !t.uploaded {
		return 0
	}
	size := t.backing.Size()
	t.env.device.DeleteTexture(t.id)
	t.env.budget.Adjust(-size)
	t.id, t.uploaded = 0, false
	return size
}

// Delete releases the GPU texture and the backing.
func (t *SoftwareTexture) Delete() {
	t.releaseGPU()
	t.backing.Term()
	t.dirty = image.Rectangle{}
}

func (t *SoftwareTexture) destroyed() {
	t.Delete()
	t.env.registry.Unregister(t)
}

// PixelBuffer fails with ErrUnsupported.
func (t *SoftwareTexture) PixelBuffer() (*PixelBuffer, error) {
	return nil, fmt.Errorf("%w: software texture", ErrUnsupported)
}
