package glscene

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glscene/backend"
)

// AlphaTexture is a single-channel coverage mask. It keeps its own copy of
// the coverage so it can be uploaded again after eviction.
//
// Construction may happen on any goroutine; the upload is deferred to the
// first bind on the device goroutine.
type AlphaTexture struct {
	textureBase

	mu       sync.Mutex
	width    int
	height   int
	coverage []byte

	// Device goroutine only.
	id       backend.TextureID
	uploaded bool
}

// NewAlphaTexture creates a mask from width*height coverage bytes, rows top
// to bottom. Rows are stored flipped to match the render-target orientation.
func (c *RenderContext) NewAlphaTexture(width, height int, coverage []byte) *AlphaTexture {
	t := &AlphaTexture{}
	t.init(c.env, t.destroyed)

	if width > 0 && height > 0 && len(coverage) >= width*height {
		t.width, t.height = width, height
		t.coverage = make([]byte, width*height)
		for y := range height {
			src := coverage[y*width : (y+1)*width]
			copy(t.coverage[(height-1-y)*width:], src)
		}
	} else {
		slogger().Warn("glscene: alpha texture from dimensionless input",
			"width", width, "height", height, "bytes", len(coverage))
	}

	c.env.registry.Register(t)
	return t
}

// Kind returns KindAlpha.
func (t *AlphaTexture) Kind() TextureKind { return KindAlpha }

// Width returns the mask width.
func (t *AlphaTexture) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// Height returns the mask height.
func (t *AlphaTexture) Height() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.height
}

// Bind uploads the mask if needed and binds it for sampling.
func (t *AlphaTexture) Bind() error { return t.bindUnit(backend.UnitTexture) }

// BindAsMask uploads the mask if needed and binds it to the mask sampler.
func (t *AlphaTexture) BindAsMask() error { return t.bindUnit(backend.UnitMask) }

func (t *AlphaTexture) bindUnit(unit int) error {
	t.touch()

	t.mu.Lock()
	w, h, coverage := t.width, t.height, t.coverage
	t.mu.Unlock()

	if w == 0 || h == 0 || len(coverage) == 0 {
		slogger().Warn("glscene: bind of dimensionless alpha texture")
		return fmt.Errorf("%w: alpha texture %dx%d", ErrDimensionlessInput, w, h)
	}

	if !t.uploaded {
		size := int64(w) * int64(h)
		if !t.env.makeRoom(size) {
			return t.env.outOfMemory(t, size)
		}
		id, err := t.env.device.CreateTexture(backend.TextureDescriptor{
			Label:   "alpha",
			Size:    gputypes.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
			Format:  gputypes.TextureFormatR8Unorm,
			Usage:   gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
			Sampler: linearSampler(),
		}, coverage)
		if err != nil {
			return fmt.Errorf("glscene: upload alpha texture: %w", err)
		}
		t.id = id
		t.uploaded = true
		t.env.budget.Adjust(size)
		t.env.uploads.Add(1)
	}

	t.env.device.BindTexture(unit, t.id)
	return nil
}

func (t *AlphaTexture) releaseGPU() int64 {
	if !t.uploaded {
		return 0
	}
	t.mu.Lock()
	size := int64(t.width) * int64(t.height)
	t.mu.Unlock()

	t.env.device.DeleteTexture(t.id)
	t.env.budget.Adjust(-size)
	t.id = 0
	t.uploaded = false
	return size
}

// Delete releases the GPU mask and the coverage copy.
func (t *AlphaTexture) Delete() {
	t.releaseGPU()
	t.mu.Lock()
	t.coverage = nil
	t.width, t.height = 0, 0
	t.mu.Unlock()
}

func (t *AlphaTexture) destroyed() {
	t.Delete()
	t.env.registry.Unregister(t)
}

// PixelBuffer expands the coverage into an RGBA buffer (white, alpha =
// coverage) in stored, upside-down row order.
func (t *AlphaTexture) PixelBuffer() (*PixelBuffer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.width == 0 || t.height == 0 {
		return nil, fmt.Errorf("%w: alpha texture", ErrDimensionlessInput)
	}
	pb := NewPixelBuffer(t.width, t.height)
	for i, a := range t.coverage {
		pb.pix[i*4], pb.pix[i*4+1], pb.pix[i*4+2], pb.pix[i*4+3] = 255, 255, 255, a
	}
	pb.SetUpsideDown(true)
	return pb, nil
}
