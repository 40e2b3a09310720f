package glscene

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glscene/backend"
	imgpkg "github.com/gogpu/glscene/internal/image"
	"github.com/gogpu/glscene/internal/parallel"
)

// RasterState is the lifecycle state of a RasterTexture.
type RasterState int

const (
	// StateUnloaded holds no pixels and no GPU data.
	StateUnloaded RasterState = iota

	// StateDecodeRequested has a decode queued or running.
	StateDecodeRequested

	// StateDecoded holds premultiplied pixels, not yet uploaded.
	StateDecoded

	// StateUploaded has live GPU data.
	StateUploaded

	// StatePixelBufferFreed has live GPU data and no CPU pixels.
	StatePixelBufferFreed
)

// String returns the state name.
func (s RasterState) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateDecodeRequested:
		return "DecodeRequested"
	case StateDecoded:
		return "Decoded"
	case StateUploaded:
		return "Uploaded"
	case StatePixelBufferFreed:
		return "PixelBufferFreed"
	default:
		return fmt.Sprintf("RasterState(%d)", int(s))
	}
}

// RasterTexture is an RGBA texture built from a PixelBuffer, from
// compressed image bytes, or both.
//
// Compressed bytes are kept for the life of the texture so the image can
// be decoded again after its pixels are freed or its GPU data is evicted.
// Decoding runs on the worker pool; the result is installed on the device
// goroutine by RenderContext.NextFrame.
type RasterTexture struct {
	textureBase
	lane *parallel.Lane

	// mu guards every field below that workers touch.
	mu           sync.Mutex
	state        RasterState
	pixels       *PixelBuffer
	compressed   []byte
	decodeFailed bool
	width        int
	height       int

	// Device goroutine only.
	id        backend.TextureID
	footprint int64
	mipmapped bool
	smooth    bool
}

func newRasterTexture(env *textureEnv) *RasterTexture {
	t := &RasterTexture{lane: parallel.NewLane(env.pool, env.queue)}
	t.init(env, t.destroyed)
	env.registry.Register(t)
	return t
}

// NewRasterTexture creates a texture from a copy of pb. The pixels are
// premultiplied and flipped immediately; upload happens on first bind.
func (c *RenderContext) NewRasterTexture(pb *PixelBuffer) *RasterTexture {
	t := newRasterTexture(c.env)
	if pb.Initialized() {
		t.install(pb.Clone())
	}
	return t
}

// NewRasterTextureFromData creates a texture that decodes data on first
// bind. Dimensions are read from the image header when possible.
func (c *RenderContext) NewRasterTextureFromData(data []byte) *RasterTexture {
	return c.NewRasterTextureWithData(nil, data)
}

// NewRasterTextureWithData creates a texture from decoded pixels plus the
// compressed bytes they came from. Either may be nil. With compressed bytes
// present the pixels are freed after upload and decoded again when needed.
func (c *RenderContext) NewRasterTextureWithData(pb *PixelBuffer, data []byte) *RasterTexture {
	t := newRasterTexture(c.env)
	if len(data) > 0 {
		t.compressed = append([]byte(nil), data...)
		if cfg, err := imgpkg.DecodeConfig(data); err == nil {
			t.width, t.height = cfg.Width, cfg.Height
		} else {
			slogger().Debug("glscene: image header unreadable", "err", err)
		}
	}
	if pb.Initialized() {
		t.install(pb.Clone())
	}
	return t
}

// newRasterTextureProbed creates a reloadable texture whose header was
// already read.
func newRasterTextureProbed(env *textureEnv, data []byte, cfg imgpkg.Config) *RasterTexture {
	t := newRasterTexture(env)
	t.compressed = data
	t.width, t.height = cfg.Width, cfg.Height
	return t
}

// install premultiplies and flips pb and makes it the texture's pixels.
func (t *RasterTexture) install(pb *PixelBuffer) {
	pb.Premultiply()
	pb.Flip()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pixels != nil && t.pixels != pb {
		t.pixels.recycle()
	}
	t.pixels = pb
	t.width, t.height = pb.Width(), pb.Height()
	t.state = StateDecoded
	t.decodeFailed = false
}

// Kind returns KindRaster.
func (t *RasterTexture) Kind() TextureKind { return KindRaster }

// Width returns the source image width.
func (t *RasterTexture) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// Height returns the source image height.
func (t *RasterTexture) Height() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.height
}

// State returns the lifecycle state.
func (t *RasterTexture) State() RasterState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// HasPixels reports whether CPU pixels are resident.
func (t *RasterTexture) HasPixels() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pixels.Initialized()
}

// Footprint returns the GPU bytes currently accounted for the texture.
func (t *RasterTexture) Footprint() int64 { return t.footprint }

// SetDownscaleSmooth requests a mipmap chain so minified draws stay smooth.
// Takes effect on the next bind.
func (t *RasterTexture) SetDownscaleSmooth(v bool) { t.smooth = v }

func (t *RasterTexture) reloadable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.compressed) > 0
}

// Bind makes the texture current for sampling.
//
// An unloaded texture with compressed bytes queues a decode and returns
// ErrNotInitialized, as do further binds until the decode is installed.
// A decoded texture is uploaded if the budget, after eviction, has room;
// otherwise ErrOutOfMemory is returned and a reloadable texture drops its
// pixels.
func (t *RasterTexture) Bind() error { return t.bindUnit(backend.UnitTexture) }

// BindAsMask is Bind on the mask sampler.
func (t *RasterTexture) BindAsMask() error { return t.bindUnit(backend.UnitMask) }

func (t *RasterTexture) bindUnit(unit int) error {
	t.touch()

	switch state := t.State(); state {
	case StateUploaded, StatePixelBufferFreed:
		t.env.device.BindTexture(unit, t.id)
		t.ensureMipmap()
		return nil
	case StateDecodeRequested:
		return fmt.Errorf("%w: decode pending", ErrNotInitialized)
	case StateUnloaded:
		if t.requestLoad() {
			return fmt.Errorf("%w: decode requested", ErrNotInitialized)
		}
		return fmt.Errorf("%w: no image data", ErrNotInitialized)
	}
	return t.upload(unit)
}

func (t *RasterTexture) ensureMipmap() {
	if t.smooth && !t.mipmapped {
		t.env.device.GenerateMipmap(t.id)
		t.mipmapped = true
	}
}

func (t *RasterTexture) upload(unit int) error {
	t.mu.Lock()
	if !t.pixels.Initialized() {
		t.mu.Unlock()
		return fmt.Errorf("%w: pixels not resident", ErrNotInitialized)
	}
	w, h := t.pixels.Width(), t.pixels.Height()
	t.mu.Unlock()

	uw, uh := imgpkg.FitWithin(w, h, t.env.textureLimit())
	size := int64(uw) * int64(uh) * 4

	if !t.env.makeRoom(size) {
		if t.reloadable() {
			t.mu.Lock()
			t.state = StateUnloaded
			t.mu.Unlock()
			t.freePixelsInBackground()
		}
		return t.env.outOfMemory(t, size)
	}

	t.mu.Lock()
	if t.state != StateDecoded || !t.pixels.Initialized() {
		t.mu.Unlock()
		return fmt.Errorf("%w: pixels freed before upload", ErrNotInitialized)
	}
	data := t.pixels.Pix()
	var scaled *image.RGBA
	if uw != w || uh != h {
		premul := &image.RGBA{Pix: data, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
		scaled = imgpkg.Downscale(premul, uw, uh)
		data = scaled.Pix
	}
	id, err := t.env.device.CreateTexture(backend.TextureDescriptor{
		Label:   "raster",
		Size:    gputypes.Extent3D{Width: uint32(uw), Height: uint32(uh), DepthOrArrayLayers: 1},
		Format:  gputypes.TextureFormatRGBA8Unorm,
		Usage:   gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		Sampler: linearSampler(),
	}, data)
	if scaled != nil {
		imgpkg.PutToDefault(scaled.Pix)
	}
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("glscene: upload texture: %w", err)
	}
	t.id = id
	t.footprint = size
	t.mipmapped = false
	t.state = StateUploaded
	reload := len(t.compressed) > 0
	t.mu.Unlock()

	t.env.budget.Adjust(size)
	t.env.uploads.Add(1)
	slogger().Debug("glscene: texture uploaded", "id", id, "width", uw, "height", uh, "bytes", size)

	if reload {
		t.freePixelsInBackground()
	}
	t.env.device.BindTexture(unit, id)
	t.ensureMipmap()
	return nil
}

// requestLoad queues a decode of the compressed bytes. It reports whether
// a decode is now pending.
func (t *RasterTexture) requestLoad() bool {
	t.mu.Lock()
	switch {
	case t.state == StateDecodeRequested:
		t.mu.Unlock()
		return true
	case t.state != StateUnloaded, len(t.compressed) == 0, t.decodeFailed:
		t.mu.Unlock()
		return false
	}
	t.state = StateDecodeRequested
	data := t.compressed
	t.mu.Unlock()

	t.Retain()
	t.env.pendingDecodes.Add(1)
	var decoded *PixelBuffer
	ok := t.lane.Enqueue(parallel.Job{
		Work: func() {
			img, err := imgpkg.Decode(data)
			if err != nil {
				slogger().Warn("glscene: decode failed", "bytes", len(data), "err", err)
				return
			}
			decoded = pixelBufferFromNRGBA(img)
		},
		Apply: func() {
			t.env.pendingDecodes.Add(-1)
			t.applyDecoded(decoded)
			t.Release()
		},
		Cancel: func() {
			t.env.pendingDecodes.Add(-1)
			if decoded != nil {
				decoded.recycle()
			}
			t.mu.Lock()
			if t.state == StateDecodeRequested {
				t.state = StateUnloaded
			}
			t.mu.Unlock()
			t.Release()
		},
	})
	if !ok {
		return false
	}
	slogger().Debug("glscene: decode requested", "bytes", len(data))
	return true
}

// applyDecoded runs on the device goroutine.
func (t *RasterTexture) applyDecoded(pb *PixelBuffer) {
	t.mu.Lock()
	if t.state != StateDecodeRequested {
		t.mu.Unlock()
		if pb != nil {
			pb.recycle()
		}
		return
	}
	if pb == nil {
		t.state = StateUnloaded
		t.decodeFailed = true
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.install(pb)
}

// freePixelsInBackground drops the CPU pixels of a reloadable texture on
// the worker pool. It is ordered after any decode already queued.
func (t *RasterTexture) freePixelsInBackground() {
	t.Retain()
	t.lane.Enqueue(parallel.Job{
		Work: func() {
			t.mu.Lock()
			var detached *PixelBuffer
			if len(t.compressed) > 0 && t.state != StateDecodeRequested {
				detached = t.pixels
				t.pixels = nil
			}
			t.mu.Unlock()
			if detached != nil {
				detached.recycle()
			}
		},
		Apply:  t.settleFreed,
		Cancel: t.settleFreed,
	})
}

// settleFreed moves the state past a background free and drops the free
// job's reference.
func (t *RasterTexture) settleFreed() {
	t.mu.Lock()
	if !t.pixels.Initialized() {
		switch t.state {
		case StateUploaded:
			t.state = StatePixelBufferFreed
		case StateDecoded:
			t.state = StateUnloaded
		}
	}
	t.mu.Unlock()
	t.Release()
}

// FreePixelsInBackground releases CPU pixels of a texture that can decode
// them again. Textures without compressed bytes keep their pixels.
func (t *RasterTexture) FreePixelsInBackground() {
	if t.reloadable() {
		t.freePixelsInBackground()
	}
}

// RequestLoad queues a decode if the texture is unloaded and has
// compressed bytes. It reports whether a decode is pending.
func (t *RasterTexture) RequestLoad() bool {
	return t.requestLoad()
}

func (t *RasterTexture) releaseGPU() int64 {
	t.mu.Lock()
	if t.state != StateUploaded && t.state != StatePixelBufferFreed {
		t.mu.Unlock()
		return 0
	}
	id, size := t.id, t.footprint
	t.id, t.footprint, t.mipmapped = 0, 0, false
	if t.pixels.Initialized() {
		t.state = StateDecoded
	} else {
		t.state = StateUnloaded
	}
	t.mu.Unlock()

	t.env.device.DeleteTexture(id)
	t.env.budget.Adjust(-size)
	slogger().Debug("glscene: texture released", "id", id, "bytes", size)
	return size
}

// Delete releases GPU data, pixels and compressed bytes.
func (t *RasterTexture) Delete() {
	t.releaseGPU()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pixels != nil {
		t.pixels.recycle()
		t.pixels = nil
	}
	t.compressed = nil
	t.decodeFailed = false
	t.state = StateUnloaded
}

func (t *RasterTexture) destroyed() {
	t.Delete()
	t.env.registry.Unregister(t)
}

// PixelBuffer returns a fresh decode of the compressed bytes, or a copy of
// the resident premultiplied pixels when there are none.
func (t *RasterTexture) PixelBuffer() (*PixelBuffer, error) {
	t.mu.Lock()
	data := t.compressed
	var resident *PixelBuffer
	if t.pixels.Initialized() {
		resident = t.pixels.Clone()
	}
	t.mu.Unlock()

	if len(data) > 0 {
		img, err := imgpkg.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotInitialized, err)
		}
		return pixelBufferFromNRGBA(img), nil
	}
	if resident != nil {
		return resident, nil
	}
	return nil, fmt.Errorf("%w: no pixels", ErrNotInitialized)
}

func linearSampler() gputypes.SamplerDescriptor {
	return gputypes.SamplerDescriptor{
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.MipmapFilterModeLinear,
	}
}
