package glscene

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/glscene/backend"
	"github.com/gogpu/glscene/internal/parallel"
)

// TextureKind identifies a texture variant.
type TextureKind int

const (
	// KindNone is the zero-size sentinel.
	KindNone TextureKind = iota

	// KindRaster is an RGBA image uploaded from pixels or decoded from
	// compressed bytes.
	KindRaster

	// KindFramebuffer is the color attachment of an offscreen target.
	KindFramebuffer

	// KindAlpha is a single-channel coverage mask.
	KindAlpha

	// KindSoftware is the CPU-composited full-screen backing.
	KindSoftware
)

// String returns the kind name.
func (k TextureKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindRaster:
		return "Raster"
	case KindFramebuffer:
		return "Framebuffer"
	case KindAlpha:
		return "Alpha"
	case KindSoftware:
		return "Software"
	default:
		return fmt.Sprintf("TextureKind(%d)", int(k))
	}
}

// Texture is a GPU-backed image.
//
// Textures are reference counted and start with one reference owned by
// the creator. Retain is safe from any goroutine. Bind, BindAsMask, Delete
// and the Release that drops the last reference must run on the device
// goroutine.
type Texture interface {
	gpucontext.Texture

	// Kind returns the texture variant.
	Kind() TextureKind

	// Bind makes the texture current for sampling, uploading it first if
	// needed. See ErrNotInitialized, ErrOutOfMemory.
	Bind() error

	// BindAsMask is Bind on the mask sampler.
	BindAsMask() error

	// Delete releases GPU and CPU data. Calling it again is a no-op.
	Delete()

	// PixelBuffer returns a CPU copy of the image.
	PixelBuffer() (*PixelBuffer, error)

	// LastRenderTick returns the render tick of the last bind or draw.
	LastRenderTick() uint64

	// Retain adds a reference.
	Retain()

	// Release drops a reference; the last one deletes the texture.
	Release()
}

// textureEnv is the per-context state textures share.
type textureEnv struct {
	device   backend.Device
	budget   *MemoryBudget
	registry *TextureRegistry
	pool     *parallel.WorkerPool
	queue    *parallel.TaskQueue

	tick           atomic.Uint64
	maxTextureSize int

	uploads        atomic.Int64
	pendingDecodes atomic.Int64
}

func (e *textureEnv) currentTick() uint64 {
	return e.tick.Load()
}

// textureLimit returns the per-axis size cap, or 0 for none.
func (e *textureEnv) textureLimit() int {
	limit := e.maxTextureSize
	if d := e.device.MaxTextureSize(); d > 0 && (limit <= 0 || d < limit) {
		limit = d
	}
	return limit
}

// makeRoom reports whether size bytes fit the budget, evicting by age and
// then forcibly when they do not.
func (e *textureEnv) makeRoom(size int64) bool {
	if e.budget.SpaceAvailable(size) {
		return true
	}
	tick := e.currentTick()
	e.registry.Evict(e.budget.Overflow(size), e.budget.EjectAge(), tick)
	if e.budget.SpaceAvailable(size) {
		return true
	}
	e.registry.Evict(e.budget.Overflow(size), 0, tick)
	return e.budget.SpaceAvailable(size)
}

func (e *textureEnv) outOfMemory(t Texture, size int64) error {
	slogger().Error("glscene: texture does not fit budget",
		"kind", t.Kind(), "bytes", size,
		"used", e.budget.Current(), "limit", e.budget.Limit())
	return fmt.Errorf("%w: %d bytes needed, %d of %d in use",
		ErrOutOfMemory, size, e.budget.Current(), e.budget.Limit())
}

// textureBase carries the reference count and render tick every variant needs.
type textureBase struct {
	env      *textureEnv
	refs     atomic.Int32
	lastTick atomic.Uint64
	destroy  func()
}

func (b *textureBase) init(env *textureEnv, destroy func()) {
	b.env = env
	b.destroy = destroy
	b.refs.Store(1)
	b.lastTick.Store(env.currentTick())
}

// LastRenderTick returns the render tick of the last bind or draw.
func (b *textureBase) LastRenderTick() uint64 { return b.lastTick.Load() }

// touch stamps the texture with the current render tick.
func (b *textureBase) touch() { b.lastTick.Store(b.env.currentTick()) }

// Retain adds a reference.
func (b *textureBase) Retain() { b.refs.Add(1) }

// Release drops a reference; the last one destroys the texture.
func (b *textureBase) Release() {
	n := b.refs.Add(-1)
	if n == 0 && b.destroy != nil {
		b.destroy()
	}
	if n < 0 {
		slogger().Warn("glscene: texture released too many times", "refs", n)
	}
}

// RefCount returns the current number of references.
func (b *textureBase) RefCount() int { return int(b.refs.Load()) }

// NoneTexture is the zero-size sentinel. Every operation fails.
type NoneTexture struct{}

// Kind returns KindNone.
func (NoneTexture) Kind() TextureKind { return KindNone }

// Width returns 0.
func (NoneTexture) Width() int { return 0 }

// Height returns 0.
func (NoneTexture) Height() int { return 0 }

// Bind fails with ErrNotInitialized.
func (NoneTexture) Bind() error { return fmt.Errorf("%w: none texture", ErrNotInitialized) }

// BindAsMask fails with ErrUnsupported.
func (NoneTexture) BindAsMask() error { return fmt.Errorf("%w: none texture as mask", ErrUnsupported) }

// Delete does nothing.
func (NoneTexture) Delete() {}

// PixelBuffer fails with ErrUnsupported.
func (NoneTexture) PixelBuffer() (*PixelBuffer, error) {
	return nil, fmt.Errorf("%w: none texture has no pixels", ErrUnsupported)
}

// LastRenderTick returns 0.
func (NoneTexture) LastRenderTick() uint64 { return 0 }

// Retain does nothing.
func (NoneTexture) Retain() {}

// Release does nothing.
func (NoneTexture) Release() {}
