package glscene

import (
	"fmt"
	"image"
	"io"

	"github.com/gogpu/glscene/backend"
	"github.com/gogpu/glscene/internal/parallel"
)

// RenderContext owns a rendering device together with the texture budget,
// the texture registry and the decode pipeline, and tracks the transform,
// alpha and render target used by the draw methods.
//
// All methods must be called on the goroutine that owns the device's
// graphics context. Texture constructors are the exception: they may be
// called from any goroutine.
type RenderContext struct {
	env *textureEnv

	// Default surface size.
	width  int
	height int

	// Size of the current render target.
	resW int
	resH int

	matrix     Matrix4
	alpha      float32
	clearColor RGBA

	surface *Framebuffer
	current *Framebuffer

	showOutlines bool

	software       *SoftwareTexture
	softwareWidth  int
	softwareHeight int

	cache  *ImageCache
	closed bool
}

// Ensure RenderContext implements io.Closer
var _ io.Closer = (*RenderContext)(nil)

// NewContext creates a render context for a default surface of the given
// size. The device comes from WithDevice, WithDeviceName, or the best
// registered device, in that order, and is initialized here.
func NewContext(width, height int, opts ...ContextOption) (*RenderContext, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := o.device
	if d != nil {
		if err := d.Init(); err != nil {
			return nil, fmt.Errorf("glscene: init device %s: %w", d.Name(), err)
		}
	} else {
		var err error
		d, err = backend.Open(o.deviceName)
		if err != nil {
			return nil, fmt.Errorf("glscene: open device %q: %w", o.deviceName, err)
		}
	}

	env := &textureEnv{
		device:         d,
		budget:         NewMemoryBudget(o.memoryLimit, o.evictionAge),
		registry:       NewTextureRegistry(o.randSource),
		pool:           parallel.NewWorkerPool(o.workers),
		queue:          parallel.NewTaskQueue(),
		maxTextureSize: o.maxTextureSize,
	}
	env.budget.SetPadding(o.padding)

	c := &RenderContext{
		env:            env,
		matrix:         Identity4(),
		alpha:          1,
		surface:        &Framebuffer{},
		softwareWidth:  o.softwareWidth,
		softwareHeight: o.softwareHeight,
	}
	c.current = c.surface
	c.cache = newImageCache(c, o.cacheSize)

	trackDevice(d)
	c.SetSize(width, height)

	info := d.Info()
	slogger().Info("glscene: context created",
		"device", d.Name(), "adapter", info.Name,
		"width", width, "height", height,
		"limit", o.memoryLimit, "workers", env.pool.Workers())
	return c, nil
}

// Close releases the image cache, the software surface, the worker pool
// and the device. Close is safe to call multiple times.
func (c *RenderContext) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.cache.Purge()
	if c.software != nil {
		c.software.Release()
		c.software = nil
	}

	c.env.pool.Close()
	c.env.queue.Drain()
	c.env.queue.Close()

	untrackDevice(c.env.device)
	c.env.device.Close()
	slogger().Info("glscene: context closed", "stats", c.Stats().String())
	return nil
}

// NextFrame advances the render tick and applies finished background
// work. It never waits for the worker pool. Returns the number of tasks
// applied.
func (c *RenderContext) NextFrame() int {
	if c.closed {
		return 0
	}
	c.env.tick.Add(1)
	return c.env.queue.Drain()
}

// Tick returns the current render tick.
func (c *RenderContext) Tick() uint64 {
	return c.env.currentTick()
}

// Device returns the rendering device.
func (c *RenderContext) Device() backend.Device {
	return c.env.device
}

// Budget returns the texture memory budget.
func (c *RenderContext) Budget() *MemoryBudget {
	return c.env.budget
}

// Registry returns the set of evictable textures.
func (c *RenderContext) Registry() *TextureRegistry {
	return c.env.registry
}

// ImageCache returns the keyed texture cache.
func (c *RenderContext) ImageCache() *ImageCache {
	return c.cache
}

// === Memory ===

// CurrentUsage returns the GPU bytes held by textures.
func (c *RenderContext) CurrentUsage() int64 {
	return c.env.budget.Current()
}

// TextureMemoryLimit returns the budget limit in bytes.
func (c *RenderContext) TextureMemoryLimit() int64 {
	return c.env.budget.Limit()
}

// SetTextureMemoryLimit changes the budget limit. Usage above a lowered
// limit is reclaimed by later binds.
func (c *RenderContext) SetTextureMemoryLimit(bytes int64) {
	c.env.budget.SetLimit(bytes)
}

// SetThresholdPadding lets usage exceed the limit by up to bytes.
func (c *RenderContext) SetThresholdPadding(bytes int64) {
	c.env.budget.SetPadding(bytes)
}

// SetEvictionAge sets the render-tick age below which textures are
// protected from normal eviction.
func (c *RenderContext) SetEvictionAge(ticks uint64) {
	c.env.budget.SetEjectAge(ticks)
}

// EjectTextureMemory evicts textures until at least bytes are freed.
// Normal eviction honors the eviction age; force releases everything not
// rendered in the current tick. Returns the bytes actually freed.
func (c *RenderContext) EjectTextureMemory(bytes int64, force bool) int64 {
	age := c.env.budget.EjectAge()
	if force {
		age = 0
	}
	before := c.env.budget.Current()
	c.env.registry.Evict(bytes, age, c.env.currentTick())
	return before - c.env.budget.Current()
}

// === Surface and targets ===

// Size returns the default surface size.
func (c *RenderContext) Size() (width, height int) {
	return c.width, c.height
}

// SetSize resizes the default surface. When it is the current target the
// viewport follows.
func (c *RenderContext) SetSize(width, height int) {
	c.width, c.height = width, height
	if c.current.IsDefault() {
		c.resW, c.resH = width, height
		c.env.device.Viewport(width, height)
	}
}

// Resolution returns the size of the current render target.
func (c *RenderContext) Resolution() (width, height int) {
	return c.resW, c.resH
}

// Clear clears the current target to the last clear color.
func (c *RenderContext) Clear() {
	c.env.device.Clear(c.clearColor.gpu())
}

// ClearColor clears the current target to col and turns off its dirty
// rectangle.
func (c *RenderContext) ClearColor(col RGBA) {
	c.clearColor = col
	c.env.device.Clear(col.gpu())
	c.current.dirtyEnabled = false
}

// ClearRect clears a rectangle of the current target to transparent and
// makes it the target's dirty rectangle. Coordinates are top-left origin.
func (c *RenderContext) ClearRect(left, top, right, bottom int) {
	if right < left {
		left, right = right, left
	}
	if bottom < top {
		top, bottom = bottom, top
	}
	r := image.Rect(left, c.resH-bottom, right, c.resH-top)

	fb := c.current
	fb.dirty = r
	fb.dirtyEnabled = true
	d := c.env.device
	d.Scissor(true, r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	c.clearColor = Transparent
	d.Clear(Transparent.gpu())
}

// EnableClipping turns the scissor test on or off. When on, drawing is
// limited to the current target's dirty rectangle.
func (c *RenderContext) EnableClipping(enable bool) {
	if !enable {
		c.env.device.Scissor(false, 0, 0, 0, 0)
		return
	}
	r := c.current.dirty
	c.env.device.Scissor(true, r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

// EnableDirtyRectangles sets whether the current target is scissored to
// its dirty rectangle.
func (c *RenderContext) EnableDirtyRectangles(enable bool) {
	c.current.dirtyEnabled = enable
	c.applyScissor()
}

func (c *RenderContext) applyScissor() {
	fb := c.current
	if fb.dirtyEnabled {
		r := fb.dirty
		c.env.device.Scissor(true, r.Min.X, r.Min.Y, r.Dx(), r.Dy())
		return
	}
	c.env.device.Scissor(false, 0, 0, 0, 0)
}

// CreateFramebuffer creates an offscreen target of the given size.
// A zero size yields a target that fails SetFramebuffer until resized.
func (c *RenderContext) CreateFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{texture: newFramebufferTexture(c.env, width, height)}
}

// UpdateFramebuffer resizes fb. The content is lost.
func (c *RenderContext) UpdateFramebuffer(fb *Framebuffer, width, height int) error {
	if fb.IsDefault() {
		return fmt.Errorf("%w: resize of the default surface", ErrUnsupported)
	}
	fb.texture.resize(width, height)
	if c.current == fb {
		return c.SetFramebuffer(fb)
	}
	return nil
}

// CurrentFramebuffer returns the current render target.
func (c *RenderContext) CurrentFramebuffer() *Framebuffer {
	return c.current
}

// SetFramebuffer makes fb the render target and restores its saved
// transform and alpha. Nil selects the default surface.
//
// If fb cannot be bound the default surface becomes current and the
// error wraps ErrFramebufferIncomplete.
func (c *RenderContext) SetFramebuffer(fb *Framebuffer) error {
	if c.closed {
		return ErrContextClosed
	}
	if fb.IsDefault() {
		c.useSurface()
		return nil
	}

	if err := fb.texture.prepare(); err != nil {
		c.useSurface()
		return err
	}
	c.current = fb
	c.resW, c.resH = fb.texture.Width(), fb.texture.Height()
	c.restore(fb.currentState())
	c.applyScissor()
	return nil
}

func (c *RenderContext) useSurface() {
	d := c.env.device
	d.Viewport(c.width, c.height)
	d.BindFramebuffer(backend.DefaultFramebuffer)
	c.current = c.surface
	c.resW, c.resH = c.width, c.height
	c.restore(c.surface.currentState())
	c.applyScissor()
}

// === Transform and alpha ===

// Matrix returns the current transform.
func (c *RenderContext) Matrix() Matrix4 {
	return c.matrix
}

// SetMatrix post-multiplies the current transform by m.
func (c *RenderContext) SetMatrix(m Matrix4) {
	c.matrix = c.matrix.Multiply(m)
}

// ResetMatrix sets the current transform to identity.
func (c *RenderContext) ResetMatrix() {
	c.matrix = Identity4()
}

// Alpha returns the current opacity.
func (c *RenderContext) Alpha() float32 {
	return c.alpha
}

// SetAlpha multiplies the current opacity by a.
func (c *RenderContext) SetAlpha(a float32) {
	c.alpha *= a
}

// PushState saves the transform and alpha on the current target's stack.
func (c *RenderContext) PushState() {
	c.current.pushState(frameState{matrix: c.matrix, alpha: c.alpha})
}

// PopState restores the state saved by the matching PushState.
// It does nothing when the current target's stack is empty.
func (c *RenderContext) PopState() {
	if s, ok := c.current.popState(); ok {
		c.restore(s)
	}
}

func (c *RenderContext) restore(s frameState) {
	c.matrix, c.alpha = s.matrix, s.alpha
}

// MapToScreen transforms (x, y) by the current matrix.
func (c *RenderContext) MapToScreen(x, y float32) (int, int) {
	return MapToScreenWith(c.matrix, x, y)
}

// MapToScreenWith transforms (x, y) by m, dividing by w when it is
// non-zero, and truncates to integer pixels.
func MapToScreenWith(m Matrix4, x, y float32) (int, int) {
	tx, ty, tw := m.Transform(x, y)
	if tw != 0 {
		tx /= tw
		ty /= tw
	}
	return int(tx), int(ty)
}

// Snapshot reads back the current target. Rows are bottom to top, as
// reported by the UpsideDown flag.
func (c *RenderContext) Snapshot() (*PixelBuffer, error) {
	if c.closed {
		return nil, ErrContextClosed
	}
	if c.resW <= 0 || c.resH <= 0 {
		return nil, fmt.Errorf("%w: snapshot of %dx%d target", ErrDimensionlessInput, c.resW, c.resH)
	}
	pb := NewPixelBuffer(c.resW, c.resH)
	if err := c.env.device.ReadPixels(0, 0, c.resW, c.resH, pb.pix); err != nil {
		pb.recycle()
		return nil, fmt.Errorf("glscene: snapshot: %w", err)
	}
	pb.SetUpsideDown(true)
	return pb, nil
}

// SetShowOutlines enables DrawDiagRect and DrawDiagLine.
func (c *RenderContext) SetShowOutlines(show bool) {
	c.showOutlines = show
}

// ShowOutlines reports whether diagnostic outlines are drawn.
func (c *RenderContext) ShowOutlines() bool {
	return c.showOutlines
}
