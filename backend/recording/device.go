// Package recording provides a headless backend.Device that keeps all
// objects in memory and records every call.
//
// The recording device is used for tests and for soak runs on machines
// without a GL context. Uploaded pixels are retained, so callers can
// inspect exactly what would have reached the GPU.
package recording

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/glscene/backend"
)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func init() {
	backend.Register(backend.DeviceRecording, func() backend.Device {
		return New()
	})
}

// Stats counts device calls since creation.
type Stats struct {
	TexturesCreated   int
	TexturesDeleted   int
	TextureUpdates    int
	MipmapsBuilt      int
	FramebuffersMade  int
	FramebuffersFreed int
	Draws             int
	Clears            int
	ResidentBytes     int64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Recording[%d textures created, %d deleted, %d draws, %.2f MiB resident]",
		s.TexturesCreated, s.TexturesDeleted, s.Draws, float64(s.ResidentBytes)/(1024*1024))
}

// Texture is a texture object held by the device.
type Texture struct {
	Desc      backend.TextureDescriptor
	Data      []byte
	Mipmapped bool
}

type framebuffer struct {
	color  backend.TextureID
	pixels []byte
	width  int
	height int
}

// Device is an in-memory backend.Device.
//
// Device is not safe for concurrent use, matching the GL threading model.
type Device struct {
	log         atomic.Pointer[slog.Logger]
	initialized bool

	nextTexture     backend.TextureID
	nextFramebuffer backend.FramebufferID
	textures        map[backend.TextureID]*Texture
	framebuffers    map[backend.FramebufferID]*framebuffer

	bound       backend.FramebufferID
	units       [3]backend.TextureID
	viewport    [2]int
	scissor     [4]int
	scissorOn   bool
	surface     framebuffer
	maxTexture  int
	failAttach  bool
	stats       Stats
	lastDraw    *backend.DrawCommand
	trace       []Call
	traceOn     bool
	surfaceSize [2]int
}

// Option configures a Device.
type Option func(*Device)

// WithMaxTextureSize sets the value reported by MaxTextureSize.
func WithMaxTextureSize(n int) Option {
	return func(d *Device) { d.maxTexture = n }
}

// WithIncompleteFramebuffers makes every AttachColor fail its
// completeness check.
func WithIncompleteFramebuffers() Option {
	return func(d *Device) { d.failAttach = true }
}

// WithTrace records every call for WriteTrace.
func WithTrace() Option {
	return func(d *Device) { d.traceOn = true }
}

// WithSurfaceSize sets the size of the default framebuffer used by ReadPixels.
func WithSurfaceSize(width, height int) Option {
	return func(d *Device) { d.surfaceSize = [2]int{width, height} }
}

// New creates a recording device.
func New(opts ...Option) *Device {
	d := &Device{
		textures:     make(map[backend.TextureID]*Texture),
		framebuffers: make(map[backend.FramebufferID]*framebuffer),
		surfaceSize:  [2]int{1280, 720},
	}
	d.log.Store(slog.New(nopHandler{}))
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetLogger sets the logger used for device diagnostics.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	d.log.Store(l)
}

// Name returns the device identifier.
func (d *Device) Name() string {
	return backend.DeviceRecording
}

// Init prepares the default surface.
func (d *Device) Init() error {
	w, h := d.surfaceSize[0], d.surfaceSize[1]
	d.surface = framebuffer{width: w, height: h, pixels: make([]byte, w*h*4)}
	d.initialized = true
	d.record("Init")
	return nil
}

// Close releases every object.
func (d *Device) Close() {
	for id := range d.textures {
		d.DeleteTexture(id)
	}
	for id := range d.framebuffers {
		d.DeleteFramebuffer(id)
	}
	d.initialized = false
	d.record("Close")
}

// Info describes the device.
func (d *Device) Info() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "glscene recording device", Type: gpucontext.AdapterTypeSoftware}
}

// MaxTextureSize returns the configured limit, or 0.
func (d *Device) MaxTextureSize() int {
	return d.maxTexture
}

// CreateTexture allocates a texture and keeps a copy of data.
func (d *Device) CreateTexture(desc backend.TextureDescriptor, data []byte) (backend.TextureID, error) {
	if !d.initialized {
		return 0, backend.ErrNotInitialized
	}
	if desc.Size.Width == 0 || desc.Size.Height == 0 {
		return 0, fmt.Errorf("%w: zero size %dx%d", backend.ErrInvalidTexture, desc.Size.Width, desc.Size.Height)
	}
	size := desc.Footprint()
	if data != nil && int64(len(data)) < size {
		return 0, fmt.Errorf("%w: %d bytes for %dx%d %s", backend.ErrInvalidTexture,
			len(data), desc.Size.Width, desc.Size.Height, desc.Format)
	}

	d.nextTexture++
	id := d.nextTexture
	tex := &Texture{Desc: desc, Data: make([]byte, size)}
	copy(tex.Data, data)
	d.textures[id] = tex

	d.stats.TexturesCreated++
	d.stats.ResidentBytes += size
	d.record("CreateTexture", uint32(id), desc.Size.Width, desc.Size.Height, desc.Format.String())
	d.log.Load().Debug("recording: texture created",
		"id", id, "width", desc.Size.Width, "height", desc.Size.Height, "bytes", size)
	return id, nil
}

// UpdateTexture replaces a region of an existing texture.
func (d *Device) UpdateTexture(id backend.TextureID, x, y, width, height int, data []byte) error {
	tex, ok := d.textures[id]
	if !ok {
		return backend.ErrInvalidTexture
	}
	tw, th := int(tex.Desc.Size.Width), int(tex.Desc.Size.Height)
	if x < 0 || y < 0 || width < 0 || height < 0 || x+width > tw || y+height > th {
		return fmt.Errorf("%w: region %d,%d %dx%d outside %dx%d", backend.ErrInvalidTexture, x, y, width, height, tw, th)
	}
	bpp := tex.Desc.BytesPerPixel()
	if len(data) < width*height*bpp {
		return fmt.Errorf("%w: short region data", backend.ErrInvalidTexture)
	}
	for row := 0; row < height; row++ {
		dst := ((y+row)*tw + x) * bpp
		src := row * width * bpp
		copy(tex.Data[dst:dst+width*bpp], data[src:src+width*bpp])
	}
	d.stats.TextureUpdates++
	d.record("UpdateTexture", uint32(id), x, y, width, height)
	return nil
}

// DeleteTexture releases a texture.
func (d *Device) DeleteTexture(id backend.TextureID) {
	tex, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	for i := range d.units {
		if d.units[i] == id {
			d.units[i] = 0
		}
	}
	d.stats.TexturesDeleted++
	d.stats.ResidentBytes -= tex.Desc.Footprint()
	d.record("DeleteTexture", uint32(id))
}

// GenerateMipmap marks the texture as mipmapped.
func (d *Device) GenerateMipmap(id backend.TextureID) {
	tex, ok := d.textures[id]
	if !ok {
		return
	}
	tex.Mipmapped = true
	d.stats.MipmapsBuilt++
	d.record("GenerateMipmap", uint32(id))
}

// BindTexture binds a texture to a unit.
func (d *Device) BindTexture(unit int, id backend.TextureID) {
	if unit < 0 || unit >= len(d.units) {
		return
	}
	d.units[unit] = id
	d.record("BindTexture", unit, uint32(id))
}

// CreateFramebuffer allocates a framebuffer object.
func (d *Device) CreateFramebuffer() (backend.FramebufferID, error) {
	if !d.initialized {
		return 0, backend.ErrNotInitialized
	}
	d.nextFramebuffer++
	id := d.nextFramebuffer
	d.framebuffers[id] = &framebuffer{}
	d.stats.FramebuffersMade++
	d.record("CreateFramebuffer", uint32(id))
	return id, nil
}

// AttachColor attaches a color texture and binds the framebuffer.
func (d *Device) AttachColor(fb backend.FramebufferID, tex backend.TextureID) error {
	f, ok := d.framebuffers[fb]
	if !ok {
		return backend.ErrInvalidFramebuffer
	}
	d.bound = fb
	t, ok := d.textures[tex]
	if !ok || d.failAttach {
		d.record("AttachColor", uint32(fb), uint32(tex), false)
		return backend.ErrFramebufferIncomplete
	}
	f.color = tex
	f.width, f.height = int(t.Desc.Size.Width), int(t.Desc.Size.Height)
	d.record("AttachColor", uint32(fb), uint32(tex), true)
	return nil
}

// DeleteFramebuffer releases a framebuffer object.
func (d *Device) DeleteFramebuffer(fb backend.FramebufferID) {
	if _, ok := d.framebuffers[fb]; !ok {
		return
	}
	delete(d.framebuffers, fb)
	if d.bound == fb {
		d.bound = backend.DefaultFramebuffer
	}
	d.stats.FramebuffersFreed++
	d.record("DeleteFramebuffer", uint32(fb))
}

// BindFramebuffer makes fb the current target.
func (d *Device) BindFramebuffer(fb backend.FramebufferID) {
	d.bound = fb
	d.record("BindFramebuffer", uint32(fb))
}

// Viewport sets the drawable area.
func (d *Device) Viewport(width, height int) {
	d.viewport = [2]int{width, height}
	d.record("Viewport", width, height)
}

// Scissor sets the scissor test.
func (d *Device) Scissor(enabled bool, x, y, width, height int) {
	d.scissorOn = enabled
	d.scissor = [4]int{x, y, width, height}
	d.record("Scissor", enabled, x, y, width, height)
}

// Clear fills the current target with a color.
func (d *Device) Clear(c gputypes.Color) {
	d.stats.Clears++
	d.record("Clear", c.R, c.G, c.B, c.A)

	px := [4]byte{unorm(c.R), unorm(c.G), unorm(c.B), unorm(c.A)}
	var dst []byte
	if d.bound == backend.DefaultFramebuffer {
		dst = d.surface.pixels
	} else if f, ok := d.framebuffers[d.bound]; ok {
		if t, ok := d.textures[f.color]; ok {
			dst = t.Data
		}
	}
	for i := 0; i+4 <= len(dst); i += 4 {
		copy(dst[i:i+4], px[:])
	}
}

// Draw records a draw command.
func (d *Device) Draw(cmd *backend.DrawCommand) error {
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	switch cmd.Program {
	case backend.ProgramTexture, backend.ProgramAlphaTexture:
		if _, ok := d.textures[d.units[backend.UnitTexture]]; !ok {
			return fmt.Errorf("%w: nothing bound to unit %d", backend.ErrInvalidTexture, backend.UnitTexture)
		}
	case backend.ProgramTextureMasked:
		if _, ok := d.textures[d.units[backend.UnitMask]]; !ok {
			return fmt.Errorf("%w: nothing bound to unit %d", backend.ErrInvalidTexture, backend.UnitMask)
		}
	}

	c := *cmd
	c.Positions = append([]float32(nil), cmd.Positions...)
	c.UVs = append([]float32(nil), cmd.UVs...)
	d.lastDraw = &c
	d.stats.Draws++
	d.record("Draw", cmd.Program.String(), cmd.Topology.String(), cmd.VertexCount(), cmd.Alpha)
	return nil
}

// ReadPixels copies pixels of the current target into dst.
func (d *Device) ReadPixels(x, y, width, height int, dst []byte) error {
	src, sw, sh := d.surface.pixels, d.surface.width, d.surface.height
	if d.bound != backend.DefaultFramebuffer {
		f, ok := d.framebuffers[d.bound]
		if !ok {
			return backend.ErrInvalidFramebuffer
		}
		t, ok := d.textures[f.color]
		if !ok {
			return backend.ErrInvalidTexture
		}
		src, sw, sh = t.Data, f.width, f.height
	}
	if len(dst) < width*height*4 {
		return fmt.Errorf("recording: short destination (%d bytes for %dx%d)", len(dst), width, height)
	}
	for row := 0; row < height; row++ {
		sy := y + row
		if sy < 0 || sy >= sh {
			continue
		}
		for col := 0; col < width; col++ {
			sx := x + col
			if sx < 0 || sx >= sw {
				continue
			}
			copy(dst[(row*width+col)*4:(row*width+col)*4+4], src[(sy*sw+sx)*4:(sy*sw+sx)*4+4])
		}
	}
	d.record("ReadPixels", x, y, width, height)
	return nil
}

// Stats returns the call counters.
func (d *Device) Stats() Stats {
	return d.stats
}

// Texture returns a live texture object, or nil.
func (d *Device) Texture(id backend.TextureID) *Texture {
	return d.textures[id]
}

// LiveTextures returns the number of texture objects not yet deleted.
func (d *Device) LiveTextures() int {
	return len(d.textures)
}

// BoundTexture returns the texture bound to unit.
func (d *Device) BoundTexture(unit int) backend.TextureID {
	if unit < 0 || unit >= len(d.units) {
		return 0
	}
	return d.units[unit]
}

// BoundFramebuffer returns the current target.
func (d *Device) BoundFramebuffer() backend.FramebufferID {
	return d.bound
}

// ViewportSize returns the last viewport size.
func (d *Device) ViewportSize() (width, height int) {
	return d.viewport[0], d.viewport[1]
}

// ScissorState returns the scissor test state.
func (d *Device) ScissorState() (enabled bool, x, y, width, height int) {
	return d.scissorOn, d.scissor[0], d.scissor[1], d.scissor[2], d.scissor[3]
}

// LastDraw returns a copy of the most recent draw command, or nil.
func (d *Device) LastDraw() *backend.DrawCommand {
	return d.lastDraw
}

func unorm(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return byte(v*255 + 0.5)
	}
}
