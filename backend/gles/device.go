// Package gles implements backend.Device on OpenGL ES 2.
//
// The device requires a current GL context on the calling goroutine
// before Init, and every later call must come from that goroutine
// (see runtime.LockOSThread).
package gles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	gl "github.com/go-gl/gl/v3.1/gles2"
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
	backend.Register(backend.DeviceGLES, func() backend.Device {
		return New()
	})
}

// Device is an OpenGL ES 2 backend.Device.
type Device struct {
	log atomic.Pointer[slog.Logger]

	initialized bool
	info        gpucontext.AdapterInfo
	maxTexture  int

	programs [4]*program
	current  backend.Program
	inUse    bool
	vbo      uint32
	scratch  []float32

	// formats remembers each texture's format for sub-image uploads.
	formats map[backend.TextureID]gputypes.TextureFormat
}

// New creates an uninitialized device.
func New() *Device {
	d := &Device{formats: make(map[backend.TextureID]gputypes.TextureFormat)}
	d.log.Store(slog.New(nopHandler{}))
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
	return backend.DeviceGLES
}

// Init loads GL entry points and builds the fixed programs.
func (d *Device) Init() error {
	if d.initialized {
		return nil
	}
	if err := gl.Init(); err != nil {
		return fmt.Errorf("gles: init: %w", err)
	}

	renderer := gl.GoStr(gl.GetString(gl.RENDERER))
	d.info = gpucontext.AdapterInfo{Name: renderer, Type: adapterType(renderer)}

	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	d.maxTexture = int(maxSize)

	for _, p := range []backend.Program{
		backend.ProgramSolid, backend.ProgramTexture,
		backend.ProgramAlphaTexture, backend.ProgramTextureMasked,
	} {
		prog, err := newProgram(vertexShader, fragmentSource(p))
		if err != nil {
			d.deletePrograms()
			return fmt.Errorf("gles: %s program: %w", p, err)
		}
		d.programs[p] = prog
	}

	gl.GenBuffers(1, &d.vbo)
	gl.ClearColor(0, 0, 0, 0)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)

	d.initialized = true
	d.log.Load().Info("gles: device initialized",
		"renderer", renderer,
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"maxTextureSize", d.maxTexture)
	return nil
}

// Close releases programs and the vertex buffer. Textures and
// framebuffers are owned by their glscene objects.
func (d *Device) Close() {
	if !d.initialized {
		return
	}
	d.deletePrograms()
	gl.DeleteBuffers(1, &d.vbo)
	d.vbo = 0
	d.initialized = false
}

func (d *Device) deletePrograms() {
	for i, p := range d.programs {
		if p != nil {
			gl.DeleteProgram(p.id)
			d.programs[i] = nil
		}
	}
	d.inUse = false
}

// Info describes the GL renderer.
func (d *Device) Info() gpucontext.AdapterInfo {
	return d.info
}

// MaxTextureSize returns GL_MAX_TEXTURE_SIZE.
func (d *Device) MaxTextureSize() int {
	return d.maxTexture
}

// CreateTexture generates a texture object and uploads data.
func (d *Device) CreateTexture(desc backend.TextureDescriptor, data []byte) (backend.TextureID, error) {
	if !d.initialized {
		return 0, backend.ErrNotInitialized
	}
	w, h := int32(desc.Size.Width), int32(desc.Size.Height)
	if w == 0 || h == 0 {
		return 0, fmt.Errorf("%w: zero size %dx%d", backend.ErrInvalidTexture, w, h)
	}
	if data != nil && int64(len(data)) < desc.Footprint() {
		return 0, fmt.Errorf("%w: %d bytes for %dx%d", backend.ErrInvalidTexture, len(data), w, h)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.ActiveTexture(gl.TEXTURE0 + backend.UnitTexture)
	gl.BindTexture(gl.TEXTURE_2D, id)
	applySampler(desc.Sampler)

	format := glFormat(desc.Format)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, int32(desc.BytesPerPixel()))
	pixels := gl.Ptr(nil)
	if len(data) > 0 {
		pixels = gl.Ptr(data)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(format), w, h, 0, format, gl.UNSIGNED_BYTE, pixels)

	d.formats[backend.TextureID(id)] = desc.Format
	d.log.Load().Debug("gles: texture created", "id", id, "width", w, "height", h, "label", desc.Label)
	return backend.TextureID(id), nil
}

// UpdateTexture replaces a region of an existing texture.
func (d *Device) UpdateTexture(id backend.TextureID, x, y, width, height int, data []byte) error {
	format, ok := d.formats[id]
	if !ok {
		return backend.ErrInvalidTexture
	}
	bpp := 4
	if format == gputypes.TextureFormatR8Unorm {
		bpp = 1
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	if len(data) < width*height*bpp {
		return fmt.Errorf("%w: short region data", backend.ErrInvalidTexture)
	}
	gl.ActiveTexture(gl.TEXTURE0 + backend.UnitTexture)
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, int32(bpp))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(x), int32(y), int32(width), int32(height),
		glFormat(format), gl.UNSIGNED_BYTE, gl.Ptr(data))
	return nil
}

// DeleteTexture releases a texture object.
func (d *Device) DeleteTexture(id backend.TextureID) {
	if _, ok := d.formats[id]; !ok {
		return
	}
	tex := uint32(id)
	gl.DeleteTextures(1, &tex)
	delete(d.formats, id)
}

// GenerateMipmap builds the mip chain of a texture.
func (d *Device) GenerateMipmap(id backend.TextureID) {
	if _, ok := d.formats[id]; !ok {
		return
	}
	gl.ActiveTexture(gl.TEXTURE0 + backend.UnitTexture)
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.GenerateMipmap(gl.TEXTURE_2D)
}

// BindTexture binds a texture to a texture unit.
func (d *Device) BindTexture(unit int, id backend.TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
}

// CreateFramebuffer generates a framebuffer object.
func (d *Device) CreateFramebuffer() (backend.FramebufferID, error) {
	if !d.initialized {
		return 0, backend.ErrNotInitialized
	}
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return backend.FramebufferID(fb), nil
}

// AttachColor attaches tex as COLOR_ATTACHMENT0 of fb and checks completeness.
func (d *Device) AttachColor(fb backend.FramebufferID, tex backend.TextureID) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, uint32(tex), 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: status 0x%x", backend.ErrFramebufferIncomplete, status)
	}
	return nil
}

// DeleteFramebuffer releases a framebuffer object.
func (d *Device) DeleteFramebuffer(fb backend.FramebufferID) {
	if fb == backend.DefaultFramebuffer {
		return
	}
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
}

// BindFramebuffer makes fb the current render target.
func (d *Device) BindFramebuffer(fb backend.FramebufferID) {
	d.inUse = false
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

// Viewport sets the viewport.
func (d *Device) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Scissor sets the scissor test.
func (d *Device) Scissor(enabled bool, x, y, width, height int) {
	if !enabled {
		gl.Disable(gl.SCISSOR_TEST)
		return
	}
	gl.Enable(gl.SCISSOR_TEST)
	gl.Scissor(int32(x), int32(y), int32(width), int32(height))
}

// Clear clears the color buffer of the current target.
func (d *Device) Clear(c gputypes.Color) {
	var prev [4]float32
	gl.GetFloatv(gl.COLOR_CLEAR_VALUE, &prev[0])
	gl.ClearColor(float32(c.R), float32(c.G), float32(c.B), float32(c.A))
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.ClearColor(prev[0], prev[1], prev[2], prev[3])
}

// Draw uploads the vertex data and issues glDrawArrays.
func (d *Device) Draw(cmd *backend.DrawCommand) error {
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	if int(cmd.Program) < 0 || int(cmd.Program) >= len(d.programs) {
		return fmt.Errorf("gles: unknown program %d", cmd.Program)
	}
	p := d.programs[cmd.Program]
	if !d.inUse || d.current != cmd.Program {
		gl.UseProgram(p.id)
		d.current = cmd.Program
		d.inUse = true
	}

	gl.Uniform2f(p.resolution, cmd.Resolution[0], cmd.Resolution[1])
	gl.UniformMatrix4fv(p.matrix, 1, false, &cmd.Matrix[0])
	gl.Uniform1f(p.alpha, cmd.Alpha)
	if p.color >= 0 {
		gl.Uniform4fv(p.color, 1, &cmd.Color[0])
	}
	if p.texture >= 0 {
		gl.Uniform1i(p.texture, backend.UnitTexture)
		gl.ActiveTexture(gl.TEXTURE0 + backend.UnitTexture)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(cmd.WrapU))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(cmd.WrapV))
	}
	if p.mask >= 0 {
		gl.Uniform1i(p.mask, backend.UnitMask)
	}

	n := cmd.VertexCount()
	if n == 0 {
		return nil
	}

	// Positions and UVs share one buffer: [pos... | uv...].
	d.scratch = append(d.scratch[:0], cmd.Positions...)
	hasUV := len(cmd.UVs) >= 2*n
	if hasUV {
		d.scratch = append(d.scratch, cmd.UVs[:2*n]...)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(d.scratch)*4, gl.Ptr(d.scratch), gl.STREAM_DRAW)

	gl.VertexAttribPointerWithOffset(attribPos, 2, gl.FLOAT, false, 0, 0)
	gl.EnableVertexAttribArray(attribPos)
	if hasUV {
		gl.VertexAttribPointerWithOffset(attribUV, 2, gl.FLOAT, false, 0, uintptr(2*n*4))
		gl.EnableVertexAttribArray(attribUV)
	}

	gl.DrawArrays(glMode(cmd.Topology), 0, int32(n))

	gl.DisableVertexAttribArray(attribPos)
	if hasUV {
		gl.DisableVertexAttribArray(attribUV)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// ReadPixels reads RGBA8 pixels from the current target.
func (d *Device) ReadPixels(x, y, width, height int, dst []byte) error {
	if len(dst) < width*height*4 {
		return fmt.Errorf("gles: short destination (%d bytes for %dx%d)", len(dst), width, height)
	}
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(dst))
	return nil
}

func applySampler(s gputypes.SamplerDescriptor) {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(s.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(s.MagFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(s.AddressModeU))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(s.AddressModeV))
}

func glFormat(f gputypes.TextureFormat) uint32 {
	if f == gputypes.TextureFormatR8Unorm {
		return gl.ALPHA
	}
	return gl.RGBA
}

func glFilter(f gputypes.FilterMode) int32 {
	if f == gputypes.FilterModeNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func glWrap(m gputypes.AddressMode) int32 {
	if m == gputypes.AddressModeRepeat {
		return gl.REPEAT
	}
	return gl.CLAMP_TO_EDGE
}

func glMode(t gputypes.PrimitiveTopology) uint32 {
	switch t {
	case gputypes.PrimitiveTopologyPointList:
		return gl.POINTS
	case gputypes.PrimitiveTopologyLineList:
		return gl.LINES
	case gputypes.PrimitiveTopologyLineStrip:
		return gl.LINE_STRIP
	case gputypes.PrimitiveTopologyTriangleList:
		return gl.TRIANGLES
	default:
		return gl.TRIANGLE_STRIP
	}
}

func adapterType(renderer string) gpucontext.AdapterType {
	r := strings.ToLower(renderer)
	switch {
	case strings.Contains(r, "llvmpipe"), strings.Contains(r, "swiftshader"), strings.Contains(r, "softpipe"):
		return gpucontext.AdapterTypeSoftware
	case strings.Contains(r, "intel"), strings.Contains(r, "mali"), strings.Contains(r, "adreno"),
		strings.Contains(r, "videocore"), strings.Contains(r, "powervr"):
		return gpucontext.AdapterTypeIntegrated
	case strings.Contains(r, "nvidia"), strings.Contains(r, "radeon"), strings.Contains(r, "geforce"):
		return gpucontext.AdapterTypeDiscrete
	default:
		return gpucontext.AdapterTypeUnknown
	}
}
