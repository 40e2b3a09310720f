package backend

import (
	"errors"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Common device errors.
var (
	// ErrDeviceNotAvailable is returned when a requested device is not registered.
	ErrDeviceNotAvailable = errors.New("backend: device not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrInvalidTexture is returned for unknown or deleted texture ids.
	ErrInvalidTexture = errors.New("backend: invalid texture")

	// ErrInvalidFramebuffer is returned for unknown or deleted framebuffer ids.
	ErrInvalidFramebuffer = errors.New("backend: invalid framebuffer")

	// ErrFramebufferIncomplete is returned when a framebuffer fails its
	// completeness check after a color attachment.
	ErrFramebufferIncomplete = errors.New("backend: framebuffer incomplete")
)

// TextureID names a device texture object. Zero is never a live texture.
type TextureID uint32

// FramebufferID names a device framebuffer object. Zero is the default
// on-screen surface.
type FramebufferID uint32

// DefaultFramebuffer is the on-screen surface.
const DefaultFramebuffer FramebufferID = 0

// Texture units used by the fixed programs.
const (
	// UnitTexture is the unit sampled as the color source.
	UnitTexture = 1

	// UnitMask is the unit sampled as the coverage mask.
	UnitMask = 2
)

// TextureDescriptor describes a texture object to create.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Size is the texture size. DepthOrArrayLayers is ignored.
	Size gputypes.Extent3D

	// Format is RGBA8Unorm for color textures or R8Unorm for alpha masks.
	Format gputypes.TextureFormat

	// Usage must contain TextureBinding. Framebuffer color targets also
	// carry RenderAttachment.
	Usage gputypes.TextureUsage

	// Sampler holds the initial filter and wrap state.
	Sampler gputypes.SamplerDescriptor
}

// BytesPerPixel returns the storage size of one texel for the descriptor's format.
func (d TextureDescriptor) BytesPerPixel() int {
	if d.Format == gputypes.TextureFormatR8Unorm {
		return 1
	}
	return 4
}

// Footprint returns the number of bytes the texture occupies on the device.
func (d TextureDescriptor) Footprint() int64 {
	return int64(d.Size.Width) * int64(d.Size.Height) * int64(d.BytesPerPixel())
}

// Program selects one of the fixed shader programs.
type Program int

const (
	// ProgramSolid fills with a premultiplied color.
	ProgramSolid Program = iota

	// ProgramTexture samples UnitTexture scaled by alpha.
	ProgramTexture

	// ProgramAlphaTexture uses UnitTexture's alpha as coverage for Color.
	ProgramAlphaTexture

	// ProgramTextureMasked samples UnitTexture scaled by alpha and UnitMask's alpha.
	ProgramTextureMasked
)

// String returns the program name.
func (p Program) String() string {
	switch p {
	case ProgramSolid:
		return "Solid"
	case ProgramTexture:
		return "Texture"
	case ProgramAlphaTexture:
		return "AlphaTexture"
	case ProgramTextureMasked:
		return "TextureMasked"
	default:
		return "Unknown"
	}
}

// DrawCommand is a single draw through a fixed program.
// Textures referenced by the program must be bound before Draw.
type DrawCommand struct {
	Program  Program
	Topology gputypes.PrimitiveTopology

	// Resolution is the size of the current render target in pixels.
	Resolution [2]float32

	// Matrix is the column-major model transform.
	Matrix [16]float32

	// Alpha is the global opacity multiplier.
	Alpha float32

	// Color is a premultiplied RGBA color for Solid and AlphaTexture.
	Color [4]float32

	// Positions holds x,y pairs in pixel coordinates.
	Positions []float32

	// UVs holds u,v pairs, one per position. Nil for ProgramSolid.
	UVs []float32

	// WrapU and WrapV set the address mode of UnitTexture for this draw.
	WrapU, WrapV gputypes.AddressMode
}

// VertexCount returns the number of vertices in the command.
func (c *DrawCommand) VertexCount() int {
	return len(c.Positions) / 2
}

// Device is the fixed rendering backend used by glscene.
//
// All methods must be called from the goroutine that owns the device's
// graphics context. Implementations are not safe for concurrent use.
type Device interface {
	// Name returns the device identifier (e.g., "gles", "recording").
	Name() string

	// Init prepares programs and default state.
	Init() error

	// Close releases programs and any objects still owned by the device.
	Close()

	// Info describes the adapter behind the device.
	Info() gpucontext.AdapterInfo

	// MaxTextureSize returns the largest supported texture edge, or 0 if unknown.
	MaxTextureSize() int

	// CreateTexture allocates a texture and uploads data, which may be nil.
	CreateTexture(desc TextureDescriptor, data []byte) (TextureID, error)

	// UpdateTexture replaces a region of an existing texture.
	UpdateTexture(id TextureID, x, y, width, height int, data []byte) error

	// DeleteTexture releases a texture. Unknown ids are ignored.
	DeleteTexture(id TextureID)

	// GenerateMipmap builds the mip chain and switches minification to
	// trilinear filtering.
	GenerateMipmap(id TextureID)

	// BindTexture binds a texture to a texture unit for the next draw.
	BindTexture(unit int, id TextureID)

	// CreateFramebuffer allocates a framebuffer object without attachments.
	CreateFramebuffer() (FramebufferID, error)

	// AttachColor attaches a texture as the color target of fb, which is
	// left bound, and checks completeness.
	AttachColor(fb FramebufferID, tex TextureID) error

	// DeleteFramebuffer releases a framebuffer object. Unknown ids are ignored.
	DeleteFramebuffer(fb FramebufferID)

	// BindFramebuffer makes fb the current render target.
	BindFramebuffer(fb FramebufferID)

	// Viewport sets the drawable area of the current target.
	Viewport(width, height int)

	// Scissor enables or disables the scissor test with the given rectangle
	// in window coordinates.
	Scissor(enabled bool, x, y, width, height int)

	// Clear clears the current target to a color.
	Clear(c gputypes.Color)

	// Draw issues a draw call.
	Draw(cmd *DrawCommand) error

	// ReadPixels reads RGBA8 pixels from the current target into dst.
	ReadPixels(x, y, width, height int, dst []byte) error
}
