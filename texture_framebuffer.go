package glscene

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glscene/backend"
)

// FramebufferTexture is the color attachment of an offscreen render target
// together with its framebuffer object. Its content exists only on the GPU,
// so it is never evicted.
type FramebufferTexture struct {
	textureBase

	width  int
	height int

	fbo      backend.FramebufferID
	color    backend.TextureID
	created  bool
	attached bool
}

func newFramebufferTexture(env *textureEnv, width, height int) *FramebufferTexture {
	t := &FramebufferTexture{}
	t.init(env, t.Delete)
	t.create(width, height)
	return t
}

func (t *FramebufferTexture) create(width, height int) {
	t.width, t.height = max(width, 0), max(height, 0)
	t.created, t.attached = false, false
	if t.width == 0 || t.height == 0 {
		return
	}

	d := t.env.device
	color, err := d.CreateTexture(backend.TextureDescriptor{
		Label:   "framebuffer",
		Size:    gputypes.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
		Format:  gputypes.TextureFormatRGBA8Unorm,
		Usage:   gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
		Sampler: linearSampler(),
	}, nil)
	if err != nil {
		slogger().Warn("glscene: framebuffer color texture", "width", t.width, "height", t.height, "err", err)
		return
	}
	fbo, err := d.CreateFramebuffer()
	if err != nil {
		d.DeleteTexture(color)
		slogger().Warn("glscene: framebuffer object", "err", err)
		return
	}
	t.color, t.fbo, t.created = color, fbo, true
	t.env.budget.Adjust(t.footprint())
}

func (t *FramebufferTexture) footprint() int64 {
	return int64(t.width) * int64(t.height) * 4
}

// resize recreates the target. The previous content is lost.
func (t *FramebufferTexture) resize(width, height int) {
	t.Delete()
	t.create(width, height)
}

// prepare binds the framebuffer as the render target, checking completeness
// on first use after (re)creation.
func (t *FramebufferTexture) prepare() error {
	if !t.created {
		if t.width != 0 && t.height != 0 {
			slogger().Warn("glscene: framebuffer was not created", "width", t.width, "height", t.height)
		}
		return fmt.Errorf("%w: %dx%d not created", ErrFramebufferIncomplete, t.width, t.height)
	}
	d := t.env.device
	d.BindFramebuffer(t.fbo)
	if !t.attached {
		if err := d.AttachColor(t.fbo, t.color); err != nil {
			slogger().Warn("glscene: framebuffer incomplete", "width", t.width, "height", t.height, "err", err)
			return fmt.Errorf("%w: %w", ErrFramebufferIncomplete, err)
		}
		t.attached = true
	}
	d.Viewport(t.width, t.height)
	return nil
}

// Kind returns KindFramebuffer.
func (t *FramebufferTexture) Kind() TextureKind { return KindFramebuffer }

// Width returns the target width.
func (t *FramebufferTexture) Width() int { return t.width }

// Height returns the target height.
func (t *FramebufferTexture) Height() int { return t.height }

// Bind binds the color attachment for sampling.
func (t *FramebufferTexture) Bind() error {
	t.touch()
	if !t.created {
		return fmt.Errorf("%w: framebuffer %dx%d", ErrNotInitialized, t.width, t.height)
	}
	t.env.device.BindTexture(backend.UnitTexture, t.color)
	return nil
}

// BindAsMask fails with ErrUnsupported.
func (t *FramebufferTexture) BindAsMask() error {
	return fmt.Errorf("%w: framebuffer texture as mask", ErrUnsupported)
}

// Delete releases the framebuffer object and its color texture.
func (t *FramebufferTexture) Delete() {
	if !t.created {
		return
	}
	d := t.env.device
	d.DeleteFramebuffer(t.fbo)
	d.DeleteTexture(t.color)
	t.env.budget.Adjust(-t.footprint())
	t.fbo, t.color = 0, 0
	t.created, t.attached = false, false
}

// PixelBuffer fails with ErrUnsupported. Use RenderContext.Snapshot while
// the framebuffer is current.
func (t *FramebufferTexture) PixelBuffer() (*PixelBuffer, error) {
	return nil, fmt.Errorf("%w: framebuffer texture", ErrUnsupported)
}
