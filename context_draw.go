package glscene

import (
	"image/color"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glscene/backend"
)

// Stretch selects how an image fills a destination larger or smaller
// than itself along one axis.
type Stretch int

const (
	// StretchNone draws the image at its own size, clamped at the edge.
	StretchNone Stretch = iota

	// StretchStretch scales the image to the destination.
	StretchStretch

	// StretchRepeat tiles the image across the destination.
	StretchRepeat
)

// String returns the stretch mode name.
func (s Stretch) String() string {
	switch s {
	case StretchNone:
		return "None"
	case StretchStretch:
		return "Stretch"
	case StretchRepeat:
		return "Repeat"
	default:
		return "Unknown"
	}
}

func (s Stretch) valid() bool {
	return s >= StretchNone && s <= StretchRepeat
}

func (s Stretch) addressMode() gputypes.AddressMode {
	if s == StretchRepeat {
		return gputypes.AddressModeRepeat
	}
	return gputypes.AddressModeClampToEdge
}

// DrawImageOptions controls DrawImage. The zero value draws with
// StretchNone on both axes.
type DrawImageOptions struct {
	// UseTextureDimsAlways ignores the destination size and uses the
	// texture's. The destination size must still be positive.
	UseTextureDimsAlways bool

	// Color tints alpha textures. Nil means opaque black.
	Color *RGBA

	StretchX Stretch
	StretchY Stretch

	// DownscaleSmooth builds mipmaps so minified draws stay smooth.
	DownscaleSmooth bool
}

// DrawRect draws a w x h rectangle at the origin of the current transform.
// The fill is inset by half the line width; the outline is drawn when line
// is opaque enough and lineWidth is positive. Either color may be nil.
func (c *RenderContext) DrawRect(w, h, lineWidth float32, fill, line *RGBA) {
	if c.alpha <= 0 || w <= 0 || h <= 0 {
		return
	}
	if fill == nil && line == nil {
		return
	}

	if fill != nil && fill.A > 0 {
		half := lineWidth / 2
		c.drawSolidRect(half, half, w-lineWidth, h-lineWidth, *fill)
	}
	if line != nil && line.A > 0 && lineWidth > 0 {
		c.drawRectOutline(0, 0, w, h, lineWidth, *line)
	}
}

func (c *RenderContext) drawSolidRect(x, y, w, h float32, col RGBA) {
	c.draw(&backend.DrawCommand{
		Program:  backend.ProgramSolid,
		Topology: gputypes.PrimitiveTopologyTriangleStrip,
		Color:    col.vec4(),
		Positions: []float32{
			x, y,
			x + w, y,
			x, y + h,
			x + w, y + h,
		},
	})
}

func (c *RenderContext) drawRectOutline(x, y, w, h, lw float32, col RGBA) {
	ox1, ix1 := x, x+lw
	ox2, ix2 := x+w, x+w-lw
	oy1, iy1 := y, y+lw
	oy2, iy2 := y+h, y+h-lw

	c.draw(&backend.DrawCommand{
		Program:  backend.ProgramSolid,
		Topology: gputypes.PrimitiveTopologyTriangleStrip,
		Color:    col.vec4(),
		Positions: []float32{
			ox1, oy1,
			ix1, iy1,
			ox2, oy1,
			ix2, iy1,
			ox2, oy2,
			ix2, iy2,
			ox1, oy2,
			ix1, iy2,
			ox1, oy1,
			ix1, iy1,
		},
	})
}

// DrawImage draws tex into a w x h rectangle at (x, y). mask may be nil.
// Nothing is drawn unless w and h are positive.
//
// A texture that cannot be bound this frame (still decoding, or out of
// budget) is replaced by a black rectangle of the texture's size.
func (c *RenderContext) DrawImage(x, y, w, h float32, tex, mask Texture, opts *DrawImageOptions) {
	if c.alpha <= 0 || w <= 0 || h <= 0 {
		return
	}
	if tex == nil {
		return
	}
	var o DrawImageOptions
	if opts != nil {
		o = *opts
	}

	if b, ok := tex.(interface{ touch() }); ok {
		b.touch()
	}
	if rt, ok := tex.(*RasterTexture); ok {
		rt.SetDownscaleSmooth(o.DownscaleSmooth)
	}
	if mask != nil {
		if b, ok := mask.(interface{ touch() }); ok {
			b.touch()
		}
	}
	if !o.StretchX.valid() {
		o.StretchX = StretchNone
	}
	if !o.StretchY.valid() {
		o.StretchY = StretchNone
	}

	c.drawImageTexture(x, y, w, h, tex, mask, o)
}

func (c *RenderContext) drawImageTexture(x, y, w, h float32, tex, mask Texture, o DrawImageOptions) {
	iw, ih := float32(tex.Width()), float32(tex.Height())
	if o.UseTextureDimsAlways {
		w, h = iw, ih
	}

	tw, th := float32(1), float32(1)
	if o.StretchX != StretchStretch && iw > 0 {
		tw = w / iw
	}
	if o.StretchY != StretchStretch && ih > 0 {
		th = h / ih
	}

	cmd := &backend.DrawCommand{
		Program:  backend.ProgramTexture,
		Topology: gputypes.PrimitiveTopologyTriangleStrip,
		Positions: []float32{
			x, y,
			x + w, y,
			x, y + h,
			x + w, y + h,
		},
		UVs: []float32{
			0, 1,
			tw, 1,
			0, 1 - th,
			tw, 1 - th,
		},
		WrapU: gputypes.AddressModeClampToEdge,
		WrapV: gputypes.AddressModeClampToEdge,
	}

	var err error
	switch {
	case mask != nil:
		cmd.Program = backend.ProgramTextureMasked
		if err = tex.Bind(); err == nil {
			err = mask.BindAsMask()
		}
	case tex.Kind() == KindAlpha:
		cmd.Program = backend.ProgramAlphaTexture
		col := Black
		if o.Color != nil {
			col = *o.Color
		}
		cmd.Color = col.vec4()
		err = tex.Bind()
	default:
		cmd.WrapU = o.StretchX.addressMode()
		cmd.WrapV = o.StretchY.addressMode()
		err = tex.Bind()
	}

	if err != nil {
		slogger().Debug("glscene: draw image placeholder", "kind", tex.Kind(), "err", err)
		c.drawSolidRect(0, 0, iw, ih, Black)
		return
	}
	c.draw(cmd)
}

// DrawImage9 draws tex as a w x h nine-patch at the origin of the current
// transform. x1, y1, x2, y2 are the left, top, right and bottom insets.
// Nothing is drawn while the texture cannot be bound.
func (c *RenderContext) DrawImage9(w, h, x1, y1, x2, y2 float32, tex Texture) {
	if c.alpha <= 0 || w <= 0 || h <= 0 {
		return
	}
	if tex == nil {
		return
	}
	if b, ok := tex.(interface{ touch() }); ok {
		b.touch()
	}

	np := NinePatchGeometry(0, 0, w, h, x1, y1, x2, y2, tex.Width(), tex.Height())
	if err := tex.Bind(); err != nil {
		slogger().Debug("glscene: nine-patch skipped", "kind", tex.Kind(), "err", err)
		return
	}
	c.draw(&backend.DrawCommand{
		Program:   backend.ProgramTexture,
		Topology:  gputypes.PrimitiveTopologyTriangleStrip,
		Positions: np.Positions[:],
		UVs:       np.UVs[:],
		WrapU:     gputypes.AddressModeClampToEdge,
		WrapV:     gputypes.AddressModeClampToEdge,
	})
}

// DrawOffscreen copies a w x h region of src at (srcX, srcY) into the
// software surface at (dstX, dstY), draws the whole surface, then clears
// both the surface and src.
func (c *RenderContext) DrawOffscreen(srcX, srcY, dstX, dstY, w, h int, src *PixelBuffer) {
	if c.alpha <= 0 || w <= 0 || h <= 0 {
		return
	}
	if c.software == nil {
		c.software = c.NewSoftwareTexture(c.softwareWidth, c.softwareHeight)
	}
	sw := c.software

	sw.blit(src, srcX, srcY, dstX, dstY, w, h)
	c.DrawImage(0, 0, float32(sw.Width()), float32(sw.Height()), sw, nil, &DrawImageOptions{
		UseTextureDimsAlways: true,
		Color:                &Transparent,
	})

	sw.clear()
	if src.Initialized() {
		src.Fill(color.NRGBA{})
	}
}

// SoftwareSurface returns the backing used by DrawOffscreen, or nil
// before the first DrawOffscreen.
func (c *RenderContext) SoftwareSurface() *SoftwareTexture {
	return c.software
}

// DrawDiagRect outlines a rectangle when outlines are shown.
func (c *RenderContext) DrawDiagRect(x, y, w, h float32, col *RGBA) {
	if !c.showOutlines {
		return
	}
	if c.alpha <= 0 || w <= 0 || h <= 0 {
		return
	}
	if col == nil || col.A == 0 {
		return
	}
	c.draw(&backend.DrawCommand{
		Program:  backend.ProgramSolid,
		Topology: gputypes.PrimitiveTopologyLineStrip,
		Color:    col.vec4(),
		Positions: []float32{
			x, y,
			x + w, y,
			x + w, y + h,
			x, y + h,
			x, y,
		},
	})
}

// DrawDiagLine draws a line when outlines are shown.
func (c *RenderContext) DrawDiagLine(x1, y1, x2, y2 float32, col *RGBA) {
	if !c.showOutlines || c.alpha <= 0 {
		return
	}
	if col == nil || col.A == 0 {
		return
	}
	c.draw(&backend.DrawCommand{
		Program:   backend.ProgramSolid,
		Topology:  gputypes.PrimitiveTopologyLineList,
		Color:     col.vec4(),
		Positions: []float32{x1, y1, x2, y2},
	})
}

// draw fills in the frame state and submits cmd.
func (c *RenderContext) draw(cmd *backend.DrawCommand) {
	cmd.Resolution = [2]float32{float32(c.resW), float32(c.resH)}
	cmd.Matrix = c.matrix
	cmd.Alpha = c.alpha
	if err := c.env.device.Draw(cmd); err != nil {
		slogger().Warn("glscene: draw failed", "program", cmd.Program, "err", err)
	}
}
