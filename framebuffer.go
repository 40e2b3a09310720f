package glscene

import "image"

// frameState is the transform and alpha saved by PushState.
type frameState struct {
	matrix Matrix4
	alpha  float32
}

func defaultFrameState() frameState {
	return frameState{matrix: Identity4(), alpha: 1}
}

// Framebuffer is a render target: the default surface or an offscreen
// FramebufferTexture. Each target keeps its own state stack and dirty
// rectangle, so switching targets switches which stack is active.
type Framebuffer struct {
	texture *FramebufferTexture

	stack        []frameState
	dirty        image.Rectangle
	dirtyEnabled bool
}

// Texture returns the color attachment, or nil for the default surface.
// The returned texture can be drawn with DrawImage.
func (f *Framebuffer) Texture() *FramebufferTexture {
	if f == nil {
		return nil
	}
	return f.texture
}

// IsDefault reports whether f is the on-screen surface.
func (f *Framebuffer) IsDefault() bool {
	return f == nil || f.texture == nil
}

// Width returns the target width, 0 for the default surface.
func (f *Framebuffer) Width() int {
	if f.IsDefault() {
		return 0
	}
	return f.texture.Width()
}

// Height returns the target height, 0 for the default surface.
func (f *Framebuffer) Height() int {
	if f.IsDefault() {
		return 0
	}
	return f.texture.Height()
}

// Retain adds a reference to the offscreen texture.
func (f *Framebuffer) Retain() {
	if !f.IsDefault() {
		f.texture.Retain()
	}
}

// Release drops a reference; the last one deletes the offscreen texture.
func (f *Framebuffer) Release() {
	if !f.IsDefault() {
		f.texture.Release()
	}
}

// DirtyRectangle returns the scissor rectangle in window coordinates
// (origin bottom-left).
func (f *Framebuffer) DirtyRectangle() image.Rectangle { return f.dirty }

// DirtyRectanglesEnabled reports whether drawing is scissored to the
// dirty rectangle.
func (f *Framebuffer) DirtyRectanglesEnabled() bool { return f.dirtyEnabled }

// StateDepth returns the number of saved states.
func (f *Framebuffer) StateDepth() int { return len(f.stack) }

func (f *Framebuffer) pushState(s frameState) {
	f.stack = append(f.stack, s)
}

func (f *Framebuffer) popState() (frameState, bool) {
	if len(f.stack) == 0 {
		return frameState{}, false
	}
	s := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return s, true
}

// currentState is the state a target starts with when it becomes current.
func (f *Framebuffer) currentState() frameState {
	if len(f.stack) == 0 {
		return defaultFrameState()
	}
	return f.stack[len(f.stack)-1]
}
