package glscene

import "errors"

// Texture and context errors. Callers test with errors.Is; returned errors
// usually wrap one of these with detail.
var (
	// ErrNotInitialized is returned while a texture's pixels are not ready
	// (decode pending or failed). Skip the draw and retry next frame.
	ErrNotInitialized = errors.New("glscene: texture not initialized")

	// ErrOutOfMemory is returned when an upload does not fit the texture
	// budget even after eviction.
	ErrOutOfMemory = errors.New("glscene: texture memory exhausted")

	// ErrUnsupported is returned when an operation is invalid for the
	// texture variant.
	ErrUnsupported = errors.New("glscene: operation not supported")

	// ErrDimensionlessInput is returned for zero-sized sources.
	ErrDimensionlessInput = errors.New("glscene: dimensionless input")

	// ErrFramebufferIncomplete is returned when a framebuffer fails its
	// completeness check.
	ErrFramebufferIncomplete = errors.New("glscene: framebuffer incomplete")

	// ErrContextClosed is returned by operations on a closed RenderContext.
	ErrContextClosed = errors.New("glscene: context closed")
)
