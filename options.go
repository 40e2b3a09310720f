package glscene

import (
	"math/rand/v2"

	"github.com/gogpu/glscene/backend"
)

// DefaultImageCacheSize is the number of entries kept by the image cache.
const DefaultImageCacheSize = 256

// ContextOption configures a RenderContext during creation.
// Use functional options to customize RenderContext behavior.
//
// Example:
//
//	// Best registered device, default budget
//	rc, err := glscene.NewContext(1280, 720)
//
//	// Headless device with a small budget (dependency injection)
//	rc, err := glscene.NewContext(1280, 720,
//	    glscene.WithDevice(recording.New()),
//	    glscene.WithTextureMemoryLimit(16<<20))
type ContextOption func(*contextOptions)

// contextOptions holds optional configuration for RenderContext creation.
type contextOptions struct {
	device     backend.Device
	deviceName string

	memoryLimit    int64
	padding        int64
	evictionAge    uint64
	workers        int
	maxTextureSize int

	softwareWidth  int
	softwareHeight int

	randSource rand.Source
	cacheSize  int
}

// defaultOptions returns the default context options.
func defaultOptions() contextOptions {
	return contextOptions{
		memoryLimit:    DefaultTextureMemoryLimit,
		evictionAge:    DefaultEvictionAge,
		softwareWidth:  DefaultSoftwareWidth,
		softwareHeight: DefaultSoftwareHeight,
		cacheSize:      DefaultImageCacheSize,
	}
}

// WithDevice sets the rendering device. The context calls Init on it and
// takes ownership; Close closes it.
func WithDevice(d backend.Device) ContextOption {
	return func(o *contextOptions) {
		o.device = d
	}
}

// WithDeviceName selects a registered device by name (see backend.Available).
// Ignored when WithDevice is also given.
func WithDeviceName(name string) ContextOption {
	return func(o *contextOptions) {
		o.deviceName = name
	}
}

// WithTextureMemoryLimit sets the GPU texture budget in bytes.
func WithTextureMemoryLimit(bytes int64) ContextOption {
	return func(o *contextOptions) {
		o.memoryLimit = bytes
	}
}

// WithThresholdPadding lets usage exceed the limit by up to bytes before
// eviction starts.
func WithThresholdPadding(bytes int64) ContextOption {
	return func(o *contextOptions) {
		o.padding = bytes
	}
}

// WithEvictionAge sets the number of render ticks a texture must go
// unused before normal eviction may release it.
func WithEvictionAge(ticks uint64) ContextOption {
	return func(o *contextOptions) {
		o.evictionAge = ticks
	}
}

// WithWorkers sets the number of decode workers. Zero or less uses GOMAXPROCS.
func WithWorkers(n int) ContextOption {
	return func(o *contextOptions) {
		o.workers = n
	}
}

// WithMaxTextureSize caps the uploaded edge length. Larger images are
// halved until they fit. Zero leaves only the device limit.
func WithMaxTextureSize(size int) ContextOption {
	return func(o *contextOptions) {
		o.maxTextureSize = size
	}
}

// WithSoftwareSurfaceSize sets the size of the backing used by DrawOffscreen.
func WithSoftwareSurfaceSize(width, height int) ContextOption {
	return func(o *contextOptions) {
		o.softwareWidth = width
		o.softwareHeight = height
	}
}

// WithRandSource sets the source that orders eviction scans.
// Tests pass a seeded source for a repeatable order.
func WithRandSource(src rand.Source) ContextOption {
	return func(o *contextOptions) {
		o.randSource = src
	}
}

// WithImageCacheSize sets the number of entries kept by ImageCache.
func WithImageCacheSize(n int) ContextOption {
	return func(o *contextOptions) {
		o.cacheSize = n
	}
}
