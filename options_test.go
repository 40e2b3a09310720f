package glscene

import (
	"math/rand/v2"
	"testing"

	"github.com/gogpu/glscene/backend/recording"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.memoryLimit != DefaultTextureMemoryLimit {
		t.Errorf("memoryLimit = %d, want %d", o.memoryLimit, DefaultTextureMemoryLimit)
	}
	if o.evictionAge != DefaultEvictionAge {
		t.Errorf("evictionAge = %d, want %d", o.evictionAge, DefaultEvictionAge)
	}
	if o.softwareWidth != DefaultSoftwareWidth || o.softwareHeight != DefaultSoftwareHeight {
		t.Errorf("software size = %dx%d", o.softwareWidth, o.softwareHeight)
	}
	if o.cacheSize != DefaultImageCacheSize {
		t.Errorf("cacheSize = %d, want %d", o.cacheSize, DefaultImageCacheSize)
	}
	if o.device != nil || o.deviceName != "" || o.randSource != nil {
		t.Error("defaults select a device or rand source")
	}
}

func TestContextOptions(t *testing.T) {
	dev := recording.New()
	src := rand.NewPCG(3, 4)

	tests := []struct {
		name  string
		opt   ContextOption
		check func(o contextOptions) bool
	}{
		{"device", WithDevice(dev), func(o contextOptions) bool { return o.device == dev }},
		{"device name", WithDeviceName("gles"), func(o contextOptions) bool { return o.deviceName == "gles" }},
		{"limit", WithTextureMemoryLimit(1234), func(o contextOptions) bool { return o.memoryLimit == 1234 }},
		{"padding", WithThresholdPadding(56), func(o contextOptions) bool { return o.padding == 56 }},
		{"eviction age", WithEvictionAge(9), func(o contextOptions) bool { return o.evictionAge == 9 }},
		{"workers", WithWorkers(3), func(o contextOptions) bool { return o.workers == 3 }},
		{"max texture size", WithMaxTextureSize(512), func(o contextOptions) bool { return o.maxTextureSize == 512 }},
		{"software size", WithSoftwareSurfaceSize(40, 30), func(o contextOptions) bool {
			return o.softwareWidth == 40 && o.softwareHeight == 30
		}},
		{"rand source", WithRandSource(src), func(o contextOptions) bool { return o.randSource == src }},
		{"cache size", WithImageCacheSize(8), func(o contextOptions) bool { return o.cacheSize == 8 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			tt.opt(&o)
			if !tt.check(o) {
				t.Errorf("option not applied: %+v", o)
			}
		})
	}
}

func TestOptionsReachContext(t *testing.T) {
	rc, _ := newTestContext(t,
		WithTextureMemoryLimit(4096),
		WithThresholdPadding(128),
		WithEvictionAge(7),
	)

	s := rc.Stats()
	if s.Limit != 4096 || s.Padding != 128 || s.EvictionAge != 7 {
		t.Errorf("Stats() = %+v", s)
	}
}
