package glscene

import (
	"image/color"
	"strings"
	"testing"
)

func TestStatsCountsUploads(t *testing.T) {
	rc, _ := newTestContext(t, WithTextureMemoryLimit(1<<20))

	rt := rc.NewRasterTexture(solidBuffer(16, 16, color.NRGBA{R: 255, A: 255}))
	defer rt.Release()
	if err := rt.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	rc.NextFrame()

	s := rc.Stats()
	if s.Uploads != 1 {
		t.Errorf("Uploads = %d, want 1", s.Uploads)
	}
	if s.Used != 16*16*4 {
		t.Errorf("Used = %d, want %d", s.Used, 16*16*4)
	}
	if s.Limit != 1<<20 {
		t.Errorf("Limit = %d, want %d", s.Limit, 1<<20)
	}
	if s.Registered < 1 {
		t.Errorf("Registered = %d, want at least 1", s.Registered)
	}
	if s.Tick != 1 {
		t.Errorf("Tick = %d, want 1", s.Tick)
	}
	if s.PendingDecodes != 0 {
		t.Errorf("PendingDecodes = %d, want 0", s.PendingDecodes)
	}
}

func TestTextureStatsString(t *testing.T) {
	s := TextureStats{Limit: 2 << 20, Used: 1 << 20, Registered: 3, Uploads: 4, Evictions: 1, EvictedBytes: 1 << 19, Tick: 9}
	got := s.String()
	for _, want := range []string{"1.00/2.00 MiB", "3 registered", "4 uploads", "1 evicted (0.50 MiB)", "tick 9"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
