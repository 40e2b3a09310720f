package glscene

import "fmt"

// TextureStats is a snapshot of texture memory accounting.
type TextureStats struct {
	Limit          int64
	Used           int64
	Padding        int64
	EvictionAge    uint64
	Registered     int
	Uploads        int64
	Evictions      int64
	EvictedBytes   int64
	PendingDecodes int64
	Tick           uint64
}

// String returns a human-readable summary.
func (s TextureStats) String() string {
	return fmt.Sprintf("Textures[%.2f/%.2f MiB, %d registered, %d uploads, %d evicted (%.2f MiB), %d decoding, tick %d]",
		float64(s.Used)/(1024*1024), float64(s.Limit)/(1024*1024),
		s.Registered, s.Uploads, s.Evictions, float64(s.EvictedBytes)/(1024*1024),
		s.PendingDecodes, s.Tick)
}

// Stats returns the current texture memory statistics.
func (c *RenderContext) Stats() TextureStats {
	env := c.env
	evictions, evicted := env.registry.Ejected()
	return TextureStats{
		Limit:          env.budget.Limit(),
		Used:           env.budget.Current(),
		Padding:        env.budget.Padding(),
		EvictionAge:    env.budget.EjectAge(),
		Registered:     env.registry.Len(),
		Uploads:        env.uploads.Load(),
		Evictions:      evictions,
		EvictedBytes:   evicted,
		PendingDecodes: env.pendingDecodes.Load(),
		Tick:           env.currentTick(),
	}
}
