package glscene

import (
	"fmt"
	"sync"
)

// Default budget settings.
const (
	// DefaultTextureMemoryLimit is the default GPU texture budget (64 MiB).
	DefaultTextureMemoryLimit int64 = 64 * 1024 * 1024

	// DefaultEvictionAge is the render-tick age below which a texture is
	// protected from normal eviction.
	DefaultEvictionAge uint64 = 5
)

// MemoryBudget accounts the GPU bytes held by textures against a limit.
//
// Every upload pairs one Adjust(+n) with exactly one Adjust(-n) when the
// texture is released. Usage never drops below zero.
//
// MemoryBudget is safe for concurrent use.
type MemoryBudget struct {
	mu       sync.Mutex
	limit    int64
	padding  int64
	current  int64
	ejectAge uint64
}

// NewMemoryBudget creates a budget with the given limit and eviction age.
func NewMemoryBudget(limit int64, ejectAge uint64) *MemoryBudget {
	return &MemoryBudget{limit: limit, ejectAge: ejectAge}
}

// Adjust adds delta to current usage, clamping at zero.
func (b *MemoryBudget) Adjust(delta int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current += delta
	if b.current < 0 {
		b.current = 0
	}
}

// SpaceAvailable reports whether size more bytes fit within limit+padding.
func (b *MemoryBudget) SpaceAvailable(size int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return size+b.current <= b.limit+b.padding
}

// Overflow returns how many bytes must be freed before size fits the
// limit, or zero if it already does.
func (b *MemoryBudget) Overflow(size int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if over := size - (b.limit - b.current); over > 0 {
		return over
	}
	return 0
}

// Current returns the bytes in use.
func (b *MemoryBudget) Current() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Limit returns the byte limit.
func (b *MemoryBudget) Limit() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit
}

// SetLimit changes the byte limit. Textures already uploaded are not
// evicted until the next bind needs space.
func (b *MemoryBudget) SetLimit(limit int64) {
	b.mu.Lock()
	b.limit = limit
	b.mu.Unlock()
}

// Padding returns the slack allowed above the limit.
func (b *MemoryBudget) Padding() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.padding
}

// SetPadding sets the slack allowed above the limit.
func (b *MemoryBudget) SetPadding(padding int64) {
	b.mu.Lock()
	b.padding = padding
	b.mu.Unlock()
}

// EjectAge returns the eviction age threshold in render ticks.
func (b *MemoryBudget) EjectAge() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ejectAge
}

// SetEjectAge sets the eviction age threshold in render ticks.
func (b *MemoryBudget) SetEjectAge(age uint64) {
	b.mu.Lock()
	b.ejectAge = age
	b.mu.Unlock()
}

// String returns a human-readable summary.
func (b *MemoryBudget) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("Budget[%d/%d bytes, padding %d, eject age %d]",
		b.current, b.limit, b.padding, b.ejectAge)
}
