package glscene

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// evictable is a texture whose GPU data can be dropped and rebuilt later
// from what it keeps on the CPU side.
type evictable interface {
	Texture

	// releaseGPU deletes the GPU object, returns its footprint to the
	// budget and reports the bytes freed. It returns 0 when nothing was
	// uploaded. Called on the device goroutine only.
	releaseGPU() int64
}

// TextureRegistry observes every live evictable texture of a context. It
// holds no references: textures add themselves on construction and remove
// themselves when their last reference is released.
//
// Register and Unregister are safe from any goroutine. Evict must run on
// the device goroutine.
type TextureRegistry struct {
	mu      sync.Mutex
	entries []evictable
	index   map[evictable]int

	randMu sync.Mutex
	rng    *rand.Rand

	ejected      atomic.Int64
	ejectedBytes atomic.Int64
}

// NewTextureRegistry creates an empty registry. A nil src uses a randomly
// seeded source.
func NewTextureRegistry(src rand.Source) *TextureRegistry {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &TextureRegistry{
		index: make(map[evictable]int),
		rng:   rand.New(src),
	}
}

// Register adds t. Registering twice is a no-op.
func (r *TextureRegistry) Register(t evictable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[t]; ok {
		return
	}
	r.index[t] = len(r.entries)
	r.entries = append(r.entries, t)
}

// Unregister removes t if present.
func (r *TextureRegistry) Unregister(t evictable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[t]
	if !ok {
		return
	}
	last := len(r.entries) - 1
	if i != last {
		moved := r.entries[last]
		r.entries[i] = moved
		r.index[moved] = i
	}
	r.entries[last] = nil
	r.entries = r.entries[:last]
	delete(r.index, t)
}

// Len returns the number of registered textures.
func (r *TextureRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Contains reports whether t is registered.
func (r *TextureRegistry) Contains(t Texture) bool {
	e, ok := t.(evictable)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok = r.index[e]
	return ok
}

// Evict releases GPU data of textures in random order until at least
// needed bytes are freed, and returns the exact bytes freed.
//
// A texture whose age (tick minus its last render tick) is below maxAge is
// skipped. With maxAge 0 only textures rendered during tick itself are
// skipped. The result may be less than needed.
func (r *TextureRegistry) Evict(needed int64, maxAge, tick uint64) int64 {
	r.mu.Lock()
	snapshot := make([]evictable, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.Unlock()

	r.randMu.Lock()
	r.rng.Shuffle(len(snapshot), func(i, j int) {
		snapshot[i], snapshot[j] = snapshot[j], snapshot[i]
	})
	r.randMu.Unlock()

	minAge := max(maxAge, 1)
	var freed int64
	var count int
	for _, t := range snapshot {
		if freed >= needed {
			break
		}
		last := t.LastRenderTick()
		if last > tick || tick-last < minAge {
			continue
		}
		if n := t.releaseGPU(); n > 0 {
			freed += n
			count++
		}
	}

	if count > 0 {
		r.ejected.Add(int64(count))
		r.ejectedBytes.Add(freed)
		slogger().Warn("glscene: texture memory ejected",
			"textures", count, "bytes", freed, "needed", needed, "maxAge", maxAge)
	}
	return freed
}

// Ejected returns the total number of textures and bytes evicted so far.
func (r *TextureRegistry) Ejected() (textures, bytes int64) {
	return r.ejected.Load(), r.ejectedBytes.Load()
}
