// Package image decodes compressed image payloads into RGBA8 pixels and
// recycles the pixel storage those decodes allocate.
package image

import "sync"

// Pool is a thread-safe pool for reusing pixel byte slices.
//
// Pool groups slices by their exact length, allowing efficient reuse of
// identically-sized images. This reduces GC pressure when textures are
// decoded, uploaded and freed repeatedly.
//
// Thread safety: All methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[int][][]byte
	maxSize int // max slices per bucket
}

// NewPool creates a new pool with the given maximum slices per bucket.
// A maxPerBucket of 0 means unlimited (use with caution).
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[int][][]byte),
		maxSize: maxPerBucket,
	}
}

// Get retrieves a slice of length n from the pool or allocates a new one.
// A reused slice is cleared before it is returned.
func (p *Pool) Get(n int) []byte {
	if n <= 0 {
		return nil
	}

	p.mu.Lock()
	bucket := p.buckets[n]
	if len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		bucket[len(bucket)-1] = nil
		p.buckets[n] = bucket[:len(bucket)-1]
		p.mu.Unlock()

		clear(buf)
		return buf
	}
	p.mu.Unlock()

	return make([]byte, n)
}

// Put returns buf to the pool. The caller must not use buf afterwards.
// Empty slices and slices beyond bucket capacity are discarded.
func (p *Pool) Put(buf []byte) {
	if len(buf) == 0 {
		return
	}
	n := len(buf)

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[n]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[n] = append(bucket, buf[:n:n])
}

// Len returns the number of slices held for length n.
func (p *Pool) Len(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets[n])
}

// defaultPool backs decode output and is refilled by freed textures.
var defaultPool = NewPool(8)

// GetFromDefault retrieves a slice from the default pool.
func GetFromDefault(n int) []byte {
	return defaultPool.Get(n)
}

// PutToDefault returns a slice to the default pool.
func PutToDefault(buf []byte) {
	defaultPool.Put(buf)
}
