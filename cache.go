package glscene

import (
	"context"
	"errors"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	imgpkg "github.com/gogpu/glscene/internal/image"
)

// ImageCache maps resource keys to shared raster textures so a resource
// used by many scene objects is decoded and uploaded once.
//
// The cache holds one reference per entry. Dropping an entry (eviction,
// Remove or Purge) releases that reference only; callers that retained
// the texture keep it alive.
//
// ImageCache must be used on the device goroutine.
type ImageCache struct {
	rc      *RenderContext
	entries *lru.Cache[string, *RasterTexture]
}

func newImageCache(rc *RenderContext, size int) *ImageCache {
	if size <= 0 {
		size = DefaultImageCacheSize
	}
	entries, err := lru.NewWithEvict(size, func(_ string, t *RasterTexture) {
		t.Release()
	})
	if err != nil {
		// Only a non-positive size fails, which is excluded above.
		panic(fmt.Sprintf("glscene: image cache: %v", err))
	}
	return &ImageCache{rc: rc, entries: entries}
}

// Get returns the texture cached under key.
func (c *ImageCache) Get(key string) (*RasterTexture, bool) {
	return c.entries.Get(key)
}

// GetOrCreate returns the texture cached under key, creating it from the
// compressed image data when missing. The texture decodes on first bind.
func (c *ImageCache) GetOrCreate(key string, data []byte) *RasterTexture {
	if t, ok := c.entries.Get(key); ok {
		return t
	}
	t := c.rc.NewRasterTextureFromData(data)
	c.entries.Add(key, t)
	return t
}

// Add caches t under key, retaining it. An existing entry for key is
// released first.
func (c *ImageCache) Add(key string, t *RasterTexture) {
	t.Retain()
	c.entries.Remove(key)
	c.entries.Add(key, t)
}

// Remove drops key and releases the cache's reference.
func (c *ImageCache) Remove(key string) bool {
	return c.entries.Remove(key)
}

// Contains reports whether key is cached, without updating recency.
func (c *ImageCache) Contains(key string) bool {
	return c.entries.Contains(key)
}

// Len returns the number of cached textures.
func (c *ImageCache) Len() int {
	return c.entries.Len()
}

// Keys returns the cached keys from least to most recently used.
func (c *ImageCache) Keys() []string {
	return c.entries.Keys()
}

// Purge drops every entry.
func (c *ImageCache) Purge() {
	c.entries.Purge()
}

// Prefetch creates textures for the keys in items that are not cached yet
// and queues their decode.
//
// Image headers are read concurrently on the worker pool; textures are
// created on the calling goroutine. Items whose header cannot be read are
// skipped and reported in the returned error. If ctx is cancelled nothing
// is created.
func (c *ImageCache) Prefetch(ctx context.Context, items map[string][]byte) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		if !c.entries.Contains(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ctx.Err()
	}
	sort.Strings(keys)

	configs := make([]imgpkg.Config, len(keys))
	failures := make([]error, len(keys))
	err := c.rc.env.pool.ForEach(ctx, len(keys), func(_ context.Context, i int) error {
		cfg, err := imgpkg.DecodeConfig(items[keys[i]])
		if err != nil {
			failures[i] = fmt.Errorf("prefetch %q: %w", keys[i], err)
			return nil
		}
		configs[i] = cfg
		return nil
	})
	if err != nil {
		return err
	}

	var created int
	for i, key := range keys {
		if failures[i] != nil {
			continue
		}
		data := append([]byte(nil), items[key]...)
		t := newRasterTextureProbed(c.rc.env, data, configs[i])
		c.entries.Add(key, t)
		t.RequestLoad()
		created++
	}
	slogger().Debug("glscene: prefetch", "requested", len(items), "created", created)
	return errors.Join(failures...)
}
