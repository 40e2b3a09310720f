package glscene

import (
	"math/rand/v2"
	"sync"
	"testing"
)

// fakeTexture is an evictable with a fixed footprint and render tick.
type fakeTexture struct {
	NoneTexture
	name     string
	tick     uint64
	size     int64
	resident bool
	released int
}

func (f *fakeTexture) LastRenderTick() uint64 { return f.tick }

func (f *fakeTexture) releaseGPU() int64 {
	if !f.resident {
		return 0
	}
	f.resident = false
	f.released++
	return f.size
}

func newFake(name string, tick uint64, size int64) *fakeTexture {
	return &fakeTexture{name: name, tick: tick, size: size, resident: true}
}

// ============================================================================
// Membership
// ============================================================================

func TestRegistryRegisterUnregister(t *testing.T) {
	r := NewTextureRegistry(rand.NewPCG(1, 1))
	a, b, c := newFake("a", 0, 1), newFake("b", 0, 1), newFake("c", 0, 1)

	r.Register(a)
	r.Register(b)
	r.Register(c)
	r.Register(b)
	if got := r.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	r.Unregister(a)
	r.Unregister(a)
	if got := r.Len(); got != 2 {
		t.Fatalf("Len() after Unregister = %d, want 2", got)
	}
	if r.Contains(a) {
		t.Error("Contains(a) = true after Unregister")
	}
	if !r.Contains(b) || !r.Contains(c) {
		t.Error("remaining textures missing after swap-remove")
	}
	if r.Contains(NoneTexture{}) {
		t.Error("Contains(NoneTexture) = true")
	}
}

func TestRegistryConcurrentRegisterDuringEvict(t *testing.T) {
	const (
		goroutines = 4
		perG       = 200
	)
	r := NewTextureRegistry(rand.NewPCG(5, 6))
	all := make([][]*fakeTexture, goroutines)

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mine := make([]*fakeTexture, 0, perG)
			for i := range perG {
				f := newFake("f", 0, 1)
				mine = append(mine, f)
				r.Register(f)
				if i%2 == 1 {
					r.Unregister(mine[i-1])
				}
			}
			all[g] = mine
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Evict plays the device goroutine while the others churn.
	var freed int64
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		freed += r.Evict(1<<20, 1, 10)
	}

	if got, want := r.Len(), goroutines*perG/2; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	var released int64
	for _, mine := range all {
		for i, f := range mine {
			if want := i%2 == 1; r.Contains(f) != want {
				t.Errorf("Contains(texture %d) = %v, want %v", i, !want, want)
			}
			if f.released > 1 {
				t.Errorf("texture %d released %d times", i, f.released)
			}
			released += int64(f.released) * f.size
		}
	}
	if released != freed {
		t.Errorf("Evict reported %d bytes, textures released %d", freed, released)
	}
}

// ============================================================================
// Eviction
// ============================================================================

func TestRegistryEvictSkipsYoungTextures(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		r := NewTextureRegistry(rand.NewPCG(seed, seed))
		old1 := newFake("old1", 0, 100)
		old2 := newFake("old2", 2, 200)
		young := newFake("young", 8, 400)
		current := newFake("current", 10, 800)
		for _, f := range []*fakeTexture{old1, old2, young, current} {
			r.Register(f)
		}

		freed := r.Evict(1<<30, 5, 10)

		if young.released != 0 || current.released != 0 {
			t.Fatalf("seed %d: evicted a texture younger than maxAge", seed)
		}
		if old1.released != 1 || old2.released != 1 {
			t.Fatalf("seed %d: old textures not evicted", seed)
		}
		if freed != 300 {
			t.Fatalf("seed %d: freed = %d, want 300", seed, freed)
		}
	}
}

func TestRegistryEvictStopsWhenSatisfied(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		r := NewTextureRegistry(rand.NewPCG(seed, 7))
		fakes := []*fakeTexture{
			newFake("a", 0, 100), newFake("b", 0, 100),
			newFake("c", 0, 100), newFake("d", 0, 100),
		}
		for _, f := range fakes {
			r.Register(f)
		}

		freed := r.Evict(150, 1, 10)

		var sum int64
		var count int
		for _, f := range fakes {
			if f.released > 0 {
				sum += f.size
				count++
			}
		}
		if freed != sum {
			t.Fatalf("seed %d: freed = %d, sum of released footprints = %d", seed, freed, sum)
		}
		if count != 2 {
			t.Fatalf("seed %d: released %d textures, want 2", seed, count)
		}
	}
}

func TestRegistryEvictForced(t *testing.T) {
	r := NewTextureRegistry(rand.NewPCG(3, 3))
	prev := newFake("prev", 9, 100)
	now := newFake("now", 10, 100)
	r.Register(prev)
	r.Register(now)

	freed := r.Evict(1000, 0, 10)

	if freed != 100 {
		t.Errorf("forced freed = %d, want 100", freed)
	}
	if now.released != 0 {
		t.Error("forced eviction released a texture rendered this tick")
	}
	if prev.released != 1 {
		t.Error("forced eviction kept a texture from the previous tick")
	}
}

func TestRegistryEvictNothingResident(t *testing.T) {
	r := NewTextureRegistry(nil)
	f := newFake("f", 0, 100)
	f.resident = false
	r.Register(f)

	if got := r.Evict(100, 1, 50); got != 0 {
		t.Errorf("Evict() = %d, want 0", got)
	}
	if n, b := r.Ejected(); n != 0 || b != 0 {
		t.Errorf("Ejected() = %d, %d, want 0, 0", n, b)
	}
}

func TestRegistryEjectedTotals(t *testing.T) {
	r := NewTextureRegistry(rand.NewPCG(5, 5))
	r.Register(newFake("a", 0, 10))
	r.Register(newFake("b", 0, 20))

	r.Evict(1000, 1, 5)

	n, b := r.Ejected()
	if n != 2 || b != 30 {
		t.Errorf("Ejected() = %d, %d, want 2, 30", n, b)
	}
}
