package glscene

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/gogpu/glscene/backend/recording"
	imgpkg "github.com/gogpu/glscene/internal/image"
)

// newTestContext returns a context on a fresh recording device with a
// fixed eviction order. Extra options override the defaults.
func newTestContext(t *testing.T, opts ...ContextOption) (*RenderContext, *recording.Device) {
	t.Helper()
	dev := recording.New(recording.WithSurfaceSize(320, 240))
	all := append([]ContextOption{
		WithDevice(dev),
		WithRandSource(rand.NewPCG(1, 2)),
		WithWorkers(2),
	}, opts...)
	rc, err := NewContext(320, 240, all...)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, dev
}

// solidBuffer returns a w x h buffer filled with c.
func solidBuffer(w, h int, c color.NRGBA) *PixelBuffer {
	pb := NewPixelBuffer(w, h)
	pb.Fill(c)
	return pb
}

// pngBytes encodes a w x h image filled with c.
func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	data, err := imgpkg.EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	return data
}

// pump advances frames until done reports true.
func pump(t *testing.T, rc *RenderContext, done func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !done() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for background work")
		default:
		}
		rc.NextFrame()
		time.Sleep(time.Millisecond)
	}
}

// idle pumps until no lane has work left on rt.
func idle(t *testing.T, rc *RenderContext, rt *RasterTexture) {
	t.Helper()
	pump(t, rc, func() bool { return rt.lane.Pending() == 0 })
}

func newSeed(s uint64) rand.Source {
	return rand.NewPCG(s, s+1)
}
