package glscene

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/glscene/backend"
	"github.com/gogpu/glscene/backend/recording"
)

// ============================================================================
// Construction
// ============================================================================

func TestNewContextByName(t *testing.T) {
	rc, err := NewContext(64, 32, WithDeviceName(backend.DeviceRecording))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer rc.Close()

	if got := rc.Device().Name(); got != backend.DeviceRecording {
		t.Errorf("Device().Name() = %q, want %q", got, backend.DeviceRecording)
	}
	if w, h := rc.Size(); w != 64 || h != 32 {
		t.Errorf("Size() = %dx%d, want 64x32", w, h)
	}
	if rc.TextureMemoryLimit() != DefaultTextureMemoryLimit {
		t.Errorf("TextureMemoryLimit() = %d, want default", rc.TextureMemoryLimit())
	}
}

func TestNewContextUnknownDevice(t *testing.T) {
	_, err := NewContext(64, 32, WithDeviceName("no-such-device"))
	if !errors.Is(err, backend.ErrDeviceNotAvailable) {
		t.Errorf("NewContext = %v, want ErrDeviceNotAvailable", err)
	}
}

func TestNewContextLogs(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	rc, _ := newTestContext(t)
	if !strings.Contains(buf.String(), "context created") {
		t.Errorf("missing context log, got: %s", buf.String())
	}
	_ = rc.Close()
	if !strings.Contains(buf.String(), "context closed") {
		t.Errorf("missing close log, got: %s", buf.String())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	rc, dev := newTestContext(t)
	tex := rc.ImageCache().GetOrCreate("a", pngBytes(t, 4, 4, opaqueRed))
	_ = tex

	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if rc.NextFrame() != 0 {
		t.Error("NextFrame after Close ran tasks")
	}
	if rc.Registry().Len() != 0 {
		t.Errorf("Registry().Len() = %d after Close, want 0", rc.Registry().Len())
	}
	if dev.LiveTextures() != 0 {
		t.Errorf("LiveTextures() = %d after Close", dev.LiveTextures())
	}
	if _, err := rc.Snapshot(); !errors.Is(err, ErrContextClosed) {
		t.Errorf("Snapshot after Close = %v, want ErrContextClosed", err)
	}
	if err := rc.SetFramebuffer(nil); !errors.Is(err, ErrContextClosed) {
		t.Errorf("SetFramebuffer after Close = %v, want ErrContextClosed", err)
	}
}

func TestNextFrameAdvancesTick(t *testing.T) {
	rc, _ := newTestContext(t)
	for i := 1; i <= 3; i++ {
		rc.NextFrame()
		if got := rc.Tick(); got != uint64(i) {
			t.Fatalf("Tick() = %d, want %d", got, i)
		}
	}
}

func TestMemorySettings(t *testing.T) {
	rc, _ := newTestContext(t)
	rc.SetTextureMemoryLimit(4096)
	rc.SetThresholdPadding(128)
	rc.SetEvictionAge(9)

	s := rc.Stats()
	if s.Limit != 4096 || s.Padding != 128 || s.EvictionAge != 9 {
		t.Errorf("Stats() = %+v", s)
	}
	if !strings.Contains(s.String(), "registered") {
		t.Errorf("String() = %q", s.String())
	}
}

// ============================================================================
// Transform and alpha state
// ============================================================================

func TestAlphaPushPop(t *testing.T) {
	rc, _ := newTestContext(t)

	rc.SetAlpha(0.5)
	rc.PushState()
	rc.SetAlpha(0.5)
	if got := rc.Alpha(); got != 0.25 {
		t.Fatalf("Alpha() after compounding = %v, want 0.25", got)
	}
	rc.PopState()
	if got := rc.Alpha(); got != 0.5 {
		t.Errorf("Alpha() after PopState = %v, want 0.5", got)
	}
}

func TestPopStateEmptyIsNoop(t *testing.T) {
	rc, _ := newTestContext(t)
	rc.SetAlpha(0.5)
	rc.PopState()
	if got := rc.Alpha(); got != 0.5 {
		t.Errorf("Alpha() = %v, want 0.5", got)
	}
}

func TestSetMatrixPostMultiplies(t *testing.T) {
	rc, _ := newTestContext(t)
	rc.SetMatrix(Translate4(10, 0, 0))
	rc.SetMatrix(Scale4(2, 2, 1))

	x, y := rc.MapToScreen(1, 3)
	if x != 12 || y != 6 {
		t.Errorf("MapToScreen(1, 3) = %d, %d, want 12, 6", x, y)
	}

	rc.PushState()
	rc.SetMatrix(Translate4(5, 5, 0))
	rc.PopState()
	if x, y := rc.MapToScreen(1, 3); x != 12 || y != 6 {
		t.Errorf("after PopState MapToScreen(1, 3) = %d, %d, want 12, 6", x, y)
	}

	rc.ResetMatrix()
	if !rc.Matrix().IsIdentity() {
		t.Error("ResetMatrix did not restore identity")
	}
}

func TestMapToScreenWithDividesByW(t *testing.T) {
	m := Identity4()
	m[15] = 2
	if x, y := MapToScreenWith(m, 10, 20); x != 5 || y != 10 {
		t.Errorf("MapToScreenWith = %d, %d, want 5, 10", x, y)
	}
	m[15] = 0
	if x, y := MapToScreenWith(m, 10, 20); x != 10 || y != 20 {
		t.Errorf("MapToScreenWith with w=0 = %d, %d, want 10, 20", x, y)
	}
}

// ============================================================================
// Render targets
// ============================================================================

func TestFramebufferStateStacks(t *testing.T) {
	rc, dev := newTestContext(t)
	fb := rc.CreateFramebuffer(16, 8)

	rc.SetAlpha(0.5)
	rc.PushState()

	if err := rc.SetFramebuffer(fb); err != nil {
		t.Fatalf("SetFramebuffer: %v", err)
	}
	if rc.Alpha() != 1 || !rc.Matrix().IsIdentity() {
		t.Errorf("new target state = %v/%v, want 1/identity", rc.Alpha(), rc.Matrix().IsIdentity())
	}
	if w, h := rc.Resolution(); w != 16 || h != 8 {
		t.Errorf("Resolution() = %dx%d, want 16x8", w, h)
	}
	if w, h := dev.ViewportSize(); w != 16 || h != 8 {
		t.Errorf("viewport = %dx%d, want 16x8", w, h)
	}
	if rc.CurrentFramebuffer() != fb {
		t.Error("CurrentFramebuffer() is not fb")
	}

	rc.SetAlpha(0.25)
	rc.PushState()

	if err := rc.SetFramebuffer(nil); err != nil {
		t.Fatal(err)
	}
	if got := rc.Alpha(); got != 0.5 {
		t.Errorf("surface Alpha() = %v, want 0.5", got)
	}
	if dev.BoundFramebuffer() != backend.DefaultFramebuffer {
		t.Error("default framebuffer not bound")
	}
	if w, h := rc.Resolution(); w != 320 || h != 240 {
		t.Errorf("Resolution() = %dx%d, want 320x240", w, h)
	}

	if err := rc.SetFramebuffer(fb); err != nil {
		t.Fatal(err)
	}
	if got := rc.Alpha(); got != 0.25 {
		t.Errorf("framebuffer Alpha() = %v, want 0.25", got)
	}
	if fb.StateDepth() != 1 {
		t.Errorf("StateDepth() = %d, want 1", fb.StateDepth())
	}
}

func TestSetFramebufferIncomplete(t *testing.T) {
	dev := recording.New(recording.WithIncompleteFramebuffers())
	rc, err := NewContext(100, 50, WithDevice(dev))
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	fb := rc.CreateFramebuffer(8, 8)
	err = rc.SetFramebuffer(fb)
	if !errors.Is(err, ErrFramebufferIncomplete) {
		t.Fatalf("SetFramebuffer = %v, want ErrFramebufferIncomplete", err)
	}
	if !rc.CurrentFramebuffer().IsDefault() {
		t.Error("failed target left current")
	}
	if dev.BoundFramebuffer() != backend.DefaultFramebuffer {
		t.Error("failed target left bound")
	}
}

func TestSetFramebufferZeroSize(t *testing.T) {
	rc, _ := newTestContext(t)
	fb := rc.CreateFramebuffer(0, 0)
	if err := rc.SetFramebuffer(fb); !errors.Is(err, ErrFramebufferIncomplete) {
		t.Fatalf("SetFramebuffer = %v, want ErrFramebufferIncomplete", err)
	}
	if err := rc.UpdateFramebuffer(fb, 4, 4); err != nil {
		t.Fatal(err)
	}
	if err := rc.SetFramebuffer(fb); err != nil {
		t.Errorf("SetFramebuffer after resize: %v", err)
	}
	if err := rc.UpdateFramebuffer(nil, 4, 4); !errors.Is(err, ErrUnsupported) {
		t.Errorf("UpdateFramebuffer(nil) = %v, want ErrUnsupported", err)
	}
}

func TestSetSizeFollowsViewport(t *testing.T) {
	rc, dev := newTestContext(t)
	rc.SetSize(200, 100)
	if w, h := dev.ViewportSize(); w != 200 || h != 100 {
		t.Errorf("viewport = %dx%d, want 200x100", w, h)
	}

	fb := rc.CreateFramebuffer(4, 4)
	if err := rc.SetFramebuffer(fb); err != nil {
		t.Fatal(err)
	}
	rc.SetSize(300, 150)
	if w, h := rc.Resolution(); w != 4 || h != 4 {
		t.Errorf("Resolution() = %dx%d, want offscreen 4x4", w, h)
	}
}

// ============================================================================
// Clearing and scissor
// ============================================================================

func TestClearRectSetsDirtyRectangle(t *testing.T) {
	rc, dev := newTestContext(t)

	rc.ClearRect(10, 20, 110, 70)

	fb := rc.CurrentFramebuffer()
	want := image.Rect(10, 170, 110, 220)
	if fb.DirtyRectangle() != want {
		t.Errorf("DirtyRectangle() = %v, want %v", fb.DirtyRectangle(), want)
	}
	if !fb.DirtyRectanglesEnabled() {
		t.Error("dirty rectangles not enabled")
	}
	on, x, y, w, h := dev.ScissorState()
	if !on || x != 10 || y != 170 || w != 100 || h != 50 {
		t.Errorf("scissor = %v %d,%d %dx%d", on, x, y, w, h)
	}

	rc.ClearColor(Red)
	if fb.DirtyRectanglesEnabled() {
		t.Error("ClearColor left dirty rectangles enabled")
	}

	rc.EnableDirtyRectangles(true)
	if on, _, _, _, _ := dev.ScissorState(); !on {
		t.Error("EnableDirtyRectangles(true) left scissor off")
	}
	rc.EnableClipping(false)
	if on, _, _, _, _ := dev.ScissorState(); on {
		t.Error("EnableClipping(false) left scissor on")
	}
}

func TestSnapshotOffscreen(t *testing.T) {
	rc, _ := newTestContext(t)
	fb := rc.CreateFramebuffer(4, 3)
	if err := rc.SetFramebuffer(fb); err != nil {
		t.Fatal(err)
	}
	rc.ClearColor(Red)

	pb, err := rc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if pb.Width() != 4 || pb.Height() != 3 || !pb.UpsideDown() {
		t.Fatalf("Snapshot() = %dx%d upsideDown=%v", pb.Width(), pb.Height(), pb.UpsideDown())
	}
	if got := pb.At(3, 2); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("pixel = %v, want opaque red", got)
	}

	rc.Clear()
	pb, _ = rc.Snapshot()
	if got := pb.At(0, 0); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("Clear() used %v, want the last clear color", got)
	}
}
