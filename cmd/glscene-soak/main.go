// Command glscene-soak streams generated images through the glscene
// texture pipeline under a small memory budget and reports how the
// budget, eviction and background decoding behave over many frames.
//
// By default it runs headless on the recording device:
//
//	glscene-soak -frames 2000 -images 200 -limit 4194304 -log soak.slog
//
// With -device gles it opens a hidden GLFW window and renders through
// OpenGL ES 2.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"github.com/gogpu/glscene"
	"github.com/gogpu/glscene/backend"
	_ "github.com/gogpu/glscene/backend/gles"
	"github.com/gogpu/glscene/backend/recording"
)

func init() {
	// GL calls must come from the thread that owns the context.
	runtime.LockOSThread()
}

type config struct {
	device     string
	width      int
	height     int
	frames     int
	images     int
	maxSize    int
	perFrame   int
	limit      int64
	padding    int64
	age        uint64
	workers    int
	seed       uint64
	logFile    string
	logLevel   string
	trace      string
	statsEvery int
	visible    bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.device, "device", backend.DeviceRecording, "device to render with (recording, gles)")
	flag.IntVar(&cfg.width, "width", 1280, "surface width")
	flag.IntVar(&cfg.height, "height", 720, "surface height")
	flag.IntVar(&cfg.frames, "frames", 1000, "number of frames to run")
	flag.IntVar(&cfg.images, "images", 128, "number of distinct images")
	flag.IntVar(&cfg.maxSize, "max-size", 256, "largest generated image edge")
	flag.IntVar(&cfg.perFrame, "per-frame", 24, "images drawn per frame")
	flag.Int64Var(&cfg.limit, "limit", 8<<20, "texture memory limit in bytes")
	flag.Int64Var(&cfg.padding, "padding", 0, "threshold padding in bytes")
	flag.Uint64Var(&cfg.age, "age", glscene.DefaultEvictionAge, "ticks before a texture may be evicted")
	flag.IntVar(&cfg.workers, "workers", 0, "decode workers (0 = GOMAXPROCS)")
	flag.Uint64Var(&cfg.seed, "seed", 1, "random seed")
	flag.StringVar(&cfg.logFile, "log", "", "rotating log file (default stderr)")
	flag.StringVar(&cfg.logLevel, "level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&cfg.trace, "trace", "", "write a msgpack call trace (recording device only)")
	flag.IntVar(&cfg.statsEvery, "stats-every", 100, "log texture stats every n frames")
	flag.BoolVar(&cfg.visible, "visible", false, "show the window (gles only)")
	flag.Parse()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "glscene-soak: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	if cfg.images < 1 || cfg.maxSize < 16 || cfg.width < 4 || cfg.height < 4 {
		return fmt.Errorf("need at least one image of 16px on a 4x4 surface")
	}
	lg, closer, err := newLogger(cfg.logFile, cfg.logLevel)
	if err != nil {
		return err
	}
	defer closer.Close()
	glscene.SetLogger(lg)
	defer glscene.SetLogger(nil)

	opts := []glscene.ContextOption{
		glscene.WithTextureMemoryLimit(cfg.limit),
		glscene.WithThresholdPadding(cfg.padding),
		glscene.WithEvictionAge(cfg.age),
		glscene.WithWorkers(cfg.workers),
		glscene.WithSoftwareSurfaceSize(cfg.width/4, cfg.height/4),
		glscene.WithRandSource(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15)),
	}

	var rec *recording.Device
	var win *window
	switch cfg.device {
	case backend.DeviceRecording:
		var ropts []recording.Option
		ropts = append(ropts, recording.WithSurfaceSize(cfg.width, cfg.height))
		if cfg.trace != "" {
			ropts = append(ropts, recording.WithTrace())
		}
		rec = recording.New(ropts...)
		opts = append(opts, glscene.WithDevice(rec))
	case backend.DeviceGLES:
		win, err = openWindow(cfg.width, cfg.height, cfg.visible)
		if err != nil {
			return err
		}
		defer win.close()
		opts = append(opts, glscene.WithDeviceName(backend.DeviceGLES))
	default:
		return fmt.Errorf("unknown device %q", cfg.device)
	}

	rc, err := glscene.NewContext(cfg.width, cfg.height, opts...)
	if err != nil {
		return err
	}
	defer rc.Close()

	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed+1))
	payloads, err := generateImages(rng, cfg.images, cfg.maxSize)
	if err != nil {
		return err
	}

	s := newSoak(rc, rng, payloads, cfg)
	defer s.release()
	if err := s.prefetch(); err != nil {
		lg.Warn("prefetch incomplete", slog.Any("error", err))
	}

	start := time.Now()
	for frame := range cfg.frames {
		s.frame()
		if win != nil && !win.frame() {
			break
		}
		if cfg.statsEvery > 0 && (frame+1)%cfg.statsEvery == 0 {
			lg.Info("texture stats", slog.Int("frame", frame+1), slog.String("stats", rc.Stats().String()))
		}
	}
	elapsed := time.Since(start)

	st := rc.Stats()
	lg.Info("soak finished",
		slog.Int("frames", cfg.frames),
		slog.Duration("elapsed", elapsed),
		slog.Int64("uploads", st.Uploads),
		slog.Int64("evictions", st.Evictions),
		slog.Int64("evictedBytes", st.EvictedBytes),
		slog.Int64("used", st.Used),
		slog.Int("placeholders", s.placeholders))
	fmt.Println(st)
	if st.Used > st.Limit+st.Padding {
		return fmt.Errorf("texture memory %d exceeds limit %d", st.Used, st.Limit+st.Padding)
	}

	if rec != nil {
		fmt.Println(rec.Stats())
		if cfg.trace != "" {
			return writeTrace(rec, cfg.trace)
		}
	}
	return nil
}

func writeTrace(rec *recording.Device, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rec.WriteTrace(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// soak owns the scene objects drawn every frame.
type soak struct {
	rc       *glscene.RenderContext
	rng      *rand.Rand
	payloads []payload
	cfg      config

	mask    *glscene.AlphaTexture
	overlay *glscene.Framebuffer
	scratch *glscene.PixelBuffer

	placeholders int
}

func newSoak(rc *glscene.RenderContext, rng *rand.Rand, payloads []payload, cfg config) *soak {
	const maskSize = 64
	s := &soak{
		rc:       rc,
		rng:      rng,
		payloads: payloads,
		cfg:      cfg,
		mask:     rc.NewAlphaTexture(maskSize, maskSize, coverage(maskSize, maskSize)),
		overlay:  rc.CreateFramebuffer(cfg.width/2, cfg.height/2),
		scratch:  glscene.NewPixelBuffer(cfg.width/4, cfg.height/4),
	}
	rc.SetShowOutlines(true)
	return s
}

// prefetch queues the first half of the images for decode.
func (s *soak) prefetch() error {
	items := make(map[string][]byte, len(s.payloads)/2)
	for _, p := range s.payloads[:len(s.payloads)/2] {
		items[p.key] = p.data
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.rc.ImageCache().Prefetch(ctx, items)
}

func (s *soak) frame() {
	rc := s.rc
	cache := rc.ImageCache()
	w, h := float32(s.cfg.width), float32(s.cfg.height)

	rc.ClearColor(glscene.RGB(0.1, 0.1, 0.12))

	// Render a few images into the overlay target first.
	if err := rc.SetFramebuffer(s.overlay); err == nil {
		rc.Clear()
		for range 3 {
			p := s.payloads[s.rng.IntN(len(s.payloads))]
			tex := cache.GetOrCreate(p.key, p.data)
			drawNatural(rc, 0, 0, tex, nil)
		}
	}
	_ = rc.SetFramebuffer(nil)

	for i := range s.cfg.perFrame {
		p := s.payloads[s.rng.IntN(len(s.payloads))]
		tex := cache.GetOrCreate(p.key, p.data)
		if tex.State() != glscene.StateUploaded && tex.State() != glscene.StatePixelBufferFreed {
			s.placeholders++
		}

		rc.PushState()
		rc.SetMatrix(glscene.Translate4(s.rng.Float32()*w, s.rng.Float32()*h, 0))
		rc.SetAlpha(0.5 + s.rng.Float32()/2)
		switch i % 4 {
		case 0:
			drawNatural(rc, 0, 0, tex, &glscene.DrawImageOptions{DownscaleSmooth: true})
		case 1:
			rc.DrawImage(0, 0, 200, 120, tex, nil, &glscene.DrawImageOptions{
				StretchX: glscene.StretchRepeat,
				StretchY: glscene.StretchRepeat,
			})
		case 2:
			rc.DrawImage9(180, 90, 8, 8, 8, 8, tex)
		default:
			rc.DrawImage(0, 0, 64, 64, tex, s.mask, nil)
		}
		rc.DrawDiagRect(0, 0, float32(tex.Width()), float32(tex.Height()), nil)
		rc.PopState()
	}

	// Composite the overlay and a software-drawn strip.
	rc.PushState()
	rc.SetAlpha(0.8)
	drawNatural(rc, w/2, 0, s.overlay.Texture(), nil)
	rc.PopState()

	s.scratch.Fill(randomColor(s.rng))
	rc.DrawOffscreen(0, 0, 0, 0, s.scratch.Width(), 8, s.scratch)

	rc.DrawRect(w/4, h/4, 3, nil, &glscene.Red)
	rc.NextFrame()
}

// drawNatural draws tex at its own size.
func drawNatural(rc *glscene.RenderContext, x, y float32, tex glscene.Texture, opts *glscene.DrawImageOptions) {
	rc.DrawImage(x, y, float32(tex.Width()), float32(tex.Height()), tex, nil, opts)
}

func (s *soak) release() {
	s.mask.Release()
	s.overlay.Release()
}

func randomColor(rng *rand.Rand) color.NRGBA {
	return color.NRGBA{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256)), A: 255}
}
