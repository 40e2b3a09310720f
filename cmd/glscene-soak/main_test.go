package main

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/glscene/backend"
	"github.com/gogpu/glscene/backend/recording"
	imgpkg "github.com/gogpu/glscene/internal/image"
)

func TestGenerateImages(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	payloads, err := generateImages(rng, 6, 40)
	if err != nil {
		t.Fatalf("generateImages: %v", err)
	}
	if len(payloads) != 6 {
		t.Fatalf("len = %d, want 6", len(payloads))
	}
	for i, p := range payloads {
		cfg, err := imgpkg.DecodeConfig(p.data)
		if err != nil {
			t.Fatalf("%s: DecodeConfig: %v", p.key, err)
		}
		if cfg.Width < 16 || cfg.Width >= 40 || cfg.Height < 16 || cfg.Height >= 40 {
			t.Errorf("%s: size %dx%d outside [16, 40)", p.key, cfg.Width, cfg.Height)
		}
		if want := i%3 == 2; cfg.Compressed != want {
			t.Errorf("%s: Compressed = %v, want %v", p.key, cfg.Compressed, want)
		}
	}
}

func TestCoverage(t *testing.T) {
	c := coverage(8, 8)
	if c[0] != 0 {
		t.Error("corner is covered")
	}
	if c[4*8+4] != 255 {
		t.Error("center is not covered")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"INFO", false},
		{"warn", false},
		{"loud", true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			_, closer, err := newLogger(filepath.Join(t.TempDir(), "soak.slog"), tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newLogger(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if closer != nil {
				_ = closer.Close()
			}
		})
	}
}

func TestRunRecording(t *testing.T) {
	dir := t.TempDir()
	cfg := config{
		device:     backend.DeviceRecording,
		width:      128,
		height:     96,
		frames:     30,
		images:     8,
		maxSize:    32,
		perFrame:   6,
		limit:      1 << 20,
		age:        2,
		workers:    2,
		seed:       3,
		logFile:    filepath.Join(dir, "soak.slog"),
		logLevel:   "info",
		trace:      filepath.Join(dir, "trace.msgpack"),
		statsEvery: 10,
	}
	if err := run(cfg); err != nil {
		t.Fatalf("run: %v", err)
	}

	logs, err := os.ReadFile(cfg.logFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{"soak starting", "texture stats", "soak finished"} {
		if !strings.Contains(string(logs), want) {
			t.Errorf("log missing %q", want)
		}
	}

	data, err := os.ReadFile(cfg.trace)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	tr, err := recording.ReadTrace(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadTrace: %v", err)
	}
	if tr.Stats.Draws == 0 || tr.Stats.TexturesCreated == 0 {
		t.Errorf("trace stats = %+v, want draws and uploads", tr.Stats)
	}
	if len(tr.Calls) == 0 || tr.Calls[0].Op != "Init" {
		t.Error("trace does not start with Init")
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config
	}{
		{"no images", config{device: backend.DeviceRecording, width: 64, height: 64, maxSize: 32}},
		{"unknown device", config{device: "vulkan", width: 64, height: 64, images: 1, maxSize: 32, logLevel: "error"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.cfg); err == nil {
				t.Error("run succeeded, want error")
			}
		})
	}
}
