package glscene

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/glscene/backend"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// Devices owned by open contexts; SetLogger forwards to them.
var (
	devicesMu sync.Mutex
	devices   = make(map[backend.Device]int)
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for glscene and the devices of open
// contexts. By default, glscene produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used by glscene:
//   - [slog.LevelDebug]: texture lifecycle (decode requested, upload, background free)
//   - [slog.LevelInfo]: context and device setup
//   - [slog.LevelWarn]: eviction summaries, incomplete framebuffers, dimensionless input
//   - [slog.LevelError]: binds that fail with ErrOutOfMemory
//
// Example:
//
//	glscene.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	devicesMu.Lock()
	defer devicesMu.Unlock()
	for d := range devices {
		propagateLogger(d, l)
	}
}

// Logger returns the current logger used by glscene.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(d backend.Device, l *slog.Logger) {
	if ls, ok := d.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// trackDevice hands the current logger to d and keeps forwarding later ones
// until untrackDevice.
func trackDevice(d backend.Device) {
	devicesMu.Lock()
	defer devicesMu.Unlock()
	devices[d]++
	propagateLogger(d, loggerPtr.Load())
}

func untrackDevice(d backend.Device) {
	devicesMu.Lock()
	defer devicesMu.Unlock()
	if devices[d] <= 1 {
		delete(devices, d)
		return
	}
	devices[d]--
}
