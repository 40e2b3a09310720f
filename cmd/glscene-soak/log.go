package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger returns a JSON logger writing to a rotating file, or to stderr
// when path is empty. The returned closer flushes the file.
func newLogger(path, level string) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q", level)
	}

	var w io.WriteCloser = nopCloser{os.Stderr}
	if path != "" {
		w = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    32, // MB
			MaxBackups: 2,
		}
	}

	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	l.Info("soak starting",
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))
	return l, w, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
