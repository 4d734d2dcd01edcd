package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// FileName is the active log file inside the log directory
	FileName = "synth-evolve.log"

	// MaxSize triggers rotation at startup
	MaxSize = 10 * 1024 * 1024
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds the process logger and installs it as the slog and log default
// Without debug all output is discarded since the terminal UI owns the screen
// With debug, JSON records go to dir/FileName; a file over MaxSize is moved to .old first
// Failure to open the file degrades to discard; the returned closer is never nil
func Setup(debug bool, dir string) (*slog.Logger, io.Closer) {
	if !debug {
		return install(io.Discard, slog.LevelInfo), nopCloser{}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return install(io.Discard, slog.LevelInfo), nopCloser{}
	}

	path := filepath.Join(dir, FileName)
	if info, err := os.Stat(path); err == nil && info.Size() > MaxSize {
		_ = os.Rename(path, path+".old")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return install(io.Discard, slog.LevelInfo), nopCloser{}
	}
	return install(f, slog.LevelDebug), f
}

// install sets the default logger; the log package is bridged into the same handler
func install(w io.Writer, level slog.Level) *slog.Logger {
	if w == io.Discard {
		logger := slog.New(slog.DiscardHandler)
		slog.SetDefault(logger)
		log.SetOutput(io.Discard)
		return logger
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
