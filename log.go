package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

func getLogFilePath() (string, error) {
	if environ.LogFile != "" {
		return environ.LogFile, nil
	}
	dir, err := gap.NewScope(gap.User, "audiogen").CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "audiogen.log"), nil
}

// setupLog sends progress logs to stderr. With AUDIOGEN_DEBUG set, debug
// output goes to the log file instead.
func setupLog() (func() error, error) {
	if !environ.Debug {
		log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
			Level:           log.InfoLevel,
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		}))
		return func() error { return nil }, nil
	}

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	log.SetDefault(log.NewWithOptions(io.MultiWriter(f, os.Stderr), log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}))
	return f.Close, nil
}

// defaultCacheDir is used when caching is enabled without a cache.dir.
func defaultCacheDir() string {
	dir, err := gap.NewScope(gap.User, "audiogen").CacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "audiogen")
	}
	return filepath.Join(dir, "tts")
}
