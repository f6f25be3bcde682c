package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/matheuskafuri/xupdate/internal/config"
	log "github.com/sirupsen/logrus"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging configures the global logrus logger. The TUI owns the
// terminal, so it logs to a file under the XDG state directory.
func setupLogging(level string, toFile bool) (io.Closer, error) {
	log.SetLevel(parseLevel(level))

	if !toFile {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return nopCloser{}, nil
	}

	path := config.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetFormatter(&log.JSONFormatter{})
	return f, nil
}

// parseLevel falls back to info for empty or unknown levels.
func parseLevel(level string) log.Level {
	if level == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
