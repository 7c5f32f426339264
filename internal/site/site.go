// Package site maintains the artifacts consumed by the static site: the
// current-price snapshot JSON, the bounded price history JSON, and the
// price anchors inside the landing page HTML.
package site

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options locate the managed artifacts.
type Options struct {
	SnapshotPath string
	HistoryPath  string
	DisplayPath  string
	HistoryLimit int
	SourceLabel  string
}

// Writer owns the read-modify-write cycle for each artifact. Every write is
// a full-file overwrite behind a scoped open/close; there is no cross-process
// locking because the only writer is a low-frequency scheduled run.
type Writer struct {
	opts   Options
	logger zerolog.Logger
}

// NewWriter constructs a site artifact writer.
func NewWriter(opts Options, logger zerolog.Logger) *Writer {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.SourceLabel == "" {
		opts.SourceLabel = "Notícias Agrícolas"
	}
	return &Writer{
		opts:   opts,
		logger: logger.With().Str("component", "site_writer").Logger(),
	}
}

// MarketOpen reports whether t falls on a trading weekday. This is a plain
// Monday..Friday calendar check; exchange hours and holidays are not
// consulted.
func MarketOpen(t time.Time) bool {
	weekday := t.Weekday()
	return weekday >= time.Monday && weekday <= time.Friday
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
