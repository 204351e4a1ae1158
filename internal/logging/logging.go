// Package logging builds the process logger: slog to stdout plus a daily
// rotating file under the data directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// Prefix names the log files: uniasset-YYYYMMDD.log.
	Prefix               = "uniasset"
	DefaultRetentionDays = 7
	dateLayout           = "20060102"
)

const (
	EnvLevel  = "UNIASSET_LOG_LEVEL"
	EnvFormat = "UNIASSET_LOG_FORMAT"
)

// DailyWriter appends to one file per day and prunes files older than the
// retention window.
type DailyWriter struct {
	dir       string
	prefix    string
	retention int
	now       func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewDailyWriter opens today's file in dir.
func NewDailyWriter(dir, prefix string, retentionDays int) (*DailyWriter, error) {
	return newDailyWriter(dir, prefix, retentionDays, time.Now)
}

func newDailyWriter(dir, prefix string, retentionDays int, now func() time.Time) (*DailyWriter, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if prefix == "" {
		prefix = Prefix
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	w := &DailyWriter{dir: dir, prefix: prefix, retention: retentionDays, now: now}
	if err := w.rotate(now()); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotate(w.now()); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Path returns the file currently written to.
func (w *DailyWriter) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fileName(w.day)
}

// Close closes the current file.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *DailyWriter) fileName(day string) string {
	return filepath.Join(w.dir, w.prefix+"-"+day+".log")
}

// rotate must be called with mu held.
func (w *DailyWriter) rotate(t time.Time) error {
	day := t.Format(dateLayout)
	if w.file != nil && day == w.day {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	f, err := os.OpenFile(w.fileName(day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	w.day = day
	w.file = f
	w.prune(t)
	return nil
}

func (w *DailyWriter) prune(t time.Time) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	cutoff := t.AddDate(0, 0, -w.retention)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		day, ok := strings.CutPrefix(name, w.prefix+"-")
		if !ok {
			continue
		}
		day, ok = strings.CutSuffix(day, ".log")
		if !ok || len(day) != len(dateLayout) {
			continue
		}
		date, err := time.Parse(dateLayout, day)
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			_ = os.Remove(filepath.Join(w.dir, name))
		}
	}
}

// Options configures NewLogger. Zero values pick the defaults.
type Options struct {
	Dir           string
	Level         slog.Level
	RetentionDays int
	// Stdout receives a copy of every record; nil means os.Stdout.
	Stdout io.Writer
}

// NewLogger returns a logger writing to stdout and a DailyWriter in
// opts.Dir, and installs it as the slog default. UNIASSET_LOG_LEVEL and
// UNIASSET_LOG_FORMAT override the level and select a JSON handler.
func NewLogger(opts Options) (*slog.Logger, *DailyWriter, error) {
	writer, err := NewDailyWriter(opts.Dir, Prefix, opts.RetentionDays)
	if err != nil {
		return nil, nil, err
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	handler := NewHandler(io.MultiWriter(stdout, writer), ParseLevel(os.Getenv(EnvLevel), opts.Level), os.Getenv(EnvFormat))
	logger := slog.New(handler).With("service", Prefix)
	slog.SetDefault(logger)
	return logger, writer, nil
}

// ParseLevel reads a level name or number, returning fallback when value
// is empty or unknown.
func ParseLevel(value string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return slog.Level(i)
	}
	return fallback
}

// NewHandler returns a JSON handler for format "json", text otherwise.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, options)
	}
	return slog.NewTextHandler(w, options)
}
