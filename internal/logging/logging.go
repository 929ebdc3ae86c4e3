// Package logging provides the monitor's line-oriented slog handler.
//
// Every record is rendered as a single greppable line:
//
//	[2006-01-02 15:04:05] [LEVEL] message key=value
//
// with the level token padded to five characters (INFO, OK, FAIL, STAT, WARN).
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Custom levels for probe outcomes and periodic summaries. OK and STAT sit
// between Info and Warn; FAIL reuses the Error severity.
const (
	LevelInfo = slog.LevelInfo
	LevelOK   = slog.Level(1)
	LevelStat = slog.Level(2)
	LevelWarn = slog.LevelWarn
	LevelFail = slog.LevelError
)

func token(l slog.Level) string {
	switch {
	case l >= LevelFail:
		return "FAIL"
	case l >= LevelWarn:
		return "WARN"
	case l >= LevelStat:
		return "STAT"
	case l >= LevelOK:
		return "OK"
	default:
		return "INFO"
	}
}

// LineHandler is a slog.Handler emitting the fixed line format above.
type LineHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
}

// NewHandler creates a LineHandler writing to w. Records below level are
// discarded.
func NewHandler(w io.Writer, level slog.Leveler) *LineHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LineHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *LineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%-5s] %s", t.Format("2006-01-02 15:04:05"), token(r.Level), r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func writeAttr(b *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	fmt.Fprintf(b, " %s=%v", a.Key, a.Value)
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup is accepted but groups are flattened; the line format has no
// nesting.
func (h *LineHandler) WithGroup(string) slog.Handler {
	return h
}

// FileConfig describes the optional rotating log file kept alongside stdout.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a logger writing to stdout, and additionally to a
// size-rotated file when file.Path is set.
func New(file FileConfig) *slog.Logger {
	var w io.Writer = os.Stdout
	if file.Path != "" {
		rotated := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
		}
		w = io.MultiWriter(os.Stdout, rotated)
	}
	return slog.New(NewHandler(w, slog.LevelInfo))
}
