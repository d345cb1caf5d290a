package utils

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// NewLogger returns a console logger writing to w. Colour is only used when
// w is a terminal.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !IsTerminal(w),
	}))
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// RunAttrs returns the attributes identifying a benchmark run in log lines.
func RunAttrs(run int, alpha, beta float64, terms []string) []any {
	attrs := []any{"run", run}
	attrs = addIf(attrs, "alpha", rate(alpha))
	attrs = addIf(attrs, "beta", rate(beta))
	return append(attrs, "terms", terms)
}

// rate hides the sentinel used for the valued pass.
func rate(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}
