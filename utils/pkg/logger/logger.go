// Package logger builds the slog logger shared by the ledger services.
package logger

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// timeFormat is RFC3339 with millisecond precision; timestamps are always
// rendered in UTC.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: timeFormat,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.TimeValue(a.Value.Time().UTC())
			}
			// Drop empty string attrs so optional fields stay out of the line.
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}
