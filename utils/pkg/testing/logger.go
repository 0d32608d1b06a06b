// Package ledgertest holds test-only helpers shared across the services.
package ledgertest

import (
	"log/slog"
	"os"
)

// NewLogger returns the logger tests hand to ledger components. Output is
// suppressed unless LEDGER_TEST_LOG asks for it ("info" or "debug").
func NewLogger() *slog.Logger {
	var level slog.Level
	switch os.Getenv("LEDGER_TEST_LOG") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	default:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
