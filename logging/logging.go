// Package logging builds the process logger.
//
// Everything logs through log/slog. The json format writes one object per
// line with the message under "message" and call-site attributes grouped
// under "meta". The text format renders through charmbracelet/log for
// terminals.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// Formats lists the accepted output formats.
var Formats = []string{"json", "text"}

// ParseLevel reads debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// New returns a logger writing to w at level in format.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "", "json":
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: lvl,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if len(groups) == 0 && a.Key == slog.MessageKey {
					a.Key = "message"
				}
				return a
			},
		})
		return slog.New(h.WithGroup("meta")), nil
	case "text":
		l := log.NewWithOptions(w, log.Options{
			Level:           log.Level(lvl),
			ReportTimestamp: true,
			Prefix:          "todo-sync",
		})
		return slog.New(l), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
