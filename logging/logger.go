package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats accepted by New
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds the root logger writing to stdout
func New(level, format string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter builds a logger writing to w. Unknown levels fall back to info.
func NewWithWriter(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
