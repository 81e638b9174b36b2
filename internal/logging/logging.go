package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog with sane defaults and installs the result as the
// global logger. Output goes to stderr through a console writer; extra writers
// receive the same lines without colour.
func Setup(level string, extra ...io.Writer) zerolog.Logger {
	return SetupTo(os.Stderr, level, extra...)
}

// SetupTo is Setup with an explicit primary output.
func SetupTo(out io.Writer, level string, extra ...io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	writers := make([]io.Writer, 0, 1+len(extra))
	writers = append(writers, zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = out
		w.TimeFormat = time.RFC3339
	}))
	for _, e := range extra {
		if e == nil {
			continue
		}
		writers = append(writers, zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = e
			w.NoColor = true
			w.TimeFormat = time.TimeOnly
		}))
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(level)).
		With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
