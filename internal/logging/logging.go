// Package logging builds the zerolog loggers handed to pipeline components.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	Level  string    // trace | debug | info | warn | error; default info
	Format string    // console | json; default console
	Out    io.Writer // default os.Stderr
}

// New creates a logger from options. Unknown levels fall back to info.
func New(opts Options) *zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var base zerolog.Logger
	if strings.ToLower(opts.Format) == "json" {
		base = zerolog.New(out)
	} else {
		base = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	base = base.Level(level).With().Timestamp().Logger()
	return &base
}

// Nop returns a logger that discards everything.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *zerolog.Logger) *zerolog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// WithRun attaches the run id and query to every event of the returned logger.
func WithRun(base *zerolog.Logger, runID, query string) *zerolog.Logger {
	l := OrNop(base).With().Str("run_id", runID).Str("query", query).Logger()
	return &l
}

// TraceDuration logs start and end of name with the elapsed duration at debug level.
// Usage: defer logging.TraceDuration(logger, "scoring.Score")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	logger = OrNop(logger)
	start := time.Now()
	logger.Debug().Str("op", name).Msg("start")
	return func() {
		logger.Debug().Str("op", name).Dur("duration", time.Since(start)).Msg("finish")
	}
}
