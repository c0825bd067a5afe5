// Package logging is the process-wide structured logger used by both the
// supervisor and worker binaries. It wraps zerolog directly: the
// teacher's own logging wrapper (github.com/danmuck/smplog) is a local
// replace-directive module whose source was not available to ground this
// on, so this package reproduces its observed public shape
// (Configure/Debugf/Infof/Warnf/Errf/Level/Config) directly against
// zerolog, matching how the teacher itself uses zerolog elsewhere
// (internal/observability/logger.go in the original tree).
package logging

import (
	"os"
	"sync/atomic"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Level mirrors zerolog's level scale without exposing the dependency to callers.
type Level int8

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	Disabled
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case TraceLevel:
		return zerolog.TraceLevel
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

// Config controls the process-wide logger.
type Config struct {
	Level     Level
	Timestamp bool
	NoColor   bool
	// Bypass disables the pretty console writer and emits raw JSON lines,
	// for when output is piped into another log collector.
	Bypass bool
}

// DefaultConfig returns the baseline runtime logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     InfoLevel,
		Timestamp: true,
		NoColor:   false,
		Bypass:    false,
	}
}

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := build(DefaultConfig())
	current.Store(&l)
}

// set builds a logger from a fully-resolved cfg and installs it as the
// process-wide logger; Configure calls it once the env overrides have
// been applied.
func set(cfg Config) {
	l := build(cfg)
	current.Store(&l)
}

func build(cfg Config) zerolog.Logger {
	var w = os.Stderr
	var writer interface {
		Write([]byte) (int, error)
	} = w

	if !cfg.Bypass {
		out := w
		useColor := !cfg.NoColor && isatty.IsTerminal(w.Fd())
		consoleWriter := zerolog.ConsoleWriter{Out: out, NoColor: !useColor}
		if useColor {
			consoleWriter.Out = colorable.NewColorable(out)
		}
		writer = consoleWriter
	}

	ctx := zerolog.New(writer).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	l := ctx.Logger().Level(cfg.Level.zerolog())
	return l
}

func logger() *zerolog.Logger {
	return current.Load()
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) {
	logger().Debug().Msgf(format, args...)
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) {
	logger().Info().Msgf(format, args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) {
	logger().Warn().Msgf(format, args...)
}

// Errf logs a formatted message at error level.
func Errf(format string, args ...any) {
	logger().Error().Msgf(format, args...)
}

// Logf logs a formatted message at info level; kept for call sites
// ported from the teacher's tests that don't care about severity.
func Logf(format string, args ...any) {
	Infof(format, args...)
}
