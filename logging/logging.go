// Package logging wraps zerolog with the few knobs the CLI and the studio need.
//
// Call Init once from main, then take a component logger with For:
//
//	log := logging.For("compose")
//	log.Info().Str("style", name).Msg("encoding")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the global logger
type Config struct {
	// Level is trace, debug, info, warn or error. Default: info
	Level string
	// Format is console or json. Default: console
	Format string
	// Output defaults to os.Stderr
	Output io.Writer
}

var (
	mu   sync.RWMutex
	root zerolog.Logger
)

func init() {
	Init(Config{})
}

// Init (re)configures the global logger. Safe to call more than once.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	out := cfg.Output
	if !strings.EqualFold(cfg.Format, "json") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	mu.Lock()
	root = zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	mu.Unlock()
}

// For returns a child logger tagged with the component name
func For(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With().Str("component", component).Logger()
}

// ParseLevel maps a level name to zerolog, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
