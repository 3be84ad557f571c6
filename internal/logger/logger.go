// Package logger initializes and configures the global zerolog instance.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds configuration options for the application logger.
type Config struct {
	Level  string `long:"level" env:"LEVEL" description:"Log level (trace, debug, info, warn, error)" default:"info" json:"level"`
	Format string `long:"format" env:"FORMAT" description:"Log format (console or json)" default:"console" json:"format"`
	Output string `long:"output" env:"OUTPUT" description:"Log output (stdout, stderr or file path)" default:"stderr" json:"output"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg without touching global state.
// The returned closer releases the log file when Output is a path.
func New(cfg Config) (zerolog.Logger, zerolog.Level, io.Closer) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var (
		writer io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Output {
	case "", "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			// Fallback to stderr if file fails
			tmp := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			tmp.Error().Err(err).Str("path", cfg.Output).Msg("Failed to open log file, falling back to stderr")
			writer = os.Stderr
		} else {
			writer = file
			closer = file
		}
	}

	if cfg.Format == "json" {
		return zerolog.New(writer).Level(level).With().Timestamp().Logger(), level, closer
	}

	console := zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	if f, ok := writer.(*os.File); ok {
		if os.Getenv("NO_COLOR") != "" || !isTerminal(f) {
			console.NoColor = true
		}
	}

	return zerolog.New(console).Level(level).With().Timestamp().Logger(), level, closer
}

// Setup installs the logger described by cfg as the global zerolog logger.
func Setup(cfg Config) io.Closer {
	l, level, closer := New(cfg)
	zerolog.SetGlobalLevel(level)
	log.Logger = l

	return closer
}

// isTerminal checks if the provided file descriptor refers to a character device (terminal).
func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}
