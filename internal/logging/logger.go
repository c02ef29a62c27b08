// Package logging wraps a process-wide zerolog logger.
//
// Init is called once from main with the configured level and format.
// Request-scoped code logs through Ctx so the request ID travels with
// every line:
//
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("upstream call failed")
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, fatal, panic, disabled.
	Level string
	// Format is json or console.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

type contextKey string

const requestIDKey contextKey = "request_id"

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	initLogger(Config{})
}

// Init reconfigures the global logger. Safe to call more than once.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

// initLogger must be called with mu held (or from init).
func initLogger(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	log = zerolog.New(output).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLogger replaces the global logger. Intended for tests.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	l := Logger()
	return l.With().Str("component", component).Logger()
}

func Debug() *zerolog.Event {
	l := Logger()
	return l.Debug()
}

func Info() *zerolog.Event {
	l := Logger()
	return l.Info()
}

func Warn() *zerolog.Event {
	l := Logger()
	return l.Warn()
}

func Error() *zerolog.Event {
	l := Logger()
	return l.Error()
}

// GenerateRequestID returns a new random request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID stores a request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with the request ID carried by ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}
