package logger

import (
	"io"
	"strings"
	"time"

	"github.com/evdnx/golog"
	"go.uber.org/zap"
)

// Field is a structured key/value pair attached to a log entry.
type Field = golog.Field

// Field constructors, re-exported so callers only import this package.
func String(key, value string) Field                 { return golog.String(key, value) }
func Int(key string, value int) Field                { return golog.Int(key, value) }
func Float64(key string, value float64) Field        { return golog.Float64(key, value) }
func Err(err error) Field                            { return golog.Err(err) }
func Duration(key string, value time.Duration) Field { return golog.Duration(key, value) }

// Logger is the small logging surface used throughout the codebase.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Options selects the sinks of a golog-backed logger.
type Options struct {
	Level   string // debug, info, warn, error
	JSON    bool   // json encoder instead of console
	Writer  io.Writer
	File    string // optional rotating log file
	MaxSize int    // megabytes per rotated file
}

// gologLogger adapts *golog.Logger to Logger.
type gologLogger struct {
	l *golog.Logger
}

func (g *gologLogger) Debug(msg string, fields ...Field) { g.l.Debug(msg, fields...) }
func (g *gologLogger) Info(msg string, fields ...Field)  { g.l.Info(msg, fields...) }
func (g *gologLogger) Warn(msg string, fields ...Field)  { g.l.Warn(msg, fields...) }
func (g *gologLogger) Error(msg string, fields ...Field) { g.l.Error(msg, fields...) }

// Close flushes and releases the underlying providers.
func (g *gologLogger) Close() error { return g.l.Close() }

// New builds a golog logger. Without a Writer or File it logs to stdout.
// The returned closer must be called on shutdown.
func New(opts Options) (Logger, io.Closer, error) {
	enc := golog.ConsoleEncoder
	if opts.JSON {
		enc = golog.JSONEncoder
	}
	gopts := []golog.LoggerOption{golog.WithLevel(ParseLevel(opts.Level))}
	if opts.Writer != nil {
		gopts = append(gopts, golog.WithWriterProvider(opts.Writer, enc))
	} else {
		gopts = append(gopts, golog.WithStdOutProvider(enc))
	}
	if opts.File != "" {
		size := opts.MaxSize
		if size <= 0 {
			size = 50
		}
		gopts = append(gopts, golog.WithFileProvider(opts.File, size, 3, 28, true))
	}
	l, err := golog.NewLogger(gopts...)
	if err != nil {
		return nil, nil, err
	}
	g := &gologLogger{l: l}
	return g, g, nil
}

// ParseLevel maps a textual level to golog; unknown values mean info.
func ParseLevel(s string) golog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return golog.DebugLevel
	case "warn", "warning":
		return golog.WarnLevel
	case "error":
		return golog.ErrorLevel
	default:
		return golog.InfoLevel
	}
}

// zapLogger implements Logger on top of an existing *zap.Logger.
type zapLogger struct {
	z *zap.Logger
}

// NewZap wraps z so that applications already configured with zap can
// hand it to the strategy packages.
func NewZap(z *zap.Logger) Logger {
	return &zapLogger{z: z}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZap(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZap(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZap(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, toZap(fields)...) }

func toZap(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &zapLogger{z: zap.NewNop()}
}
