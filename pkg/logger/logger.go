package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin structured logger over zerolog shared by every layer of
// the service except the analysis engine, which stays silent.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // json or console
	Output     string `yaml:"output"`      // stdout, stderr, or file path
	TimeFormat string `yaml:"time_format"` // defaults to RFC3339Nano
}

func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	lvl := cfg.Level
	if lvl == "" {
		lvl = "info"
	}
	level, err := zerolog.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = file
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

// NewWriter builds a logger writing JSON to w; mostly useful in tests.
func NewWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that always carries the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.addToContext(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }

func (l *Logger) emit(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		f.AddTo(event)
	}
	event.Msg(msg)
}

// Printf lets the logger stand in where a printf-style logger is expected
// (kafka-go reader/writer loggers).
func (l *Logger) Printf(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// Field is a typed key/value attached to a log line.
type Field struct {
	key   string
	kind  fieldKind
	str   string
	i64   int64
	f64   float64
	b     bool
	err   error
	t     time.Time
	value interface{}
}

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
	kindError
	kindTime
	kindAny
)

func (f Field) AddTo(event *zerolog.Event) {
	switch f.kind {
	case kindString:
		event.Str(f.key, f.str)
	case kindInt:
		event.Int64(f.key, f.i64)
	case kindFloat:
		event.Float64(f.key, f.f64)
	case kindBool:
		event.Bool(f.key, f.b)
	case kindError:
		event.AnErr(f.key, f.err)
	case kindTime:
		event.Time(f.key, f.t)
	default:
		event.Interface(f.key, f.value)
	}
}

func (f Field) addToContext(ctx zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return ctx.Str(f.key, f.str)
	case kindInt:
		return ctx.Int64(f.key, f.i64)
	case kindFloat:
		return ctx.Float64(f.key, f.f64)
	case kindBool:
		return ctx.Bool(f.key, f.b)
	case kindError:
		return ctx.AnErr(f.key, f.err)
	case kindTime:
		return ctx.Time(f.key, f.t)
	default:
		return ctx.Interface(f.key, f.value)
	}
}

// --- Field constructors ---

func String(key, value string) Field { return Field{key: key, kind: kindString, str: value} }

func Strings(key string, value []string) Field { return String(key, strings.Join(value, ", ")) }

func Int(key string, value int) Field { return Field{key: key, kind: kindInt, i64: int64(value)} }

func Int64(key string, value int64) Field { return Field{key: key, kind: kindInt, i64: value} }

func Float64(key string, value float64) Field {
	return Field{key: key, kind: kindFloat, f64: value}
}

func Bool(key string, value bool) Field { return Field{key: key, kind: kindBool, b: value} }

func Error(err error) Field { return Field{key: "error", kind: kindError, err: err} }

// Duration logs the value in milliseconds.
func Duration(key string, value time.Duration) Field {
	return Field{key: key, kind: kindInt, i64: value.Milliseconds()}
}

func Time(key string, value time.Time) Field { return Field{key: key, kind: kindTime, t: value} }

func Any(key string, value interface{}) Field { return Field{key: key, kind: kindAny, value: value} }
