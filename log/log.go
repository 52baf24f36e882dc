package log

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

type (
	Level  = zapcore.Level
	Field  = zap.Field
	Option = zap.Option
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

var (
	WithCaller    = zap.WithCaller
	AddCallerSkip = zap.AddCallerSkip
)

// Logger is a thin wrapper around zap. Use Named to derive sub loggers.
type Logger struct {
	l     *zap.Logger
	level zap.AtomicLevel
}

var (
	std   = New(os.Stderr, InfoLevel)
	stdMu sync.RWMutex
)

func Default() *Logger {
	stdMu.RLock()
	defer stdMu.RUnlock()
	return std
}

// ResetDefault replaces the default logger. Not safe to call while other
// goroutines log through the package level functions.
func ResetDefault(l *Logger) {
	stdMu.Lock()
	std = l
	stdMu.Unlock()
}

func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

// New creates a json logger
func New(writer io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(writer, level, "",
		zapcore.NewJSONEncoder(productionEncoderConfig()), opts...)
}

// DevLogger creates a console logger with colored levels
func DevLogger(writer io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return newLogger(writer, level, "", zapcore.NewConsoleEncoder(cfg), opts...)
}

// NewFiltered is like New but drops entries matching the zapfilter rules,
// e.g. "*:* -debug:sql" keeps everything except debug output of the sql logger.
//
//nolint:whitespace // editor/linter issue
func NewFiltered(
	writer io.Writer,
	level Level,
	rules string,
	dev bool,
	opts ...Option,
) (*Logger, error) {
	var enc zapcore.Encoder
	if dev {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	} else {
		enc = zapcore.NewJSONEncoder(productionEncoderConfig())
	}
	if _, err := zapfilter.ParseRules(rules); err != nil {
		return nil, err
	}
	return newLogger(writer, level, rules, enc, opts...), nil
}

func productionEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return cfg
}

//nolint:whitespace // editor/linter issue
func newLogger(
	writer io.Writer,
	level Level,
	rules string,
	enc zapcore.Encoder,
	opts ...Option,
) *Logger {
	if writer == nil {
		panic("the writer is nil")
	}
	atomicLevel := zap.NewAtomicLevelAt(level)
	var core zapcore.Core = zapcore.NewCore(enc, zapcore.AddSync(writer), atomicLevel)
	if rules != "" {
		core = zapfilter.NewFilteringCore(core, zapfilter.MustParseRules(rules))
	}
	return &Logger{
		l:     zap.New(core, opts...),
		level: atomicLevel,
	}
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) WithOptions(opts ...Option) *Logger {
	return &Logger{l: l.l.WithOptions(opts...), level: l.level}
}

func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{l: l.l.With(fields...), level: l.level}
}

func (l *Logger) Level() Level {
	return l.level.Level()
}

func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level)
}

func (l *Logger) Enabled(level Level) bool {
	return l.level.Enabled(level)
}

// Zap exposes the underlying logger for libraries expecting a *zap.Logger
func (l *Logger) Zap() *zap.Logger {
	return l.l
}

func (l *Logger) Log(level Level, msg string, fields ...Field) {
	l.l.Log(level, msg, fields...)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.l.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.l.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.l.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.l.Error(msg, fields...)
}

func (l *Logger) Fatal(msg string, fields ...Field) {
	l.l.Fatal(msg, fields...)
}

func (l *Logger) Sync() error {
	return l.l.Sync()
}

func Debug(msg string, fields ...Field) {
	Default().l.Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	Default().l.Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	Default().l.Warn(msg, fields...)
}

func Error(msg string, fields ...Field) {
	Default().l.Error(msg, fields...)
}

func Fatal(msg string, fields ...Field) {
	Default().l.Fatal(msg, fields...)
}

func Sync() error {
	return Default().Sync()
}
