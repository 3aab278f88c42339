// Package logging provides the leveled run logger used by every command.
//
// Console lines keep the "ts [LEVEL] text" layout; errors go to stderr,
// everything else to stdout. A plain-text copy is appended to the run log
// file when one is configured, and --log-json switches the console to JSON.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/term"
)

const timeLayout = "2006-01-02 15:04:05"

// Options controls where and how the logger writes.
type Options struct {
	Verbose bool
	Color   bool
	JSON    bool
	File    string    // Appended to; parent directories are created.
	Stdout  io.Writer // Defaults to os.Stdout.
	Stderr  io.Writer // Defaults to os.Stderr.
}

// Logger provides leveled logging with structured fields and an optional file sink.
type Logger struct {
	z       *zap.Logger
	s       *zap.SugaredLogger
	verbose bool

	mu   *sync.Mutex
	file *os.File
}

// NewLogger resolves colors from cfg and opens the run log file when one is
// configured. Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)
	return New(Options{
		Verbose: cfg.Verbose,
		Color:   term.Enabled(),
		JSON:    cfg.JSONLogs,
		File:    cfg.LogFile,
	})
}

// New builds a Logger from explicit options.
func New(opts Options) (*Logger, error) {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	minLevel := zapcore.InfoLevel
	if opts.Verbose {
		minLevel = zapcore.DebugLevel
	}
	below := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= minLevel && l < zapcore.ErrorLevel })
	errs := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		enc = zapcore.NewConsoleEncoder(consoleEncoderConfig(opts.Color))
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.AddSync(stdout), below),
		zapcore.NewCore(enc.Clone(), zapcore.AddSync(stderr), errs),
	}

	l := &Logger{verbose: opts.Verbose, mu: &sync.Mutex{}}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "open log file")
		}
		l.file = f
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderConfig(false)),
			zapcore.AddSync(f),
			zap.LevelEnablerFunc(func(lv zapcore.Level) bool { return lv >= minLevel }),
		))
	}

	l.z = zap.New(zapcore.NewTee(cores...))
	l.s = l.z.Sugar()
	return l, nil
}

// NewWithCore wraps an existing core. Tests pass a zaptest/observer core.
func NewWithCore(core zapcore.Core, verbose bool) *Logger {
	z := zap.New(core)
	return &Logger{z: z, s: z.Sugar(), verbose: verbose, mu: &sync.Mutex{}}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithCore(zapcore.NewNopCore(), false)
}

func consoleEncoderConfig(color bool) zapcore.EncoderConfig {
	levelEnc := bracketLevel
	if color {
		levelEnc = colorBracketLevel
	}
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      levelEnc,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

func bracketLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}

func colorBracketLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color := term.Blue
	switch l {
	case zapcore.DebugLevel:
		color = term.Cyan
	case zapcore.WarnLevel:
		color = term.Yellow
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		color = term.Red
	}
	enc.AppendString(color + "[" + l.CapitalString() + "]" + term.NC)
}

// With returns a child logger that attaches the given key/value pairs to
// every entry. The child shares the parent's file sink.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	s := l.s.With(keysAndValues...)
	return &Logger{z: s.Desugar(), s: s, verbose: l.verbose, mu: l.mu, file: l.file}
}

// Verbose reports whether debug output is enabled.
func (l *Logger) Verbose() bool { return l.verbose }

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger { return l.z }

// Close flushes buffered entries and closes the log file if one was opened.
func (l *Logger) Close() error {
	_ = l.z.Sync()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.s.Info(fmt.Sprintf(format, args...))
}

// Success logs a completed step at INFO level with a check mark.
func (l *Logger) Success(format string, args ...interface{}) {
	l.s.Info("✓ " + fmt.Sprintf(format, args...))
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.s.Warn(fmt.Sprintf(format, args...))
}

// Error logs at ERROR level, to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.s.Error(fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level; dropped unless verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.s.Debug(fmt.Sprintf(format, args...))
}
