package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

const DefaultLevel = "info"

type Options struct {
	// Level is a zap level name; empty means info.
	Level  string
	Format Format
	// OutputPaths defaults to stderr so command output on stdout stays clean.
	OutputPaths []string
}

var (
	initOnce   sync.Once
	initLogger *zap.Logger
	initErr    error
)

// Init configures the process logger. Only the first call builds it; every
// later call returns that same logger and error, whatever options it passes.
func Init(opts Options) (*zap.Logger, error) {
	initOnce.Do(func() {
		initLogger, initErr = New(opts)
		if initErr == nil {
			zap.ReplaceGlobals(initLogger)
		}
	})

	return initLogger, initErr
}

// New builds a logger without touching process state.
func New(opts Options) (*zap.Logger, error) {
	levelName := strings.TrimSpace(opts.Level)
	if levelName == "" {
		levelName = DefaultLevel
	}
	level, err := zap.ParseAtomicLevel(strings.ToLower(levelName))
	if err != nil {
		return nil, fmt.Errorf("%w: parse level %q: %w", domain.ErrLoggingInit, opts.Level, err)
	}

	var cfg zap.Config
	switch opts.Format {
	case "", FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrLoggingInit, opts.Format)
	}

	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = append([]string(nil), opts.OutputPaths...)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: build logger: %w", domain.ErrLoggingInit, err)
	}

	return logger, nil
}
