package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tunes the logger built by New.
type Options struct {
	Level string
	// File enables a rotated JSON file output next to stdout.
	File string
}

// New instantiates a production-ready zap logger with sane defaults for JSON structured logging.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if opts.File == "" {
		return cfg.Build()
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
	}

	encoder := zapcore.NewJSONEncoder(cfg.EncoderConfig)
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(rotator), cfg.Level),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), cfg.Level),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// Must is a helper that panics when the logger cannot be created.
func Must(logger *zap.Logger, err error) *zap.Logger {
	if err != nil {
		panic(err)
	}
	return logger
}

// Named returns a child logger with the provided component name.
func Named(base *zap.Logger, component string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(component)
}
