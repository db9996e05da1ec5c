package container

import (
	"fmt"
	"os"

	"github.com/samber/do"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerPackage provides the process logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return NewLogger(opts)
	})
}

// NewLogger logs to stdout in the configured format and, when LogFile is set, tees JSON
// lines into a size-rotated file.
func NewLogger(opts *Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel

	if opts.LogLevel != "" {
		parsed, err := zapcore.ParseLevel(opts.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}

		level = parsed
	}

	var encoder zapcore.Encoder

	switch opts.LogFormat {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "", "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.LogFormat)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)

	if opts.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    opts.LogMaxSizeMB,
			MaxBackups: opts.LogMaxBackups,
			Compress:   true,
		}

		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotated),
			level,
		)
		core = zapcore.NewTee(core, fileCore)
	}

	return zap.New(core, zap.AddCaller()), nil
}
