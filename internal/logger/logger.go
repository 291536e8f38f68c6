package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger. When outputPaths are given the logger writes
// there instead of stderr, which keeps a full-screen terminal UI clean.
func New(development bool, outputPaths ...string) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	if len(outputPaths) > 0 {
		cfg.OutputPaths = outputPaths
		cfg.ErrorOutputPaths = outputPaths
		// colour codes only make sense on a terminal
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool, outputPaths ...string) *zap.Logger {
	log, err := New(development, outputPaths...)
	if err != nil {
		panic(err)
	}
	return log
}
