package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger.  JSON output uses the production
// encoder for machine consumption, otherwise a console encoder is used.
// Verbosity 1 or more enables debug logs of every object transition.
func newLogger(jsonOutput bool, verbose int) (*zap.Logger, error) {

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose > 0 {
		level.SetLevel(zapcore.DebugLevel)
	}

	var config zap.Config

	if jsonOutput {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	}

	config.Level = level

	return config.Build()
}
