// Package logging builds the shared zap logger used by every Lambda.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger tagged with the service name.
// LOG_LEVEL is intentionally not consulted: Lambda log volume is controlled
// at the subscription filter, not in-process.
func New(service string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		// zap's production config only fails on bad output paths; ours are fixed.
		panic(err)
	}
	return logger.With(zap.String("service", service))
}
