package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds the process logger for the given environment and installs it
// as the zap global.
func Init(environment string) error {
	var (
		l   *zap.Logger
		err error
	)

	if strings.EqualFold(environment, "production") {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err = cfg.Build()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l, err = cfg.Build()
	}
	if err != nil {
		return fmt.Errorf("build zap logger: %w", err)
	}

	zap.ReplaceGlobals(l.With(zap.String("service", "fau-events")))
	return nil
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = zap.L().Sync()
}
