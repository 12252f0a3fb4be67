package logger

import (
	"fmt"

	"github.com/habitforge/habitforge/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a structured zap.Logger using the configured level
// (debug, info, warn, error) and replaces the zap globals.
func New(appCfg config.Config) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if appCfg.IsDev() {
		cfg.Development = true
	}

	level := appCfg.LogLevel
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	log = log.With(
		zap.String("service", appCfg.AppName),
		zap.String("version", appCfg.AppVersion),
	)

	zap.ReplaceGlobals(log)
	return log, nil
}
