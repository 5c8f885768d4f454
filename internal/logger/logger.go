package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"audiosummary/internal/config"
)

// NewLogger returns a production logger, or a no-op logger if one cannot be built
func NewLogger() *zap.Logger {
	l, err := NewProductionLogger()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewProductionLogger builds a JSON logger at info level writing to stderr
func NewProductionLogger() (*zap.Logger, error) {
	return build(zap.NewProductionConfig(), "production")
}

// NewDevelopmentLogger builds a console logger at debug level writing to stderr
func NewDevelopmentLogger() (*zap.Logger, error) {
	return build(zap.NewDevelopmentConfig(), "development")
}

// NewLoggerFromConfig builds a logger for the CLI. Logs go to stderr so that
// command output on stdout stays machine readable. Debug mode switches to the
// development encoder at debug level.
func NewLoggerFromConfig(cfg *config.Configuration) (*zap.Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if cfg.GetDebugMode() {
		return NewDevelopmentLogger()
	}

	level, err := zapcore.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.GetLogLevel(), err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return build(zc, "production")
}

// build pins both output streams to stderr before constructing the logger
func build(zc zap.Config, kind string) (*zap.Logger, error) {
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s logger: %w", kind, err)
	}
	return l, nil
}
