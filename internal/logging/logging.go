// Package logging provides structured logging configuration.
package logging

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration options.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // json|console
}

// New creates a new configured zap logger.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
			return nil, err
		}
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "console"
	}

	var zcfg zap.Config
	if format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.MessageKey = "msg"
	zcfg.EncoderConfig.CallerKey = "caller"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build(zap.AddCaller())
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("service", "aliasctl"))

	return logger, nil
}

// Sync flushes any buffered log entries.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}

// FromEnv creates a Config from environment variables.
func FromEnv() Config {
	return Config{
		Level:  getenv("ALIASCTL_LOG_LEVEL", "warn"),
		Format: getenv("ALIASCTL_LOG_FORMAT", "console"),
	}
}

func getenv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Component returns a zap field for the component name.
func Component(name string) zap.Field { return zap.String("component", name) }

// Alias returns a zap field for an alias address.
func Alias(alias string) zap.Field { return zap.String("alias", alias) }

// Intent returns a zap field for a confirmation intent.
func Intent(intent string) zap.Field { return zap.String("intent", intent) }

// Target returns a zap field for a DNS validation target.
func Target(target string) zap.Field { return zap.String("target", target) }

// Kind returns a zap field for a DNS check kind.
func Kind(kind string) zap.Field { return zap.String("kind", kind) }

// Status returns a zap field for a check or request status.
func Status(status string) zap.Field { return zap.String("status", status) }

// Code returns a zap field for an API error code.
func Code(code string) zap.Field { return zap.String("code", code) }

// HTTPStatus returns a zap field for an HTTP status code.
func HTTPStatus(status int) zap.Field { return zap.Int("http_status", status) }

// Delay returns a zap field for a scheduling delay.
func Delay(d time.Duration) zap.Field { return zap.Duration("delay", d) }

// Attempt returns a zap field for a retry attempt counter.
func Attempt(n int) zap.Field { return zap.Int("attempt", n) }

// Errors returns a zap field for a consecutive error counter.
func Errors(n int) zap.Field { return zap.Int("consecutive_errors", n) }
