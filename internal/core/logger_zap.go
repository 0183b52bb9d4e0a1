package core

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger builds a JSON zap logger with ISO8601 timestamps at level
// (info when empty). Development mode switches to the console encoder.
func NewZapLogger(level string, development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level = strings.TrimSpace(level); level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// ZapLogger adapts a zap logger to Logger using the sugared key/value API.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger wraps z; a nil logger discards output.
func NewLogger(z *zap.Logger) ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return ZapLogger{sugar: z.Sugar()}
}

func (l ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l ZapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l ZapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// MigrationLogger adapts zap to golang-migrate's Logger.
type MigrationLogger struct {
	logger  *zap.Logger
	verbose bool
}

// NewMigrationLogger returns a migrate logger writing through z.
func NewMigrationLogger(z *zap.Logger, verbose bool) *MigrationLogger {
	return &MigrationLogger{logger: z, verbose: verbose}
}

func (l *MigrationLogger) Printf(format string, v ...any) {
	l.logger.Sugar().Infof("db migration: "+strings.TrimSuffix(format, "\n"), v...)
}

func (l *MigrationLogger) Verbose() bool { return l.verbose }
