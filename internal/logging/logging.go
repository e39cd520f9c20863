// Package logging builds the process logger. The terminal belongs to the UI,
// so logs only go to a rotated file and are discarded without one.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the log sink
type Config struct {
	Level      string
	Format     string // json or console
	Filename   string
	MaxSize    int // megabytes
	MaxDays    int
	MaxBackups int
}

// DefaultConfig returns the rotation defaults
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", MaxSize: 20, MaxDays: 7, MaxBackups: 3}
}

// New builds a logger from cfg. Without a file name it returns a no-op logger.
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Filename == "" {
		return zap.NewNop(), nil
	}
	level, err := cfg.level()
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(cfg.encoder(), cfg.syncer(), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func (cfg Config) level() (zap.AtomicLevel, error) {
	if cfg.Level == "" {
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	}
	return zap.ParseAtomicLevel(strings.ToLower(cfg.Level))
}

func (cfg Config) encoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func (cfg Config) syncer() zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxDays,
		MaxBackups: cfg.MaxBackups,
	})
}
