package utils

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/wanderstay/staypoints/config"
)

var (
	// Logger is the global structured logger
	Logger = zap.NewNop()
	// Sugar is a sugared logger for convenience
	Sugar = Logger.Sugar()
)

// InitLogger initializes a zap logger with console + rolling file outputs based on configuration.
func InitLogger(cfg config.AppConfig) error {
	level := parseLevel(cfg.LogLevel)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), level),
	}
	if cfg.LogPath != "" {
		cores = append(cores, fileCore(cfg.LogPath, level, cfg))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.LogLevel == "debug" {
		opts = append(opts, zap.Development())
	}
	Logger = zap.New(zapcore.NewTee(cores...), opts...)
	Sugar = Logger.Sugar()
	zap.ReplaceGlobals(Logger)
	return nil
}

// NewRollingFileLogger builds a file-only logger, used for the HTTP access log.
// An empty path logs to stdout instead.
func NewRollingFileLogger(path, level string, cfg config.AppConfig) (*zap.Logger, error) {
	lvl := parseLevel(level)
	if path == "" {
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), lvl)
		return zap.New(core), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return zap.New(fileCore(path, lvl, cfg)), nil
}

func fileCore(path string, level zapcore.Level, cfg config.AppConfig) zapcore.Core {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    nz(cfg.LogMaxSizeMB, 100), // megabytes
		MaxBackups: nz(cfg.LogMaxBackups, 3),
		MaxAge:     nz(cfg.LogMaxAgeDays, 7), // days
		Compress:   cfg.LogCompress,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(lj), level)
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "silent":
		return zapcore.FatalLevel + 1
	default:
		return zapcore.InfoLevel
	}
}

func nz(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
