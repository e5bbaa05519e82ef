package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

// InitLogging prepares the log file, points the standard logger and LogWriter
// at stdout plus the file, and returns a JSON zap logger writing to the same
// destination. The returned func flushes the logger and closes the file.
func InitLogging(cfg LogConfig) (*zap.Logger, func()) {
	closeFile := func() {}

	LogWriter = os.Stdout
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), os.ModePerm); err != nil {
			log.Printf("Warning: Failed to create logs directory: %v", err)
		}

		logFile, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("Warning: Failed to open log file: %v", err)
		} else {
			LogWriter = io.MultiWriter(os.Stdout, logFile)
			closeFile = func() { _ = logFile.Close() }
		}
	}
	log.SetOutput(LogWriter)

	logger := NewLogger(LogWriter, cfg.Level)
	return logger, func() {
		_ = logger.Sync()
		closeFile()
	}
}

// NewLogger builds a JSON zap logger on w at the named level.
func NewLogger(w io.Writer, level string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		parseLevel(level),
	)
	return zap.New(core, zap.AddCaller())
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
