package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/valutatrade/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger returns a logger writing to stderr at the configured level, and
// as JSON to the configured log file, if any.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	console := zap.NewDevelopmentEncoderConfig()
	console.TimeKey = ""
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(console), zapcore.Lock(zapcore.AddSync(stderrSyncer())), level),
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("could not create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		// The file keeps every operation, whatever the console level.
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(f), zapcore.InfoLevel))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// stderrSyncer is stderr as a syncer, os.Stderr when it is the real one.
func stderrSyncer() zapcore.WriteSyncer {
	if f, ok := stderr.(*os.File); ok {
		return f
	}
	return zapcore.AddSync(stderr)
}
