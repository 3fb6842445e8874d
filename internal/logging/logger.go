// Package logging builds the zap loggers shared by the binaries.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options tune the logger. The zero value logs info and above to file and stderr.
type Options struct {
	// Level is a zap level name ("debug", "info", "warn", "error").
	Level string
	// NoConsole disables the stderr core; the TUI owns the terminal.
	NoConsole bool
}

// New creates a zap logger that writes JSON to the given log file path
// and also writes to stderr. Profile name and PID are included as initial fields.
func New(logPath, profileName string, opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	jsonEncoder := zapcore.NewJSONEncoder(encoderCfg)
	fileCore := zapcore.NewCore(jsonEncoder, zapcore.AddSync(file), level)

	core := fileCore
	if !opts.NoConsole {
		consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
		stderrCore := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), level)
		core = zapcore.NewTee(fileCore, stderrCore)
	}

	logger := zap.New(core,
		zap.Fields(
			zap.String("profile", profileName),
			zap.Int("pid", os.Getpid()),
		),
	)

	return logger, nil
}
