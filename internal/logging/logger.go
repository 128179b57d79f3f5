package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOnly names loggers whose entries skip the console and go to the JSON
// file only: logger.Named(logging.FileOnly).
const FileOnly = "file"

// NewLogger returns a logger that prints human-readable lines to stdout and
// keeps a rotated JSON copy under logDir.
func NewLogger(logDir, level string) (*zap.Logger, error) {
	return NewLoggerTo(os.Stdout, logDir, level)
}

// NewLoggerTo is NewLogger with the console lines sent to console.
func NewLoggerTo(console io.Writer, logDir, level string) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "mindsprobe.log"),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.TimeKey = "ts"

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.TimeKey = ""
	consoleCfg.CallerKey = ""

	core := zapcore.NewTee(
		consoleCore{zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), lvl)},
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), file, lvl),
	)
	return zap.New(core), nil
}

// consoleCore drops entries from FileOnly loggers.
type consoleCore struct {
	zapcore.Core
}

func (c consoleCore) With(fields []zapcore.Field) zapcore.Core {
	return consoleCore{c.Core.With(fields)}
}

func (c consoleCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if e.LoggerName == FileOnly {
		return ce
	}
	return c.Core.Check(e, ce)
}
