// Package logging builds the daemon's root zap logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Special File values.
const (
	FileStdout = "STDOUT"
	FileStderr = "STDERR"
)

// Config configures logging.
type Config struct {
	// File is STDOUT, STDERR or a path. Paths are rotated.
	File  string `toml:"file"`
	Level string `toml:"level"`
	// Encoding is "console" or "json".
	Encoding string `toml:"encoding"`

	MaxSizeMB  int `toml:"max-size-mb"`
	MaxBackups int `toml:"max-backups"`
	MaxAgeDays int `toml:"max-age-days"`
}

// NewConfig returns the default logging config.
func NewConfig() Config {
	return Config{
		File:       FileStdout,
		Level:      "INFO",
		Encoding:   "console",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// ParseLevel converts a case-insensitive level name.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO", "":
		return zapcore.InfoLevel, nil
	case "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Logger is a root logger plus the resources it holds.
type Logger struct {
	*zap.Logger
	level  zap.AtomicLevel
	closer io.Closer
}

// New builds a Logger from c. stdout and stderr are used for the special
// File values.
func New(c Config, stdout, stderr zapcore.WriteSyncer) (*Logger, error) {
	lvl, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(lvl)

	var (
		output zapcore.WriteSyncer
		closer io.Closer
	)
	switch c.File {
	case FileStdout, "":
		output = stdout
	case FileStderr:
		output = stderr
	default:
		rotator := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
		}
		output = zapcore.AddSync(rotator)
		closer = rotator
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	switch c.Encoding {
	case "console", "":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log encoding %s", c.Encoding)
	}

	root := zap.New(zapcore.NewCore(encoder, output, level))
	return &Logger{Logger: root, level: level, closer: closer}, nil
}

// NewDefault builds the default logger on the process stdout and stderr.
func NewDefault(c Config) (*Logger, error) {
	return New(c, os.Stdout, os.Stderr)
}

// SetLevel changes the level of every logger derived from the root.
func (l *Logger) SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// Close flushes and releases the log file, if any.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
