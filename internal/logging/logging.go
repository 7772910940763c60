package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the process-wide logrus logger.
type Options struct {
	Level  string
	Format string
	// File, when set, receives a rotated copy of every log line.
	File string
}

// Setup configures the standard logrus logger and returns the writer it
// logs to, so the HTTP access log can share it. The returned closer
// flushes the log file, if any.
func Setup(opts Options) (io.Writer, func() error, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}
	logrus.SetLevel(level)

	switch opts.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	closer := func() error { return nil }
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = rotator.Close
	}
	logrus.SetOutput(out)
	return out, closer, nil
}
