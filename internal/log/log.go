// Package log configures the structured logger shared by every component.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Fields is an alias so callers don't need to import logrus for structured fields.
type Fields = logrus.Fields

// Options controls where and how much the logger writes.
type Options struct {
	// Level is a logrus level name; unknown names fall back to info.
	Level string
	// Dir receives rotated log files. Empty disables file output.
	Dir string
	// Env disables file output when set to "test".
	Env string
	// Output overrides the console writer (stderr by default).
	Output io.Writer
}

// New builds a logger from opts. It does not touch the package-level logger.
func New(opts Options) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&formatter.Formatter{
		NoColors:        opts.Output != nil,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
		},
	})

	console := opts.Output
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{console}

	if opts.Dir != "" && opts.Env != "test" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, fmt.Sprintf("slt-%s.log", time.Now().Format("2006-01-02"))),
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}

	l.SetOutput(io.MultiWriter(writers...))
	l.SetReportCaller(true)
	return l
}

// Init configures the package-level logger once and returns it.
// Later calls return the logger built by the first call.
func Init(opts Options) *logrus.Logger {
	once.Do(func() {
		logger = New(opts)
	})
	return logger
}

// Logger returns the package-level logger, initializing it with defaults if needed.
func Logger() *logrus.Logger {
	return Init(Options{Level: "info"})
}

func Debug(fields Fields, msg string) {
	Logger().WithFields(orEmpty(fields)).Debug(msg)
}

func Info(fields Fields, msg string) {
	Logger().WithFields(orEmpty(fields)).Info(msg)
}

func Warn(fields Fields, msg string) {
	Logger().WithFields(orEmpty(fields)).Warn(msg)
}

func Error(fields Fields, msg string) {
	Logger().WithFields(orEmpty(fields)).Error(msg)
}

func Fatal(fields Fields, msg string) {
	Logger().WithFields(orEmpty(fields)).Fatal(msg)
}

// Discard returns a logger that drops everything. Useful as a default for
// components constructed without one.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func orEmpty(fields Fields) Fields {
	if fields == nil {
		return Fields{}
	}
	return fields
}
