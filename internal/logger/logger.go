package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"safestep/internal/config"
)

const logFileName = "app.log"

// Logger provides leveled logging (debug/info/warning/error) to a rotating file and stdout.
type Logger struct {
	entry   *logrus.Logger
	logFile string
	rotator *lumberjack.Logger
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logFile := filepath.Join(config.LogDirectory, logFileName)
	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}

	l := New(io.MultiWriter(os.Stdout, rotator), config.LogLevel)
	l.logFile = logFile
	l.rotator = rotator
	return l
}

// New creates a Logger writing to w only. Unknown levels fall back to info.
func New(w io.Writer, level string) *Logger {
	entry := logrus.New()
	entry.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	entry.SetLevel(lvl)

	return &Logger{entry: entry}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// WithFields returns a structured entry for request-scoped logging.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.entry.WithFields(logrus.Fields(fields))
}

// LogFile returns the path of the log file, or "" for writer-only loggers.
func (l *Logger) LogFile() string {
	return l.logFile
}

// Clean truncates the log file. The rotator is closed afterwards so it
// reopens the file and restarts its size count from zero.
func (l *Logger) Clean() {
	if l.logFile == "" {
		return
	}

	file, err := os.OpenFile(l.logFile, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return
	}
	file.Close()

	if l.rotator != nil {
		if err := l.rotator.Close(); err != nil {
			l.Error("Error reopening log file: %v", err)
		}
	}

	l.Info("File content has been cleared.")
}

// Close flushes and closes the rotating file.
func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}
