// Package logger provides the package-level logging used by go-mempool's
// free-path diagnostics. It mirrors the logging shape of the storage
// engine this module was grown out of: a logrus.Logger behind a small set
// of package functions, with a custom single-line formatter.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger is the instance behind Debug, Info and Warn. It writes to
	// stdout at info level unless Init sets another level.
	Logger *logrus.Logger
	// ErrorLogger is the instance used for critical free-path diagnostics.
	ErrorLogger *logrus.Logger
)

// Config controls where the two loggers write and at what level.
type Config struct {
	ErrorLogPath string
	LogLevel     string
}

// CustomFormatter renders a single-line, caller-annotated log message.
type CustomFormatter struct{}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("15:04:05 MST 2006/01/02")

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	msg := fmt.Sprintf("[%s] [%s] (%s) %s\n", timestamp, level, getCaller(), entry.Message)
	return []byte(msg), nil
}

func getCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		if strings.Contains(file, "sirupsen") || strings.Contains(file, "/logger.go") {
			continue
		}

		funcName := runtime.FuncForPC(pc).Name()
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), funcName, line)
	}

	return "unknown:unknown:0"
}

func parseLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func init() {
	Logger = logrus.New()
	Logger.SetFormatter(&CustomFormatter{})
	Logger.SetOutput(os.Stdout)

	ErrorLogger = logrus.New()
	ErrorLogger.SetFormatter(&CustomFormatter{})
	ErrorLogger.SetOutput(os.Stderr)
}

// Init reconfigures the package loggers, optionally duplicating the error
// log to a file alongside stderr.
func Init(cfg Config) error {
	Logger.SetLevel(parseLogLevel(cfg.LogLevel))
	ErrorLogger.SetLevel(parseLogLevel(cfg.LogLevel))

	if cfg.ErrorLogPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.ErrorLogPath), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(cfg.ErrorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		ErrorLogger.Warnf("failed to open error log file %s, staying on stderr: %v", cfg.ErrorLogPath, err)
		return nil
	}

	ErrorLogger.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}

func Debug(args ...interface{}) { Logger.Debug(args...) }

func Debugf(format string, args ...interface{}) { Logger.Debugf(format, args...) }

func Info(args ...interface{}) { Logger.Info(args...) }

func Infof(format string, args ...interface{}) { Logger.Infof(format, args...) }

func Warn(args ...interface{}) { Logger.Warn(args...) }

func Warnf(format string, args ...interface{}) { Logger.Warnf(format, args...) }

func Error(args ...interface{}) { ErrorLogger.Error(args...) }

func Errorf(format string, args ...interface{}) { ErrorLogger.Errorf(format, args...) }
