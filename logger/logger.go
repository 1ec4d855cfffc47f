package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logrusLevels = map[LogLevel]logrus.Level{
	DEBUG: logrus.DebugLevel,
	INFO:  logrus.InfoLevel,
	WARN:  logrus.WarnLevel,
	ERROR: logrus.ErrorLevel,
	FATAL: logrus.FatalLevel,
}

const timestampFormat = "2006-01-02 15:04:05.000"

// Logger wraps a logrus logger that writes to stdout and a daily log file.
type Logger struct {
	base       *logrus.Logger
	mu         sync.Mutex
	level      LogLevel
	prefix     string
	showCaller bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Config describes how the logger should be initialised.
type Config struct {
	Level      LogLevel
	LogDir     string
	MaxSize    int64 // bytes
	MaxAge     int   // days
	UseColor   bool
	ShowCaller bool
	Prefix     string
	// Console receives the terminal output; nil means os.Stdout.
	Console io.Writer
}

// ParseLevel maps a config string to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Initialize boots the global logger instance if it has not been created yet.
func Initialize(config Config) error {
	var err error
	once.Do(func() {
		base := logrus.New()
		console := config.Console
		if console == nil {
			console = os.Stdout
		}
		base.SetOutput(console)
		base.SetLevel(logrusLevels[config.Level])
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
			ForceColors:     config.UseColor,
			DisableColors:   !config.UseColor,
		})

		if config.LogDir != "" {
			if err = os.MkdirAll(config.LogDir, 0755); err != nil {
				return
			}

			logFile, fileErr := createLogFile(config.LogDir)
			if fileErr != nil {
				err = fileErr
				return
			}

			// Files never get ANSI colours.
			base.AddHook(&fileHook{
				writer: logFile,
				formatter: &logrus.TextFormatter{
					FullTimestamp:   true,
					TimestampFormat: timestampFormat,
					DisableColors:   true,
				},
			})

			go rotateLogFiles(config.LogDir, config.MaxSize, config.MaxAge)
		}

		defaultLogger = &Logger{
			base:       base,
			level:      config.Level,
			prefix:     config.Prefix,
			showCaller: config.ShowCaller,
		}
	})

	return err
}

// fileHook mirrors every entry into the daily log file.
type fileHook struct {
	mu        sync.Mutex
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(line)
	return err
}

// createLogFile creates (or opens) the log file for the current day.
func createLogFile(logDir string) (*os.File, error) {
	timestamp := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logDir, fmt.Sprintf("floordesign-%s.log", timestamp))

	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// rotateLogFiles periodically rotates and prunes log files.
func rotateLogFiles(logDir string, maxSize int64, maxAge int) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		files, _ := filepath.Glob(filepath.Join(logDir, "floordesign-*.log"))
		for _, file := range files {
			info, err := os.Stat(file)
			if err != nil {
				continue
			}

			if time.Since(info.ModTime()).Hours() > float64(maxAge*24) {
				os.Remove(file)
				continue
			}

			if maxSize > 0 && info.Size() > maxSize {
				newName := strings.Replace(file, ".log", fmt.Sprintf("-%d.log", time.Now().Unix()), 1)
				os.Rename(file, newName)
			}
		}
	}
}

func (l *Logger) entry(fields logrus.Fields) *logrus.Entry {
	e := logrus.NewEntry(l.base)
	if len(fields) > 0 {
		e = e.WithFields(fields)
	}
	if l.showCaller {
		// entry <- log <- Info/LogEntry.Info <- caller
		if _, file, line, ok := runtime.Caller(3); ok {
			e = e.WithField("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
		}
	}
	return e
}

func (l *Logger) log(level LogLevel, fields logrus.Fields, format string, args ...interface{}) {
	l.mu.Lock()
	threshold := l.level
	l.mu.Unlock()
	if level < threshold {
		return
	}

	message := l.prefix + fmt.Sprintf(format, args...)
	e := l.entry(fields)
	switch level {
	case DEBUG:
		e.Debug(message)
	case INFO:
		e.Info(message)
	case WARN:
		e.Warn(message)
	case ERROR:
		e.Error(message)
	case FATAL:
		e.Fatal(message)
	}
}

func current() *Logger {
	if defaultLogger != nil {
		return defaultLogger
	}
	return fallback
}

// fallback is used before Initialize, e.g. in tests.
var fallback = &Logger{base: logrus.StandardLogger(), level: INFO}

func Debug(format string, args ...interface{}) {
	current().log(DEBUG, nil, format, args...)
}

func Info(format string, args ...interface{}) {
	current().log(INFO, nil, format, args...)
}

func Warn(format string, args ...interface{}) {
	current().log(WARN, nil, format, args...)
}

func Error(format string, args ...interface{}) {
	current().log(ERROR, nil, format, args...)
}

func Fatal(format string, args ...interface{}) {
	current().log(FATAL, nil, format, args...)
}

// WithFields attaches structured fields to the log entry.
func WithFields(fields map[string]interface{}) *LogEntry {
	return &LogEntry{
		fields: logrus.Fields(fields),
		logger: current(),
	}
}

// LogEntry represents a structured log entry builder.
type LogEntry struct {
	fields logrus.Fields
	logger *Logger
}

func (e *LogEntry) Debug(format string, args ...interface{}) {
	e.logger.log(DEBUG, e.fields, format, args...)
}

func (e *LogEntry) Info(format string, args ...interface{}) {
	e.logger.log(INFO, e.fields, format, args...)
}

func (e *LogEntry) Warn(format string, args ...interface{}) {
	e.logger.log(WARN, e.fields, format, args...)
}

func (e *LogEntry) Error(format string, args ...interface{}) {
	e.logger.log(ERROR, e.fields, format, args...)
}

func (e *LogEntry) Fatal(format string, args ...interface{}) {
	e.logger.log(FATAL, e.fields, format, args...)
}

// Log allows emitting a message with an explicit level via the entry.
func (e *LogEntry) Log(level LogLevel, format string, args ...interface{}) {
	e.logger.log(level, e.fields, format, args...)
}

// SetLevel updates the global logging level.
func SetLevel(level LogLevel) {
	l := current()
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
	l.base.SetLevel(logrusLevels[level])
}

// GetLevel returns the current global logging level.
func GetLevel() LogLevel {
	l := current()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}
