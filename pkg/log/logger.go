// Structured logging for the delta calibrator
//
// Provides per-component loggers with:
// - Log levels (DEBUG, INFO, WARN, ERROR)
// - Structured fields (key-value pairs)
// - Text and JSON output formats
// - ANSI colors when writing to a terminal
//
// The encoding and level filtering are delegated to zap.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota

	// INFO level for general informational messages
	INFO

	// WARN level for warning messages
	WARN

	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel parses a string into a LogLevel
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// OutputFormat specifies the output format for log messages
type OutputFormat int

const (
	// FormatText outputs human-readable text format
	FormatText OutputFormat = iota
	// FormatJSON outputs machine-readable JSON format
	FormatJSON
)

// ParseFormat parses "text" or "json"; anything else is text.
func ParseFormat(s string) OutputFormat {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// Fields is a map of structured logging fields
type Fields map[string]interface{}

// Logger is the main logging interface
type Logger struct {
	mu        sync.Mutex
	prefix    string
	writer    io.Writer
	level     zap.AtomicLevel
	colorize  bool
	outFormat OutputFormat
	fields    Fields
	caller    bool
	zl        *zap.Logger
}

// Entry represents a single log entry with fields
type Entry struct {
	logger *Logger
	fields Fields
}

// JSONLogEntry is the structure for JSON formatted log entries
type JSONLogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger

	// ANSI color codes for terminal output
	ansiColors = map[zapcore.Level]string{
		zapcore.DebugLevel: "\x1b[36m", // Cyan
		zapcore.InfoLevel:  "\x1b[32m", // Green
		zapcore.WarnLevel:  "\x1b[33m", // Yellow
		zapcore.ErrorLevel: "\x1b[31m", // Red
	}
	ansiReset = "\x1b[0m"
)

// New creates a new logger with the given prefix writing to stderr
func New(prefix string) *Logger {
	l := &Logger{
		prefix:    prefix,
		writer:    os.Stderr,
		level:     zap.NewAtomicLevelAt(zapcore.InfoLevel),
		colorize:  os.Getenv("NO_COLOR") == "" && isTerminal(os.Stderr),
		outFormat: FormatText,
		fields:    make(Fields),
	}
	l.rebuild()
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	l := New("")
	l.SetWriter(io.Discard)
	l.SetLevel(ERROR + 1)
	return l
}

// rebuild recreates the zap core; callers hold l.mu or own l exclusively.
func (l *Logger) rebuild() {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		CallerKey:      "caller",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var enc zapcore.Encoder
	if l.outFormat == FormatJSON {
		cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeName = zapcore.FullNameEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		colorize := l.colorize
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		cfg.EncodeLevel = func(lvl zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
			s := fmt.Sprintf("[%-5s]", lvl.CapitalString())
			if colorize {
				s = ansiColors[lvl] + s + ansiReset
			}
			pae.AppendString(s)
		}
		cfg.EncodeName = func(name string, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(name + ":")
		}
		cfg.ConsoleSeparator = " "
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(l.writer)), l.level)
	opts := []zap.Option{zap.AddCallerSkip(2)}
	if l.caller {
		opts = append(opts, zap.AddCaller())
	}
	zl := zap.New(core, opts...)
	if l.prefix != "" {
		zl = zl.Named(l.prefix)
	}
	l.zl = zl
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	if level > ERROR {
		l.level.SetLevel(zapcore.FatalLevel)
		return
	}
	l.level.SetLevel(level.zapLevel())
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.InfoLevel:
		return INFO
	case zapcore.WarnLevel:
		return WARN
	default:
		return ERROR
	}
}

// SetWriter sets the output writer
func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
	l.rebuild()
}

// SetColorize enables or disables ANSI colors in text output
func (l *Logger) SetColorize(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colorize = enable
	l.rebuild()
}

// SetFormat sets the output format
func (l *Logger) SetFormat(format OutputFormat) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outFormat = format
	l.rebuild()
}

// SetCaller enables or disables caller information
func (l *Logger) SetCaller(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.caller = enable
	l.rebuild()
}

// Sync flushes any buffered output
func (l *Logger) Sync() error {
	l.mu.Lock()
	zl := l.zl
	l.mu.Unlock()
	return zl.Sync()
}

// WithField returns an entry carrying one field
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{logger: l, fields: Fields{key: value}}
}

// WithFields returns an entry carrying the given fields
func (l *Logger) WithFields(fields Fields) *Entry {
	f := make(Fields, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	return &Entry{logger: l, fields: f}
}

// WithError returns an entry carrying an error field
func (l *Logger) WithError(err error) *Entry {
	return l.WithField("error", err.Error())
}

// WithPrefix returns a new logger with a modified prefix and shared level
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &Logger{
		prefix:    prefix,
		writer:    l.writer,
		level:     l.level,
		colorize:  l.colorize,
		outFormat: l.outFormat,
		fields:    l.fields,
		caller:    l.caller,
	}
	child.rebuild()
	return child
}

func zapFields(persistent, fields Fields, nested bool) []zap.Field {
	if len(persistent) == 0 && len(fields) == 0 {
		return nil
	}
	merged := make(Fields, len(persistent)+len(fields))
	for k, v := range persistent {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys)+1)
	if nested {
		out = append(out, zap.Namespace("fields"))
	}
	for _, k := range keys {
		out = append(out, zap.Any(k, merged[k]))
	}
	return out
}

// write is the single exit point to zap; it must stay two frames below
// the public call site for caller reporting.
func (l *Logger) write(level LogLevel, msg string, fields Fields) {
	l.mu.Lock()
	zl := l.zl
	persistent := l.fields
	nested := l.outFormat == FormatJSON
	l.mu.Unlock()

	if ce := zl.Check(level.zapLevel(), msg); ce != nil {
		ce.Write(zapFields(persistent, fields, nested)...)
	}
}

func sprintf(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.write(DEBUG, sprintf(msg, args), nil)
}

// Info logs a message at INFO level
func (l *Logger) Info(msg string, args ...interface{}) {
	l.write(INFO, sprintf(msg, args), nil)
}

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.write(WARN, sprintf(msg, args), nil)
}

// Error logs a message at ERROR level
func (l *Logger) Error(msg string, args ...interface{}) {
	l.write(ERROR, sprintf(msg, args), nil)
}

// Entry methods - log with fields

// WithField adds a field to the entry
func (e *Entry) WithField(key string, value interface{}) *Entry {
	newFields := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		newFields[k] = v
	}
	newFields[key] = value
	return &Entry{logger: e.logger, fields: newFields}
}

// WithFields adds multiple fields to the entry
func (e *Entry) WithFields(fields Fields) *Entry {
	newFields := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &Entry{logger: e.logger, fields: newFields}
}

// Debug logs the entry at DEBUG level
func (e *Entry) Debug(msg string, args ...interface{}) {
	e.logger.write(DEBUG, sprintf(msg, args), e.fields)
}

// Info logs the entry at INFO level
func (e *Entry) Info(msg string, args ...interface{}) {
	e.logger.write(INFO, sprintf(msg, args), e.fields)
}

// Warn logs the entry at WARN level
func (e *Entry) Warn(msg string, args ...interface{}) {
	e.logger.write(WARN, sprintf(msg, args), e.fields)
}

// Error logs the entry at ERROR level
func (e *Entry) Error(msg string, args ...interface{}) {
	e.logger.write(ERROR, sprintf(msg, args), e.fields)
}

// Global logger functions

// SetDefaultLogger replaces the package-level logger
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// GetLogger returns a logger with the given prefix sharing the default
// logger's level and output
func GetLogger(prefix string) *Logger {
	defaultMu.Lock()
	base := defaultLogger
	defaultMu.Unlock()
	if prefix == "" || prefix == base.prefix {
		return base
	}
	return base.WithPrefix(prefix)
}

func current() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLogger
}

// Debug logs at DEBUG level using the default logger
func Debug(msg string, args ...interface{}) {
	current().write(DEBUG, sprintf(msg, args), nil)
}

// Info logs at INFO level using the default logger
func Info(msg string, args ...interface{}) {
	current().write(INFO, sprintf(msg, args), nil)
}

// Warn logs at WARN level using the default logger
func Warn(msg string, args ...interface{}) {
	current().write(WARN, sprintf(msg, args), nil)
}

// Error logs at ERROR level using the default logger
func Error(msg string, args ...interface{}) {
	current().write(ERROR, sprintf(msg, args), nil)
}

func init() {
	defaultLogger = New("deltacal")
	ConfigureFromEnv(defaultLogger)
}

// ConfigureFromEnv applies environment-based configuration to the logger.
// Environment variables:
//   - DELTACAL_LOG_LEVEL: DEBUG, INFO, WARN, ERROR
//   - DELTACAL_LOG_FORMAT: text, json
//   - DELTACAL_LOG_CALLER: any non-empty value enables caller info
//   - NO_COLOR: any non-empty value disables colors
func ConfigureFromEnv(l *Logger) {
	if levelStr := os.Getenv("DELTACAL_LOG_LEVEL"); levelStr != "" {
		l.SetLevel(ParseLevel(levelStr))
	}
	if formatStr := os.Getenv("DELTACAL_LOG_FORMAT"); formatStr != "" {
		l.SetFormat(ParseFormat(formatStr))
	}
	if os.Getenv("DELTACAL_LOG_CALLER") != "" {
		l.SetCaller(true)
	}
	if os.Getenv("NO_COLOR") != "" {
		l.SetColorize(false)
	}
}
