// Package logger is the edit pipeline's log sink. Classification, key
// rotation, validation, location and application all report through the
// package-level functions; entries go to a log file and, when enabled, to
// the console. Before Init is called every call is a silent no-op, which
// keeps library use of the pipeline quiet by default.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level 日志级别
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Field 结构化日志字段
type Field struct {
	Key   string
	Value any
}

// String builds a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int builds an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Float64 builds a float field. Confidence values and cooldown seconds
// come through here.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool builds a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Err builds the conventional error field. A nil error renders as <nil>.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Config 日志配置
type Config struct {
	LogFilePath   string // 日志文件路径，默认 latex-editor.log
	Level         Level  // 最低输出级别
	EnableConsole bool   // 是否同时输出到标准输出
}

const defaultLogFile = "latex-editor.log"

// sink owns the open log file and serializes writes.
type sink struct {
	mu    sync.Mutex
	level Level
	file  *os.File
	out   []io.Writer
}

func newSink(config *Config) (*sink, error) {
	if config == nil {
		config = &Config{LogFilePath: defaultLogFile, Level: LevelInfo}
	}
	path := config.LogFilePath
	if path == "" {
		path = defaultLogFile
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	s := &sink{level: config.Level, file: file, out: []io.Writer{file}}
	if config.EnableConsole {
		s.out = append(s.out, os.Stdout)
	}
	return s, nil
}

func (s *sink) log(level Level, msg string, err error, fields []Field) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level || s.file == nil {
		return
	}

	entry := formatEntry(level, msg, err, fields)
	for _, w := range s.out {
		w.Write([]byte(entry))
	}
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// formatEntry renders one line: timestamp, bracketed level, message, then
// key=value fields. String values containing spaces are quoted so lines
// stay machine-splittable.
func formatEntry(level Level, msg string, err error, fields []Field) string {
	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	sb.WriteString(msg)

	if err != nil {
		fields = append([]Field{Err(err)}, fields...)
	}
	for _, f := range fields {
		sb.WriteString(" ")
		sb.WriteString(f.Key)
		sb.WriteString("=")
		sb.WriteString(formatValue(f.Value))
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatValue(v any) string {
	if s, ok := v.(string); ok && strings.ContainsAny(s, " \t") {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

var (
	globalMu sync.RWMutex
	global   *sink
)

// Init opens the global log sink, replacing any previous one.
func Init(config *Config) error {
	s, err := newSink(config)
	if err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		global.close()
	}
	global = s
	return nil
}

// Close flushes and closes the global sink. Logging calls after Close are
// no-ops again.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		return nil
	}
	err := global.close()
	global = nil
	return err
}

func active() *sink {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Debug logs pipeline detail: located spans, parsed intents.
func Debug(msg string, fields ...Field) {
	if s := active(); s != nil {
		s.log(LevelDebug, msg, nil, fields)
	}
}

// Info logs normal progress: edits applied, pool initialized.
func Info(msg string, fields ...Field) {
	if s := active(); s != nil {
		s.log(LevelInfo, msg, nil, fields)
	}
}

// Warn logs degraded paths: fallback classification, cooling key slots.
func Warn(msg string, fields ...Field) {
	if s := active(); s != nil {
		s.log(LevelWarn, msg, nil, fields)
	}
}

// Error logs failures with their cause.
func Error(msg string, err error, fields ...Field) {
	if s := active(); s != nil {
		s.log(LevelError, msg, err, fields)
	}
}
