// Package log is the levelled logger shared by lenconv's commands and bridge.
// It wraps a package-level [slog.Logger] whose minimum level can be changed at
// runtime with [SetLogLevel].
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type (
	Attr    = slog.Attr
	Handler = slog.Handler
)

var DiscardHandler = slog.DiscardHandler

// Logger is the Println/Printf logger expected by the MQTT client.
type Logger interface {
	Println(v ...any)
	Printf(format string, v ...any)
}

var (
	level   = new(slog.LevelVar)
	mu      sync.RWMutex
	current = newLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	with    []any
)

func newLogger(h Handler) *slog.Logger {
	l := slog.New(h)
	if len(with) > 0 {
		l = l.With(with...)
	}
	return l
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetLogLevel sets the minimum level of events that are logged.
// [LevelDisabled] turns logging off.
func SetLogLevel(l Level) {
	level.Set(slog.Level(l))
}

// LogLevel returns the current minimum level.
func LogLevel() Level {
	return Level(level.Level())
}

// With adds the given attributes to every following event.
func With(args ...any) {
	mu.Lock()
	defer mu.Unlock()
	with = append(with, args...)
	current = current.With(args...)
}

// SetHandler replaces the handler of the default logger. Level filtering is
// left to h.
func SetHandler(h Handler) {
	mu.Lock()
	defer mu.Unlock()
	current = newLogger(h)
}

// SetOutput sends text formatted events to w.
func SetOutput(w io.Writer) {
	SetTextHandler(w)
}

func SetTextHandler(w io.Writer) {
	SetHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func SetJSONHandler(w io.Writer) {
	SetHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

// WarnError logs msg at warn level with err as its cause.
func WarnError(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"cause", err}, args...)
	}
	logger().Warn(msg, args...)
}

// Error logs msg at error level with err as its cause.
func Error(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"cause", err}, args...)
	}
	logger().Error(msg, args...)
}

func Fatal(msg string, err error, args ...any) {
	Error(msg, err, args...)
	os.Exit(1)
}

type levelLogger Level

func (l levelLogger) Println(v ...any) {
	msg := strings.TrimSuffix(fmt.Sprintln(v...), "\n")
	logger().Log(context.Background(), slog.Level(l), msg)
}

func (l levelLogger) Printf(format string, v ...any) {
	logger().Log(context.Background(), slog.Level(l), fmt.Sprintf(format, v...))
}

func DebugLogger() Logger { return levelLogger(LevelDebug) }
func WarnLogger() Logger  { return levelLogger(LevelWarn) }
func ErrorLogger() Logger { return levelLogger(LevelError) }
