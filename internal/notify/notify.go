// Package notify carries user-facing messages out of the state layer.
// Notifications are fire-and-forget: nothing depends on their delivery.
package notify

import (
	"log/slog"
	"sync"
)

// Level is the severity of a notification.
type Level string

const (
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notifier receives user-facing messages.
type Notifier interface {
	Error(msg string)
	Success(msg string)
}

// Notification is one recorded message.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Logger writes notifications to slog.
type Logger struct {
	logger *slog.Logger
}

// NewLogger returns a Logger writing to l, or to the default logger when l is nil.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{logger: l}
}

func (l *Logger) Error(msg string) {
	l.logger.Warn("Notification", "level", LevelError, "message", msg)
}

func (l *Logger) Success(msg string) {
	l.logger.Info("Notification", "level", LevelSuccess, "message", msg)
}

// Recorder keeps notifications until they are drained.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

func (r *Recorder) Error(msg string) {
	r.add(LevelError, msg)
}

func (r *Recorder) Success(msg string) {
	r.add(LevelSuccess, msg)
}

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, Notification{Level: level, Message: msg})
}

// Drain returns the recorded notifications and forgets them.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.list
	r.list = nil
	return list
}

// Multi forwards every notification to each notifier in order.
type Multi []Notifier

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

// Discard drops every notification.
var Discard Notifier = Multi(nil)
