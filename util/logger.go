package util

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	globalLogger Logger = NewDefaultLogger(LevelInfo)
	globalLock   sync.RWMutex
)

func SetLogger(log Logger) {
	if log == nil {
		panic("Can't set the logger to nil")
	}

	globalLock.Lock()
	globalLogger = log
	globalLock.Unlock()
}

func current() Logger {
	globalLock.RLock()
	defer globalLock.RUnlock()
	return globalLogger
}

func Printf(format string, a ...any) {
	current().Printf(format, a...)
}

func Infof(format string, a ...any) {
	current().Infof(format, a...)
}

func Debugf(format string, a ...any) {
	current().Debugf(format, a...)
}

func Warnf(format string, a ...any) {
	current().Warnf(format, a...)
}

func Errorf(format string, a ...any) error {
	return current().Errorf(format, a...)
}

type Logger interface {
	// Printf - Straight print passthrough
	Printf(format string, a ...any)
	// Infof - Info level print
	Infof(format string, a ...any)
	// Debugf - Debug level print, stream frames and retry scheduling
	Debugf(format string, a ...any)
	// Warnf - Warn level print, something that might be a problem
	Warnf(format string, a ...any)
	// Errorf - Error level print - returns an error
	Errorf(format string, a ...any) error
}

// DefaultLogger writes through the standard log package and drops
// anything below its level.
type DefaultLogger struct {
	Level Level
}

func NewDefaultLogger(level Level) *DefaultLogger {
	return &DefaultLogger{Level: level}
}

func (l *DefaultLogger) output(level Level, prefix, format string, a ...any) {
	if level < l.Level {
		return
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	log.Printf("shutterdeck "+prefix+format, a...)
}

func (l *DefaultLogger) Printf(format string, a ...any) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	log.Printf(format, a...)
}

func (l *DefaultLogger) Debugf(format string, a ...any) {
	l.output(LevelDebug, "DEBUG: ", format, a...)
}

func (l *DefaultLogger) Infof(format string, a ...any) {
	l.output(LevelInfo, "INFO: ", format, a...)
}

func (l *DefaultLogger) Warnf(format string, a ...any) {
	l.output(LevelWarn, "WARN: ", format, a...)
}

func (l *DefaultLogger) Errorf(format string, a ...any) error {
	l.output(LevelError, "ERROR: ", format, a...)
	return fmt.Errorf(strings.TrimSuffix(format, "\n"), a...)
}

// ParseLevel maps a config/flag string onto a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type DiscardLogger struct{}

func (DiscardLogger) Printf(_ string, _ ...any) {

}

func (DiscardLogger) Infof(_ string, _ ...any) {

}

func (DiscardLogger) Debugf(_ string, _ ...any) {

}

func (DiscardLogger) Warnf(_ string, _ ...any) {

}

func (DiscardLogger) Errorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}
