package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// KVLogger adapts a sugared logger to the message plus key-value pairs
// interface used by third-party libraries such as the tick scheduler.
type KVLogger struct {
	// l is the underlying logger receiving the entries.
	l *zap.SugaredLogger
}

// NewKVLogger wraps l so that only entries at or above minLevel are written.
func NewKVLogger(l *zap.SugaredLogger, minLevel zapcore.Level) *KVLogger {
	return &KVLogger{
		l: l.WithOptions(WithLevel(minLevel)),
	}
}

// Debug writes a debug entry.
func (k *KVLogger) Debug(msg string, args ...any) { k.l.Debugw(msg, args...) }

// Info writes an information entry.
func (k *KVLogger) Info(msg string, args ...any) { k.l.Infow(msg, args...) }

// Warn writes a warning entry.
func (k *KVLogger) Warn(msg string, args ...any) { k.l.Warnw(msg, args...) }

// Error writes an error entry.
func (k *KVLogger) Error(msg string, args ...any) { k.l.Errorw(msg, args...) }
