// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured logger shared by every
// flowgate component, plus an optional syslog fan-out sink.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level mirrors charmbracelet/log's levels without leaking the dependency
// into every call site's imports.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config controls how a Logger is constructed.
type Config struct {
	Level        Level
	ReportCaller bool
	Prefix       string
	Output       io.Writer
	Syslog       SyslogConfig
}

// DefaultConfig returns the logging defaults used by every daemon and CLI
// entry point that doesn't need anything fancier.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Prefix: "flowgate",
		Output: os.Stderr,
		Syslog: DefaultSyslogConfig(),
	}
}

// Logger is the structured, leveled logger passed by reference into every
// long-lived component (pipeline, control-plane store, ingress adapters).
type Logger struct {
	inner *charmlog.Logger
}

// New builds a Logger from cfg. If cfg.Syslog is enabled, log lines are
// additionally forwarded to the configured syslog collector; a failure to
// reach it never blocks or panics the caller, it only disables forwarding.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.Syslog.Enabled {
		if w, err := NewSyslogWriter(cfg.Syslog); err == nil {
			out = io.MultiWriter(out, w)
		}
	}

	inner := charmlog.NewWithOptions(out, charmlog.Options{
		Level:        toCharmLevel(cfg.Level),
		ReportCaller: cfg.ReportCaller,
		Prefix:       cfg.Prefix,
	})

	return &Logger{inner: inner}
}

func toCharmLevel(l Level) charmlog.Level {
	switch l {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.inner.Error(msg, kv...) }

// With returns a Logger that always includes the given key-value pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...)}
}
