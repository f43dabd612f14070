// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Apex Markets

// Package logger provides a thin wrapper around zerolog.Logger with the
// convenience constructors and context helpers used throughout the
// settingsync library.
//
// The Logger type embeds zerolog.Logger so the full zerolog API (Debug,
// Info, Warn, Error, etc.) is available directly on *Logger. Components
// receive a *Logger at construction time and derive child loggers with
// component-specific fields; context-scoped loggers are obtained via
// FromContext.
package logger

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a thin wrapper around zerolog.Logger. Embedding exposes the
// upstream API while leaving room for library-specific helpers.
type Logger struct {
	zerolog.Logger
}

// NewLogger constructs a *Logger for the given component label (e.g.
// "engine", "queue", "telemetry").
//
// The logger emits JSON to os.Stdout with:
//   - a "component" field set to component, for filtering;
//   - a "ts" timestamp on every entry;
//   - a "func" caller field carrying the fully-qualified function name.
func NewLogger(component string) *Logger {
	return NewLoggerTo(component, os.Stdout)
}

// NewLoggerTo is NewLogger with an explicit output writer. Host
// applications embedding the library use it to route logs into their own
// sink.
func NewLoggerTo(component string, w io.Writer) *Logger {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"

	l := zerolog.New(w).With().
		Str("component", component).
		Timestamp().
		Caller().
		Logger()

	return &Logger{l}
}

// Nop returns a *Logger that discards all output. Intended for tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// WithComponent returns a child logger that inherits all fields of the
// receiver and overrides the "component" field.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.With().Str("component", component).Logger()}
}

// FromContext extracts the zerolog.Logger stored in ctx by zerolog's
// log.Ctx helper. If no logger has been attached, zerolog returns its
// global logger, so the result is never nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}

// WithContext attaches l to ctx so downstream calls can recover it via
// FromContext.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}
