package ksched

import (
	"io"
	"os"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger used throughout this package: a
// logiface.Logger bound to stumpy's JSON event implementation. Passing a nil
// Logger to any constructor is equivalent to passing noopLogger(), never a
// panic.
type Logger = *logiface.Logger[*stumpy.Event]

// NewLogger builds a Logger writing newline-delimited JSON to w at the given
// minimum level.
func NewLogger(w io.Writer, level logiface.Level) Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	)
}

var (
	noopLoggerOnce sync.Once
	noopLoggerVal  Logger
)

// noopLogger returns a shared Logger with logging disabled, used whenever a
// Scheduler is constructed without WithLogger.
func noopLogger() Logger {
	noopLoggerOnce.Do(func() {
		noopLoggerVal = NewLogger(os.Stderr, logiface.LevelDisabled)
	})
	return noopLoggerVal
}
