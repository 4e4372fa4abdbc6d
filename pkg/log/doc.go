// Package log provides geyserd's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by Go's slog via
// a bridge handler that feeds our formatter/output pipeline, so every
// component produces the same text or JSON lines.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("engine"))
//	l.Info("session attached", log.SessionID("01h..."), log.Uint64("from_slot", 42))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level, text|json,
// console/file/null outputs).
//
// # Interop
//
// RedirectStdLog routes the standard library logger (Pebble) into a Logger.
package log
