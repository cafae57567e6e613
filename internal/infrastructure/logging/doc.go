// Package logging provides structured logging for OnAir Core.
//
// It wraps the standard library log/slog with configuration-driven level
// filtering, output format selection (JSON or text), and default service
// fields attached to every record.
//
// Packages in this repository do not depend on this type directly; they
// accept a narrow Logger interface (Debug/Info/Warn/Error) that *Logger
// satisfies, keeping domain packages testable without log plumbing.
package logging
