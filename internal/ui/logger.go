// Package ui provides the operator-facing side of terminal-setup: leveled,
// coloured log output, confirmation prompts and report styling.
package ui

// Logger provides leveled logging for installer steps.
// Implementations must accept alternating key-value pairs after the message.
type Logger interface {
	// Debug logs trace output such as executed commands.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs progress messages.
	Info(msg string, keysAndValues ...interface{})

	// Success logs the successful completion of a step.
	Success(msg string, keysAndValues ...interface{})

	// Warn logs recoverable problems.
	Warn(msg string, keysAndValues ...interface{})

	// Error logs failures.
	Error(msg string, keysAndValues ...interface{})
}

// nopLogger is a Logger implementation that does nothing.
type nopLogger struct{}

func (nopLogger) Debug(msg string, keysAndValues ...interface{})   {}
func (nopLogger) Info(msg string, keysAndValues ...interface{})    {}
func (nopLogger) Success(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})    {}
func (nopLogger) Error(msg string, keysAndValues ...interface{})   {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
