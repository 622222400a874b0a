package core

// Logger is the logging sink shared by the renderer packages.
// Implementations must be safe for concurrent use; frame population may log from worker goroutines.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Criticalf(format string, args ...any)
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool                   { return false }
func (nopLogger) SetDebug(enabled bool)                {}
func (nopLogger) Debugf(format string, args ...any)    {}
func (nopLogger) Infof(format string, args ...any)     {}
func (nopLogger) Warnf(format string, args ...any)     {}
func (nopLogger) Errorf(format string, args ...any)    {}
func (nopLogger) Criticalf(format string, args ...any) {}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
