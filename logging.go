package lightwave

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
)

type Logger = core.Logger

type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(os.Stdout, "", flags),
		err:    log.New(os.Stderr, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) prefixf(level string, format string, args ...any) string {
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s: %s", l.prefix, level, fmt.Sprintf(format, args...))
	}
	return fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.out.Print(l.prefixf("DEBUG", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.prefixf("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.prefixf("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.prefixf("ERROR", format, args...))
}

func (l *DefaultLogger) Criticalf(format string, args ...any) {
	l.err.Print(l.prefixf("CRITICAL", format, args...))
}

// LoggingModule installs a logger as a resource. With Zap set the logger is
// a ZapLogger writing to stderr.
type LoggingModule struct {
	Prefix string
	Debug  bool
	Zap    bool
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	if m.Zap {
		z, err := NewZapLogger(m.Prefix, m.Debug)
		if err == nil {
			app.addResources(z)
			app.OnShutdown(z.Sync)
			return
		}
		fmt.Fprintf(os.Stderr, "zap logger unavailable, using default: %v\n", err)
	}
	app.addResources(NewDefaultLogger(m.Prefix, m.Debug))
}

func NewNopLogger() Logger { return core.NewNopLogger() }

// Logger returns the first Logger resource if present, otherwise a no-op logger.
// Never returns nil.
func (app *App) Logger() Logger {
	if app == nil {
		return NewNopLogger()
	}
	for _, r := range app.resources {
		if l, ok := r.(Logger); ok {
			return l
		}
	}
	return NewNopLogger()
}
