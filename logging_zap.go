package lightwave

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap logger to Logger. Critical messages are logged at
// error level with critical=true.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

func NewZapLogger(name string, debug bool) (*ZapLogger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.Development = false
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	if name != "" {
		l = l.Named(name)
	}
	return WrapZap(l, level), nil
}

// WrapZap adapts l. level must be the level l's core was built with for
// SetDebug to take effect.
func WrapZap(l *zap.Logger, level zap.AtomicLevel) *ZapLogger {
	return &ZapLogger{sugar: l.Sugar(), level: level}
}

func (z *ZapLogger) DebugEnabled() bool { return z.level.Enabled(zapcore.DebugLevel) }

func (z *ZapLogger) SetDebug(enabled bool) {
	if enabled {
		z.level.SetLevel(zapcore.DebugLevel)
	} else {
		z.level.SetLevel(zapcore.InfoLevel)
	}
}

func (z *ZapLogger) Debugf(format string, args ...any) { z.sugar.Debugf(format, args...) }
func (z *ZapLogger) Infof(format string, args ...any)  { z.sugar.Infof(format, args...) }
func (z *ZapLogger) Warnf(format string, args ...any)  { z.sugar.Warnf(format, args...) }
func (z *ZapLogger) Errorf(format string, args ...any) { z.sugar.Errorf(format, args...) }

func (z *ZapLogger) Criticalf(format string, args ...any) {
	z.sugar.Errorw(fmt.Sprintf(format, args...), "critical", true)
}

func (z *ZapLogger) Sync() { _ = z.sugar.Sync() }
