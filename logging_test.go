package lightwave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedZap() (*ZapLogger, *observer.ObservedLogs) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core, logs := observer.New(level)
	return WrapZap(zap.New(core), level), logs
}

func TestZapLoggerLevels(t *testing.T) {
	z, logs := newObservedZap()

	z.Debugf("hidden %d", 1)
	z.Infof("info %d", 2)
	z.Warnf("warn")
	z.Errorf("error")
	assert.False(t, z.DebugEnabled())

	z.SetDebug(true)
	assert.True(t, z.DebugEnabled())
	z.Debugf("shown")

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, "info 2", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "shown", entries[3].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[3].Level)
}

func TestZapLoggerCritical(t *testing.T) {
	z, logs := newObservedZap()

	z.Criticalf("pool %q exhausted", "meshes")

	found := logs.FilterField(zap.Bool("critical", true)).All()
	require.Len(t, found, 1)
	assert.Equal(t, `pool "meshes" exhausted`, found[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, found[0].Level)
}

func TestDefaultLoggerDebugFlag(t *testing.T) {
	l := NewDefaultLogger("test", false)
	assert.False(t, l.DebugEnabled())
	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	assert.Equal(t, "[test] WARN: x=1", l.prefixf("WARN", "x=%d", 1))
	assert.Equal(t, "INFO: y", NewDefaultLogger("", false).prefixf("INFO", "y"))
}

func TestLoggingModule(t *testing.T) {
	app := NewAppBuilder().Build()
	_, isDefault := app.Logger().(*DefaultLogger)
	assert.False(t, isDefault)

	app.UseModules(LoggingModule{Prefix: "lw", Debug: true})
	l, ok := app.Logger().(*DefaultLogger)
	require.True(t, ok)
	assert.True(t, l.DebugEnabled())

	zapApp := NewAppBuilder().UseModule(LoggingModule{Zap: true}).Build()
	_, ok = zapApp.Logger().(*ZapLogger)
	assert.True(t, ok)
	assert.Len(t, zapApp.shutdown, 1)
}
