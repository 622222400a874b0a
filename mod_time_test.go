package lightwave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestTimeModule(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	app := NewAppBuilder().UseModule(TimeModule{MaxDt: 100 * time.Millisecond, Clock: clock.Now}).Build()
	tm, ok := Resource[Time](app)
	require.True(t, ok)

	clock.Advance(16 * time.Millisecond)
	app.Step()
	assert.Equal(t, 16*time.Millisecond, tm.Dt)
	assert.InDelta(t, 0.016, tm.DtSeconds(), 1e-6)
	assert.Equal(t, uint64(1), tm.Frame)

	clock.Advance(2 * time.Second)
	app.Step()
	assert.Equal(t, 100*time.Millisecond, tm.Dt)
	assert.Equal(t, 2016*time.Millisecond, tm.Elapsed())
	assert.Equal(t, uint64(2), tm.Frame)

	// a second install keeps the first resource
	app.UseModules(TimeModule{})
	again, _ := Resource[Time](app)
	assert.Same(t, tm, again)
}
