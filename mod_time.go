package lightwave

import (
	"time"
)

type Time struct {
	Start time.Time
	Time  time.Time
	Dt    time.Duration
	Frame uint64
	// MaxDt clamps Dt after stalls such as window drags. Zero disables it.
	MaxDt time.Duration

	now func() time.Time
}

// DtSeconds returns the last frame delta in seconds.
func (t *Time) DtSeconds() float32 { return float32(t.Dt.Seconds()) }

// Elapsed returns the time since the module was installed.
func (t *Time) Elapsed() time.Duration { return t.Time.Sub(t.Start) }

func (t *Time) tick() {
	now := t.now()
	t.Dt = now.Sub(t.Time)
	if t.MaxDt > 0 && t.Dt > t.MaxDt {
		t.Dt = t.MaxDt
	}
	t.Time = now
	t.Frame++
}

type TimeModule struct {
	MaxDt time.Duration
	// Clock overrides time.Now.
	Clock func() time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	if _, ok := Resource[Time](app); ok {
		return
	}
	now := mod.Clock
	if now == nil {
		now = time.Now
	}
	start := now()
	cmd.AddResources(&Time{
		Start: start,
		Time:  start,
		MaxDt: mod.MaxDt,
		now:   now,
	})
	app.UseSystem(
		System(timeSystem).
			InStage(Prelude).
			RunAlways(),
	)
}

func timeSystem(t *Time) {
	t.tick()
}
