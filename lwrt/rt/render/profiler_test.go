package render

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfilerScopes(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 2 * time.Millisecond}
	p := NewProfiler()
	p.now = clock.Now

	p.BeginScope("apply")
	p.EndScope("apply")
	p.BeginScope("render")
	p.EndScope("render")
	p.BeginScope("apply")
	p.EndScope("apply")

	assert.Equal(t, 2*time.Millisecond, p.Scope("apply"))
	assert.Equal(t, 2*time.Millisecond, p.Average("apply"))
	assert.Zero(t, p.Scope("missing"))

	p.EndScope("render")
	assert.Equal(t, 2*time.Millisecond, p.Scope("render"), "an unmatched EndScope is ignored")

	p.SetCount("models", 3)
	p.SetCount("lights", 1)
	s := p.String()
	assert.Contains(t, s, fmt.Sprintf("%-15s: 2.00 ms", "apply"))
	assert.Less(t, strings.Index(s, "apply"), strings.Index(s, "render"))
	assert.Less(t, strings.Index(s, "lights"), strings.Index(s, "models"))

	p.Reset()
	assert.Zero(t, p.Scope("apply"))
	assert.Zero(t, p.Average("apply"))
	assert.Contains(t, p.String(), "render")
}
