package render

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type profileScope struct {
	name  string
	start time.Time
	last  time.Duration
	total time.Duration
	calls int
}

// Profiler collects CPU timings of the driver side of a frame and a set of
// named counters. It is used from the driver goroutine only.
type Profiler struct {
	scopes []*profileScope
	counts map[string]int
	now    func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		counts: make(map[string]int),
		now:    time.Now,
	}
}

func (p *Profiler) scope(name string) *profileScope {
	for _, s := range p.scopes {
		if s.name == name {
			return s
		}
	}
	s := &profileScope{name: name}
	p.scopes = append(p.scopes, s)
	return s
}

func (p *Profiler) BeginScope(name string) {
	p.scope(name).start = p.now()
}

func (p *Profiler) EndScope(name string) {
	s := p.scope(name)
	if s.start.IsZero() {
		return
	}
	s.last = p.now().Sub(s.start)
	s.total += s.last
	s.calls++
	s.start = time.Time{}
}

// Scope returns the last measured duration of name.
func (p *Profiler) Scope(name string) time.Duration {
	for _, s := range p.scopes {
		if s.name == name {
			return s.last
		}
	}
	return 0
}

// Average returns the mean duration of name since the last Reset.
func (p *Profiler) Average(name string) time.Duration {
	for _, s := range p.scopes {
		if s.name == name && s.calls > 0 {
			return s.total / time.Duration(s.calls)
		}
	}
	return 0
}

func (p *Profiler) SetCount(name string, count int) { p.counts[name] = count }
func (p *Profiler) Count(name string) int           { return p.counts[name] }

// Reset clears the accumulated timings. Scope order is kept.
func (p *Profiler) Reset() {
	for _, s := range p.scopes {
		s.last, s.total, s.calls = 0, 0, 0
	}
}

func (p *Profiler) String() string {
	var sb strings.Builder
	sb.WriteString("Timings (CPU):\n")
	for _, s := range p.scopes {
		fmt.Fprintf(&sb, "  %-15s: %.2f ms\n", s.name, float64(s.last.Microseconds())/1000.0)
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-15s: %d\n", k, p.counts[k])
	}
	return sb.String()
}
