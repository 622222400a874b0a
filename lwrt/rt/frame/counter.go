package frame

import "sync/atomic"

// Counter reserves slots in a fixed capacity frame array. Values may run past
// the array capacity; readers clamp.
type Counter interface {
	// Reserve adds n and returns the value before the add.
	Reserve(n int) int
	Load() int
	Store(v int)
}

// NewCounter returns an atomic counter for frames populated from several
// goroutines and a plain one otherwise.
func NewCounter(threaded bool) Counter {
	if threaded {
		return &atomicCounter{}
	}
	return &plainCounter{}
}

type atomicCounter struct{ v atomic.Int64 }

func (c *atomicCounter) Reserve(n int) int { return int(c.v.Add(int64(n))) - n }
func (c *atomicCounter) Load() int         { return int(c.v.Load()) }
func (c *atomicCounter) Store(v int)       { c.v.Store(int64(v)) }

type plainCounter struct{ v int }

func (c *plainCounter) Reserve(n int) int {
	old := c.v
	c.v += n
	return old
}
func (c *plainCounter) Load() int   { return c.v }
func (c *plainCounter) Store(v int) { c.v = v }

// clamp caps c at limit and returns the result.
func clamp(c Counter, limit int) int {
	n := c.Load()
	if n > limit {
		c.Store(limit)
		return limit
	}
	return n
}
