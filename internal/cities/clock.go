package cities

import "sync/atomic"

// Clock is a monotonic logical clock. Every request the Store issues takes a
// ticket from it, and the tickets decide which of two overlapping results is
// newer.
//
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first ticket is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next ticket.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
