// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package clock provides the millisecond clock the scheduler reasons
// about time with: a monotonic reading of "now," an adjustable base
// ("epoch") that activation predicates can measure elapsed time
// against, and a diagnostic override for tests. It is the Go
// rendition of the embedded millisec.c timer: on a hosted system there
// is no ISR to synchronize with, so the override is just an
// atomically-stored offset instead of an interrupt-guarded counter.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock is safe for concurrent use. The zero value reads the real
// wall clock; SetNow pins it to a fixed instant for tests.
type Clock struct {
	// overrideNano holds a UnixNano timestamp when non-zero, and
	// forces Now() to return it instead of time.Now(). Read/written
	// with sync/atomic so it is safe without a mutex on the hot path.
	overrideNano atomic.Int64

	// baseNano is the epoch Relative() measures against.
	baseNano atomic.Int64
}

// New returns a Clock using the real wall clock with a base of the
// zero time (the Unix epoch), matching millisec.c's default of "the
// standard UNIX epoch" on hosted platforms.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time, or the time set by SetNow if one was
// set.
func (c *Clock) Now() time.Time {
	if n := c.overrideNano.Load(); n != 0 {
		return time.Unix(0, n)
	}
	return time.Now()
}

// SetNow pins Now() to report t until the next SetNow call. A zero
// time.Time reverts to reading the real wall clock. This is a
// diagnostic/test affordance only.
func (c *Clock) SetNow(t time.Time) {
	if t.IsZero() {
		c.overrideNano.Store(0)
		return
	}
	c.overrideNano.Store(t.UnixNano())
}

// Base returns the clock's epoch, consulted by activation predicates
// to reason about "elapsed since the scheduler started."
func (c *Clock) Base() time.Time {
	return time.Unix(0, c.baseNano.Load())
}

// SetBase changes the epoch returned by Base() and used by Relative().
// It does not affect Now().
func (c *Clock) SetBase(t time.Time) {
	c.baseNano.Store(t.UnixNano())
}

// Relative returns the time elapsed since Base().
func (c *Clock) Relative() time.Duration {
	return c.Now().Sub(c.Base())
}
