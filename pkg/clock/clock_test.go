// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowDefaultsToWallClock(t *testing.T) {
	c := New()
	before := time.Now()
	now := c.Now()
	after := time.Now()

	require.False(t, now.Before(before))
	require.False(t, now.After(after))
}

func TestSetNowPins(t *testing.T) {
	c := New()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetNow(fixed)

	assert.True(t, fixed.Equal(c.Now()))
	assert.True(t, fixed.Equal(c.Now()))

	c.SetNow(time.Time{})
	assert.False(t, c.Now().Equal(fixed))
}

func TestBaseAndRelative(t *testing.T) {
	c := New()
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetBase(epoch)
	c.SetNow(epoch.Add(5 * time.Second))

	assert.True(t, epoch.Equal(c.Base()))
	assert.Equal(t, 5*time.Second, c.Relative())
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			c.SetNow(time.Unix(int64(i), 0))
		}
		close(done)
	}()

	for i := 0; i < 1000; i++ {
		_ = c.Now()
	}
	<-done
}
