// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iondb-project/sensor-jobmanager/internal/registry"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, 0, q.Len())

	q.Enqueue("a", registry.Job{})
	q.Enqueue("b", registry.Job{})
	q.Enqueue("c", registry.Job{})
	assert.Equal(t, 3, q.Len())

	name, _, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", name)

	name, _, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", name)

	assert.Equal(t, 1, q.Len())
}

func TestQueueDequeueEmpty(t *testing.T) {
	q := NewQueue()
	_, _, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestQueueDrain(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a", registry.Job{})
	q.Enqueue("b", registry.Job{})
	q.Drain()

	assert.Equal(t, 0, q.Len())
	_, _, ok := q.Dequeue()
	assert.False(t, ok)
}
