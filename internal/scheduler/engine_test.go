// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iondb-project/sensor-jobmanager/internal/kv"
	"github.com/iondb-project/sensor-jobmanager/internal/registry"
	"github.com/iondb-project/sensor-jobmanager/internal/sjmerr"
	"github.com/iondb-project/sensor-jobmanager/pkg/clock"
)

func openTestEngine(t *testing.T) (*Engine, *registry.Registry, *clock.Clock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.db")
	store, err := kv.Open(path, "jobs")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := registry.Open(store, registry.Options{MaxNameSize: 32})
	clk := clock.New()
	return NewEngine(reg, clk), reg, clk
}

func alwaysActivate(job *registry.Job, base, now time.Time) bool { return true }

func neverActivate(job *registry.Job, base, now time.Time) bool { return false }

func TestQueueScheduledJobsEnqueuesDueJobs(t *testing.T) {
	engine, reg, _ := openTestEngine(t)

	ran := 0
	require.NoError(t, reg.Add("always", registry.Job{
		Func:           func(params []any, out *any) { ran++ },
		NeedsExecution: alwaysActivate,
	}))
	require.NoError(t, reg.Add("never", registry.Job{
		Func:           func(params []any, out *any) { ran++ },
		NeedsExecution: neverActivate,
	}))

	require.NoError(t, engine.QueueScheduledJobs(context.Background()))
	assert.Equal(t, 1, engine.Queue().Len())

	job, err := reg.Get("always")
	require.NoError(t, err)
	assert.False(t, job.LastScheduled.IsZero())
}

func TestExecuteQueuedJobRunsAndStamps(t *testing.T) {
	engine, reg, _ := openTestEngine(t)

	var ranWith []any
	require.NoError(t, reg.Add("always", registry.Job{
		Func:           func(params []any, out *any) { ranWith = params },
		NeedsExecution: alwaysActivate,
	}))

	require.NoError(t, engine.QueueScheduledJobs(context.Background()))
	require.NoError(t, engine.ExecuteQueuedJob(context.Background()))

	assert.Nil(t, ranWith)
	job, err := reg.Get("always")
	require.NoError(t, err)
	assert.False(t, job.LastExecution.IsZero())
}

func TestExecuteQueuedJobOnEmptyQueueIsNoop(t *testing.T) {
	engine, _, _ := openTestEngine(t)
	require.NoError(t, engine.ExecuteQueuedJob(context.Background()))
}

func TestQueueScheduledJobsCanDoubleQueueAcrossPasses(t *testing.T) {
	engine, reg, _ := openTestEngine(t)
	require.NoError(t, reg.Add("always", registry.Job{
		Func:           func(params []any, out *any) {},
		NeedsExecution: alwaysActivate,
	}))

	require.NoError(t, engine.QueueScheduledJobs(context.Background()))
	require.NoError(t, engine.QueueScheduledJobs(context.Background()))
	assert.Equal(t, 2, engine.Queue().Len())
}

// failOnNameStore wraps a real kv.Store and fails Update for one
// specific job name, letting a test force a registry.Update error
// partway through a QueueScheduledJobs scan without faking the whole
// store.
type failOnNameStore struct {
	kv.Store
	failName string
}

var errInjectedUpdateFailure = errors.New("injected update failure")

func (f *failOnNameStore) Update(key, value []byte) error {
	if strings.TrimRight(string(key), "\x00") == f.failName {
		return errInjectedUpdateFailure
	}
	return f.Store.Update(key, value)
}

// TestQueueScheduledJobsAbortsOnUpdateFailureMidScan confirms the
// abort contract documented on QueueScheduledJobs: registry.All()
// visits padded keys in lexicographic order, so "jobA" is enqueued and
// stamped, "jobB" is enqueued before its stamp fails, and "jobC" is
// never reached at all.
func TestQueueScheduledJobsAbortsOnUpdateFailureMidScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	raw, err := kv.Open(path, "jobs")
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	store := &failOnNameStore{Store: raw, failName: "jobB"}
	reg := registry.Open(store, registry.Options{MaxNameSize: 32})
	engine := NewEngine(reg, clock.New())

	job := registry.Job{Func: func(params []any, out *any) {}, NeedsExecution: alwaysActivate}
	require.NoError(t, reg.Add("jobA", job))
	require.NoError(t, reg.Add("jobB", job))
	require.NoError(t, reg.Add("jobC", job))

	err = engine.QueueScheduledJobs(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, sjmerr.ErrDictUpdate)

	assert.Equal(t, 2, engine.Queue().Len())
	name, _, ok := engine.Queue().Dequeue()
	require.True(t, ok)
	assert.Equal(t, "jobA", name)
}
