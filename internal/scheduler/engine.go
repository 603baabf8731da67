// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/iondb-project/sensor-jobmanager/internal/registry"
	"github.com/iondb-project/sensor-jobmanager/internal/sjmerr"
	"github.com/iondb-project/sensor-jobmanager/pkg/clock"
)

// errNoMoreQueuedJobs mirrors SJM_ERROR_NO_MORE_QUEUED_JOBS: an
// internal-only signal from Dequeue that the queue was empty. It never
// escapes Engine — ExecuteQueuedJob treats it as a no-op, not an error.
var errNoMoreQueuedJobs = errors.New("scheduler: no more queued jobs")

// Engine drives the scan-and-enqueue / dequeue-and-run pair against a
// registry, a queue, and a clock. It holds no lock of its own: per the
// cooperative model, the host program must not call QueueScheduledJobs
// and ExecuteQueuedJob concurrently from different goroutines, the
// same assumption the original sjm_t makes about its single caller.
type Engine struct {
	registry *registry.Registry
	queue    *Queue
	clock    *clock.Clock
}

// NewEngine returns an Engine over reg, backed by a fresh empty queue.
func NewEngine(reg *registry.Registry, clk *clock.Clock) *Engine {
	return &Engine{registry: reg, queue: NewQueue(), clock: clk}
}

// Queue exposes the underlying execution queue, mainly for inspection
// in tests and diagnostics.
func (e *Engine) Queue() *Queue {
	return e.queue
}

// QueueScheduledJobs scans every registered job and enqueues the ones
// whose NeedsExecution predicate fires, stamping LastScheduled on each.
// A failed registry.Update aborts the scan immediately: jobs already
// enqueued in this pass stay queued, and a later pass may enqueue an
// already-queued job again — activation predicates are assumed
// idempotent under double-queueing, exactly as the original's
// sjm_queue_scheduled_jobs behaves on an update failure mid-scan.
func (e *Engine) QueueScheduledJobs(ctx context.Context) error {
	all, err := e.registry.All()
	if err != nil {
		return err
	}

	base := e.clock.Base()
	for _, named := range all {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := e.clock.Now()
		job := named.Job
		if !job.NeedsExecution(&job, base, now) {
			continue
		}

		e.queue.Enqueue(named.Name, job)

		job.LastScheduled = now
		if err := e.registry.Update(named.Name, job); err != nil {
			return fmt.Errorf("%w: %v", sjmerr.ErrDictUpdate, err)
		}
	}
	return nil
}

// ExecuteQueuedJob dequeues and synchronously runs at most one job. An
// empty queue is a no-op returning nil — the internal
// errNoMoreQueuedJobs sentinel never reaches the caller, mirroring
// SJM_ERROR_NO_MORE_QUEUED_JOBS being swallowed by
// sjm_execute_queued_job. The job body runs on the calling goroutine:
// no threading, no preemption, per the concurrency model.
func (e *Engine) ExecuteQueuedJob(ctx context.Context) error {
	name, job, err := e.dequeue()
	if errors.Is(err, errNoMoreQueuedJobs) {
		return nil
	}
	if err != nil {
		return err
	}

	job.Func(nil, nil)

	job.LastExecution = e.clock.Now()
	if err := e.registry.Update(name, job); err != nil {
		return fmt.Errorf("%w: %v", sjmerr.ErrDictUpdate, err)
	}
	return nil
}

// dequeue wraps Queue.Dequeue with the original's error-return shape
// so ExecuteQueuedJob can swallow the empty-queue case the same way
// sjm_execute_queued_job swallows SJM_ERROR_NO_MORE_QUEUED_JOBS.
func (e *Engine) dequeue() (string, registry.Job, error) {
	name, job, ok := e.queue.Dequeue()
	if !ok {
		return "", registry.Job{}, errNoMoreQueuedJobs
	}
	return name, job, nil
}
