// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/iondb-project/sensor-jobmanager/pkg/log"
)

// Drive registers a gocron job that calls QueueScheduledJobs followed
// by ExecuteQueuedJob once per interval. This is purely a convenience
// driver around the two operations above, in the same shape the
// teacher's taskManager.Start registers one gocron.NewJob per
// background concern: errors are logged and the tick continues rather
// than aborting the gocron scheduler, so a single bad tick does not
// stop the next one from running.
//
// Drive does not start sched — call sched.Start() once every tick job
// of interest has been registered, matching taskManager.Start's own
// sequencing.
func (e *Engine) Drive(sched gocron.Scheduler, interval time.Duration) (gocron.Job, error) {
	return sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx := context.Background()
			if err := e.QueueScheduledJobs(ctx); err != nil {
				log.Errorf("scheduler tick: QueueScheduledJobs failed: %v", err)
			}
			if err := e.ExecuteQueuedJob(ctx); err != nil {
				log.Errorf("scheduler tick: ExecuteQueuedJob failed: %v", err)
			}
		}),
	)
}
