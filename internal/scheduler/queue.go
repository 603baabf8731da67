// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler implements the execution queue and the two
// scheduling operations of C4: scanning the registry for jobs that are
// due, and running the next due job.
package scheduler

import "github.com/iondb-project/sensor-jobmanager/internal/registry"

// queueNode is one entry of the doubly linked FIFO. Kept as an
// explicit head/tail linked list — mirroring the original's
// sjm_queue_node_t — rather than wrapped in container/list, matching
// this repo's preference for visible control flow over a generic
// container for the one list the scheduler actually needs.
type queueNode struct {
	name string
	job  registry.Job
	prev *queueNode
	next *queueNode
}

// Queue is the scheduler's transient execution FIFO. It is not safe
// for concurrent use, matching the cooperative single-threaded model
// the whole package assumes.
type Queue struct {
	head *queueNode
	tail *queueNode
	len  int
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends {name, job} to the back of the queue.
func (q *Queue) Enqueue(name string, job registry.Job) {
	node := &queueNode{name: name, job: job}
	if q.tail == nil {
		q.head = node
		q.tail = node
		q.len = 1
		return
	}
	node.prev = q.tail
	q.tail.next = node
	q.tail = node
	q.len++
}

// Dequeue removes and returns the job at the front of the queue. ok is
// false if the queue is empty.
func (q *Queue) Dequeue() (name string, job registry.Job, ok bool) {
	if q.head == nil {
		return "", registry.Job{}, false
	}
	node := q.head
	q.head = node.next
	if q.head != nil {
		q.head.prev = nil
	} else {
		q.tail = nil
	}
	q.len--
	return node.name, node.job, true
}

// Len returns the number of jobs currently queued.
func (q *Queue) Len() int {
	return q.len
}

// Drain empties the queue without executing any of its jobs, mirroring
// sjm_delete's queue teardown loop.
func (q *Queue) Drain() {
	q.head = nil
	q.tail = nil
	q.len = 0
}
