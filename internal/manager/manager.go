// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package manager wires the registry, master table, scheduler, and
// dispatcher together behind the embedding API:
// New/Close/AddJob/PerformJob/RequestJob/QueueScheduledJobs/
// ExecuteQueuedJob, plus the DebugJob diagnostic.
package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/iondb-project/sensor-jobmanager/internal/dispatcher"
	"github.com/iondb-project/sensor-jobmanager/internal/kv"
	"github.com/iondb-project/sensor-jobmanager/internal/masterstore"
	"github.com/iondb-project/sensor-jobmanager/internal/registry"
	"github.com/iondb-project/sensor-jobmanager/internal/scheduler"
	"github.com/iondb-project/sensor-jobmanager/pkg/clock"
)

// Config configures a Manager. It is the Go home for sjm_init's
// maximum_name_size/maximum_json_tokens parameters, plus the store
// locations and use type the original left to ion_init_master_table.
type Config struct {
	MaxNameSize     int
	MaxJSONTokens   int
	UseType         int
	RegistryPath    string
	MasterTablePath string
	CacheMemory     int
}

// Manager is the job manager handle: an ordinary value the caller
// owns and may create more than one of (e.g. in tests). Its methods
// are not internally locked: per the cooperative single-threaded
// model, a host program must serialize its own calls into a Manager.
type Manager struct {
	cfg    Config
	kv     *kv.BoltStore
	master *masterstore.MasterStore
	reg    *registry.Registry
	engine *scheduler.Engine
	clock  *clock.Clock
	bucket string
}

// New opens (or creates, on first use) the registry's persistent
// stores, resolving the registry's bucket name via the master table:
// a hit reopens the recorded bucket, a miss creates one and records it
// — the Go home for sjm_init's ion_find_by_use_master_table /
// ion_master_table_create_dictionary branch.
func New(cfg Config) (*Manager, error) {
	master, err := masterstore.Open(cfg.MasterTablePath)
	if err != nil {
		return nil, err
	}

	bucket, found, err := master.Lookup(cfg.UseType)
	if err != nil {
		master.Close()
		return nil, err
	}
	if !found {
		bucket = fmt.Sprintf("use_type_%d", cfg.UseType)
		if err := master.Register(cfg.UseType, bucket); err != nil {
			master.Close()
			return nil, err
		}
	}

	store, err := kv.Open(cfg.RegistryPath, bucket)
	if err != nil {
		master.Close()
		return nil, err
	}

	reg := registry.Open(store, registry.Options{
		MaxNameSize: cfg.MaxNameSize,
		CacheMemory: cfg.CacheMemory,
	})
	clk := clock.New()

	return &Manager{
		cfg:    cfg,
		kv:     store,
		master: master,
		reg:    reg,
		engine: scheduler.NewEngine(reg, clk),
		clock:  clk,
		bucket: bucket,
	}, nil
}

// Close releases every resource the Manager owns, draining the
// execution queue without running its contents — the Go home for
// sjm_delete.
func (m *Manager) Close() error {
	m.engine.Queue().Drain()

	var firstErr error
	if err := m.kv.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.master.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// AddJob registers job under name, the Go home for sjm_add_job.
func (m *Manager) AddJob(name string, job registry.Job) error {
	return m.reg.Add(name, job)
}

// PerformJob looks up name and invokes its Func synchronously with
// params, writing any result to out. This is the Go home for
// sjm_perform_job.
func (m *Manager) PerformJob(name string, params []any, out *any) error {
	job, err := m.reg.Get(name)
	if err != nil {
		return err
	}
	job.Func(params, out)
	return nil
}

// RequestJob parses raw as a `[name, arg...]` JSON array (via
// internal/dispatcher) and performs the named job with the parsed
// arguments — the Go home for sjm_request_job.
func (m *Manager) RequestJob(raw []byte, out *any) error {
	name, params, err := dispatcher.Dispatch(raw, dispatcher.Options{MaxTokens: m.cfg.MaxJSONTokens})
	if err != nil {
		return err
	}
	return m.PerformJob(name, params, out)
}

// QueueScheduledJobs scans the registry and enqueues every job whose
// NeedsExecution predicate is currently true.
func (m *Manager) QueueScheduledJobs(ctx context.Context) error {
	return m.engine.QueueScheduledJobs(ctx)
}

// ExecuteQueuedJob runs the next queued job, if any.
func (m *Manager) ExecuteQueuedJob(ctx context.Context) error {
	return m.engine.ExecuteQueuedJob(ctx)
}

// Drive registers a gocron job on sched that scans and runs due jobs
// once per interval, delegating to the underlying scheduler.Engine.
func (m *Manager) Drive(sched gocron.Scheduler, interval time.Duration) (gocron.Job, error) {
	return m.engine.Drive(sched, interval)
}

// JobDebugInfo is the diagnostic snapshot DebugJob returns — the Go
// rendition of sjm_debug_job's printf dump, returned as data instead
// of written to stdout.
type JobDebugInfo struct {
	Name              string
	Registered        bool
	HasFunc           bool
	HasNeedsExecution bool
	LastExecutionTime time.Time
	LastScheduledTime time.Time
}

// DebugJob returns a snapshot of name's stored metadata, the
// supplemented Go equivalent of the original's sjm_debug_job.
func (m *Manager) DebugJob(name string) (JobDebugInfo, error) {
	job, err := m.reg.Get(name)
	if err != nil {
		return JobDebugInfo{}, err
	}
	return JobDebugInfo{
		Name:              name,
		Registered:        true,
		HasFunc:           job.Func != nil,
		HasNeedsExecution: job.NeedsExecution != nil,
		LastExecutionTime: job.LastExecution,
		LastScheduledTime: job.LastScheduled,
	}, nil
}
