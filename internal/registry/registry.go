// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry implements the persistent job registry (C3): a
// name-keyed table of job metadata backed by an internal/kv.Store, with
// small-cache-fronted reads.
//
// A Job's callable parts — Func and NeedsExecution — are ordinary Go
// function values and cannot be marshaled into the key-value store the
// way the embedded original's raw function pointers rode along inside
// its in-memory dictionary record. Registry instead persists only the
// record's timestamps (LastExecution, LastScheduled) and keeps the
// callable parts in an in-process table, supplied by the host program
// at Add time. Reopening a registry whose store already has a record
// for a name the host has not yet re-registered this process is
// reported as sjmerr.ErrDictGet, not silently treated as missing — the
// record survived the restart, the callable did not, and callers need
// to know which case they are in.
package registry

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iondb-project/sensor-jobmanager/internal/kv"
	"github.com/iondb-project/sensor-jobmanager/internal/sjmerr"
)

// JobFunc is a job's body. params is nil when invoked from the
// scheduler (ExecuteQueuedJob); out is the caller's return slot and may
// be nil when the caller does not want a result.
type JobFunc func(params []any, out *any)

// ActivationFunc decides whether a job is due to run, given the
// scheduler's epoch (base) and the current time (now).
type ActivationFunc func(job *Job, base, now time.Time) bool

// Job is one registered job: its callable parts plus the bookkeeping
// timestamps the scheduler reads and writes.
type Job struct {
	Func           JobFunc
	NeedsExecution ActivationFunc
	LastExecution  time.Time
	LastScheduled  time.Time
}

// record is the persisted half of a Job — the part that survives a
// restart.
type record struct {
	LastExecution time.Time
	LastScheduled time.Time
}

// Registry is the name-keyed job table. It is not safe for concurrent
// use beyond what its internal mutexes (one guarding only the
// in-process callable table, one inside the cache) provide; per the single-threaded
// cooperative model, callers serialize their own access to Add/Get/
// Update/Remove the same way the original's sjm_t assumed a single
// caller.
type Registry struct {
	store       kv.Store
	maxNameSize int

	mu       sync.Mutex
	callable map[string]callablePair
	cache    *recordCache
}

type callablePair struct {
	fn   JobFunc
	pred ActivationFunc
}

// recordCacheTTL bounds how long a cached record may go unrefreshed;
// Update/Remove invalidate explicitly, so this is only a backstop
// against the record going stale under a reader that never writes.
const recordCacheTTL = 10 * time.Minute

// Options configures a Registry.
type Options struct {
	// MaxNameSize bounds job names; names of length >= MaxNameSize are
	// rejected rather than truncated (see the package doc and
	// DESIGN.md for why this departs from the original's strcpy
	// truncation).
	MaxNameSize int

	// CacheMemory bounds the fronting LRU, in bytes of an estimated
	// per-record memory budget (see recordEntrySize). Zero disables
	// caching.
	CacheMemory int
}

// Open wraps store in a Registry using opts.
func Open(store kv.Store, opts Options) *Registry {
	var cache *recordCache
	if opts.CacheMemory > 0 {
		cache = newRecordCache(opts.CacheMemory)
	}
	return &Registry{
		store:       store,
		maxNameSize: opts.MaxNameSize,
		callable:    make(map[string]callablePair),
		cache:       cache,
	}
}

// padKey validates and zero-pads name to the registry's fixed key
// width, matching the original's fixed-size buffer key layout (see
// jobmanager.c's sjm_add_job/sjm_perform_job buffer loop) without its
// silent truncation on overflow.
func padKey(name string, maxNameSize int) ([]byte, error) {
	if len(name) == 0 || len(name) >= maxNameSize {
		return nil, fmt.Errorf("%w: name %q has length %d, must be in [1, %d)", sjmerr.ErrAddJob, name, len(name), maxNameSize)
	}
	buf := make([]byte, maxNameSize)
	copy(buf, name)
	return buf, nil
}

// Add registers job under name. It returns sjmerr.ErrDuplicateKey
// (wrapping sjmerr.ErrAddJob) if name is already registered, or
// sjmerr.ErrAddJob if name is empty or too long.
func (r *Registry) Add(name string, job Job) error {
	key, err := padKey(name, r.maxNameSize)
	if err != nil {
		return err
	}

	rec := record{LastExecution: job.LastExecution, LastScheduled: job.LastScheduled}
	value, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", sjmerr.ErrAddJob, err)
	}

	if err := r.store.Insert(key, value); err != nil {
		if errors.Is(err, sjmerr.ErrDuplicateKey) {
			return fmt.Errorf("%w: %w", sjmerr.ErrAddJob, err)
		}
		return err
	}

	r.mu.Lock()
	r.callable[name] = callablePair{fn: job.Func, pred: job.NeedsExecution}
	r.mu.Unlock()
	if r.cache != nil {
		r.cache.put(name, rec, recordCacheTTL)
	}
	return nil
}

// Get returns the job registered under name. It returns
// sjmerr.ErrDictGet if name is absent, or if name has a persisted
// record but no callable was registered for it this process (see the
// package doc).
func (r *Registry) Get(name string) (Job, error) {
	key, err := padKey(name, r.maxNameSize)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", sjmerr.ErrDictGet, err)
	}

	rec, err := r.getRecord(name, key)
	if err != nil {
		return Job{}, err
	}

	r.mu.Lock()
	cp, ok := r.callable[name]
	r.mu.Unlock()
	if !ok {
		return Job{}, fmt.Errorf("%w: %q has a persisted record but no registered callable in this process", sjmerr.ErrDictGet, name)
	}

	return Job{
		Func:           cp.fn,
		NeedsExecution: cp.pred,
		LastExecution:  rec.LastExecution,
		LastScheduled:  rec.LastScheduled,
	}, nil
}

func (r *Registry) getRecord(name string, key []byte) (record, error) {
	if r.cache != nil {
		if rec, ok := r.cache.get(name); ok {
			return rec, nil
		}
	}

	raw, err := r.store.Get(key)
	if err != nil {
		return record{}, fmt.Errorf("%w: %v", sjmerr.ErrDictGet, err)
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return record{}, fmt.Errorf("%w: %v", sjmerr.ErrDictGet, err)
	}

	if r.cache != nil {
		r.cache.put(name, rec, recordCacheTTL)
	}
	return rec, nil
}

// Update replaces the stored record and callable for name; a job with
// neither Func nor NeedsExecution set leaves the registered callable
// as it is. It returns sjmerr.ErrDictUpdate if name is not already
// registered.
func (r *Registry) Update(name string, job Job) error {
	key, err := padKey(name, r.maxNameSize)
	if err != nil {
		return fmt.Errorf("%w: %v", sjmerr.ErrDictUpdate, err)
	}

	rec := record{LastExecution: job.LastExecution, LastScheduled: job.LastScheduled}
	value, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", sjmerr.ErrDictUpdate, err)
	}

	if err := r.store.Update(key, value); err != nil {
		return fmt.Errorf("%w: %v", sjmerr.ErrDictUpdate, err)
	}

	r.mu.Lock()
	if job.Func != nil || job.NeedsExecution != nil {
		r.callable[name] = callablePair{fn: job.Func, pred: job.NeedsExecution}
	}
	r.mu.Unlock()
	if r.cache != nil {
		r.cache.put(name, rec, recordCacheTTL)
	}
	return nil
}

// Remove deletes name's record, callable, and cache entry.
func (r *Registry) Remove(name string) error {
	key, err := padKey(name, r.maxNameSize)
	if err != nil {
		return err
	}

	if err := r.store.Remove(key); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.callable, name)
	r.mu.Unlock()
	if r.cache != nil {
		r.cache.del(name)
	}
	return nil
}

// All returns every registered {name, Job} pair by scanning the
// underlying store. Names with no registered callable this process are
// skipped — scheduling can only act on jobs the current process can
// actually invoke.
func (r *Registry) All() ([]NamedJob, error) {
	cur, err := r.store.All()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sjmerr.ErrDictGet, err)
	}
	defer cur.Close()

	var out []NamedJob
	for {
		key, value, ok := cur.Next()
		if !ok {
			break
		}
		name := trimPadding(key)

		r.mu.Lock()
		cp, known := r.callable[name]
		r.mu.Unlock()
		if !known {
			continue
		}

		rec, err := decodeRecord(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", sjmerr.ErrDictGet, err)
		}
		out = append(out, NamedJob{
			Name: name,
			Job: Job{
				Func:           cp.fn,
				NeedsExecution: cp.pred,
				LastExecution:  rec.LastExecution,
				LastScheduled:  rec.LastScheduled,
			},
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", sjmerr.ErrDictGet, err)
	}
	return out, nil
}

// NamedJob pairs a job with its registered name, returned by All.
type NamedJob struct {
	Name string
	Job  Job
}

func trimPadding(key []byte) string {
	return string(bytes.TrimRight(key, "\x00"))
}

func encodeRecord(rec record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(raw []byte) (record, error) {
	var rec record
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rec); err != nil {
		return record{}, err
	}
	return rec, nil
}

// recordEntrySize is the per-entry memory estimate used to translate
// Options.CacheMemory (a byte budget) into a maximum entry count for
// recordCache. A record is two gob-encoded time.Time values plus the
// cache's own bookkeeping — on the order of a few dozen bytes — so
// this is a deliberately generous round number, not a measurement.
const recordEntrySize = 64

// recordCache is a small LRU cache of decoded records, purpose-built
// for Registry: it holds record values directly rather than the
// interface{}-boxed, arbitrary-sized values a general-purpose cache
// has to support, and so needs none of the byte-accounting or
// compute-coalescing machinery that generality requires. Eviction is
// by entry count, not measured byte size, since every entry is the
// same fixed shape.
type recordCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*cacheNode
	head, tail *cacheNode
}

type cacheNode struct {
	key        string
	rec        record
	expiration time.Time
	prev, next *cacheNode
}

// newRecordCache returns a cache bounded to roughly maxmemory bytes,
// translated to a maximum entry count via recordEntrySize.
func newRecordCache(maxmemory int) *recordCache {
	maxEntries := maxmemory / recordEntrySize
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &recordCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheNode),
	}
}

// get returns the cached record for key, evicting it first if it has
// expired.
func (c *recordCache) get(key string) (record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.entries[key]
	if !ok {
		return record{}, false
	}
	if time.Now().After(node.expiration) {
		c.unlink(node)
		delete(c.entries, key)
		return record{}, false
	}
	if node != c.head {
		c.unlink(node)
		c.insertFront(node)
	}
	return node.rec, true
}

// put stores rec under key, expiring after ttl, and evicts the
// least-recently-used entry if the cache is now over maxEntries.
func (c *recordCache) put(key string, rec record, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiration := time.Now().Add(ttl)
	if node, ok := c.entries[key]; ok {
		node.rec = rec
		node.expiration = expiration
		c.unlink(node)
		c.insertFront(node)
		return
	}

	node := &cacheNode{key: key, rec: rec, expiration: expiration}
	c.entries[key] = node
	c.insertFront(node)

	for len(c.entries) > c.maxEntries && c.tail != nil {
		evict := c.tail
		c.unlink(evict)
		delete(c.entries, evict.key)
	}
}

// del evicts key, if present.
func (c *recordCache) del(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.entries[key]; ok {
		c.unlink(node)
		delete(c.entries, key)
	}
}

func (c *recordCache) insertFront(n *cacheNode) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *recordCache) unlink(n *cacheNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}
