// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sjmerr defines the sensor job manager's error taxonomy.
// Every kind from the original SJM_ERROR_* enum gets one sentinel
// here, wrapped with context at the call site via fmt.Errorf's %w so
// callers can still errors.Is against the kind.
package sjmerr

import "errors"

var (
	// ErrDictInit means the key-value store could not be opened or
	// created.
	ErrDictInit = errors.New("sjm: dictionary could not be initialized")

	// ErrDictUpdate means a registry update failed.
	ErrDictUpdate = errors.New("sjm: dictionary update failed")

	// ErrDictGet means a registry lookup failed, or returned
	// not-found during PerformJob.
	ErrDictGet = errors.New("sjm: dictionary get failed")

	// ErrAddJob means inserting a job failed: a duplicate name, a
	// rejected (too long or empty) name, or a store-full condition.
	ErrAddJob = errors.New("sjm: add job failed")

	// ErrGetJob is reserved, matching SJM_ERROR_GET_JOB in the
	// original taxonomy; registry lookups surface ErrDictGet instead.
	ErrGetJob = errors.New("sjm: get job failed")

	// ErrUnsupportedJSONFormat means the request was not `[name,
	// arg...]`, had fewer than two tokens, or overflowed the token
	// budget.
	ErrUnsupportedJSONFormat = errors.New("sjm: unsupported json format")

	// ErrMemoryAllocationFailure is reserved, matching
	// SJM_ERROR_MEMORY_ALLOCATION_FAILURE in the original taxonomy;
	// no code path in this module returns it.
	ErrMemoryAllocationFailure = errors.New("sjm: memory allocation failure")

	// ErrDuplicateKey is returned by Registry.Add when the name is
	// already registered: a collision is rejected, not overwritten.
	ErrDuplicateKey = errors.New("sjm: duplicate job name")

	// ErrNotFound is returned by the KV store layer when a key is
	// absent.
	ErrNotFound = errors.New("sjm: key not found")
)
