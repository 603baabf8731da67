// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kv abstracts the embedded key-value store the job registry is
// built on. Store and Cursor are the narrow slice of dictionary
// operations the registry actually needs (insert-no-overwrite, get,
// update-must-exist, remove, full scan) — not a general dictionary API,
// deliberately narrower than the original's generic, comparator- and
// allocator-configurable dictionary.
package kv

// Store is a single named bucket of key/value pairs.
type Store interface {
	// Insert adds key with value. It returns sjmerr.ErrDuplicateKey if
	// key is already present.
	Insert(key, value []byte) error

	// Get returns the value stored for key, or sjmerr.ErrNotFound.
	Get(key []byte) ([]byte, error)

	// Update replaces the value stored for key. It returns
	// sjmerr.ErrNotFound if key is absent — Update never creates.
	Update(key, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key []byte) error

	// All returns a Cursor over every key/value pair in the store, in
	// key order. The returned Cursor must be closed by the caller on
	// every exit path.
	All() (Cursor, error)

	// Close releases the store's underlying resources.
	Close() error
}

// Cursor walks a Store's contents in key order.
type Cursor interface {
	// Next advances the cursor and returns the key/value at the new
	// position. ok is false once the cursor is exhausted.
	Next() (key, value []byte, ok bool)

	// Err returns any error encountered while iterating.
	Err() error

	// Close releases the cursor's underlying transaction. It is
	// idempotent: calling it more than once is a no-op.
	Close() error
}
