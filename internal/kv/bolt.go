// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kv

import (
	"errors"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/iondb-project/sensor-jobmanager/internal/sjmerr"
)

// BoltStore implements Store over a single bucket of a bbolt database
// file. One BoltStore corresponds to one "use type": the master table
// resolves a use type to a bucket name, and internal/manager opens
// one BoltStore per Manager and hands it to its registry.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
}

// Open opens (creating if necessary) the bbolt database at path and
// ensures bucket exists, creating it on first use. The returned
// BoltStore owns the *bbolt.DB and closes it in Close.
func Open(path string, bucket string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sjmerr.ErrDictInit, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", sjmerr.ErrDictInit, err)
	}

	return &BoltStore{db: db, bucket: []byte(bucket)}, nil
}

func (s *BoltStore) Insert(key, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b.Get(key) != nil {
			return sjmerr.ErrDuplicateKey
		}
		return b.Put(key, value)
	})
	if err != nil {
		if errors.Is(err, sjmerr.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("%w: %v", sjmerr.ErrAddJob, err)
	}
	return nil
}

func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		v := b.Get(key)
		if v == nil {
			return sjmerr.ErrNotFound
		}
		// v is only valid for the lifetime of the transaction; copy it
		// out before returning.
		out = append(out[:0:0], v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Update(key, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b.Get(key) == nil {
			return sjmerr.ErrNotFound
		}
		return b.Put(key, value)
	})
}

func (s *BoltStore) Remove(key []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(key)
	})
}

// All returns a Cursor over the whole bucket. The underlying bbolt
// read-only transaction stays open until the Cursor is closed, so
// callers must close it on every exit path — including error paths —
// or the transaction leaks.
func (s *BoltStore) All() (Cursor, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sjmerr.ErrDictGet, err)
	}
	c := tx.Bucket(s.bucket).Cursor()
	return &boltCursor{tx: tx, cursor: c, started: false}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// boltCursor adapts bbolt's *bbolt.Cursor (seek-based, first/next) to
// the Store-level Cursor's pull-based Next(). Close is idempotent via
// sync.Once so a deferred Close after an earlier explicit Close (or a
// caller that closes on every branch of a select) never double-closes
// the transaction.
type boltCursor struct {
	tx       *bbolt.Tx
	cursor   *bbolt.Cursor
	started  bool
	once     sync.Once
	closeErr error
}

func (c *boltCursor) Next() (key, value []byte, ok bool) {
	var k, v []byte
	if !c.started {
		c.started = true
		k, v = c.cursor.First()
	} else {
		k, v = c.cursor.Next()
	}
	if k == nil {
		return nil, nil, false
	}
	return k, v, true
}

func (c *boltCursor) Err() error {
	return nil
}

func (c *boltCursor) Close() error {
	c.once.Do(func() {
		c.closeErr = c.tx.Rollback()
	})
	return c.closeErr
}
