// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package masterstore implements the master table: a small SQL
// catalog mapping a registry's "use type" to the name of the
// bbolt bucket backing it. internal/manager's New consults it to
// decide whether to reopen an existing bucket or create a new one and
// record the mapping.
package masterstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/iondb-project/sensor-jobmanager/internal/sjmerr"
	"github.com/iondb-project/sensor-jobmanager/pkg/log"
)

type hookTimeKey struct{}

var registerOnce sync.Once

// MasterStore owns the sqlite-backed dictionaries table.
type MasterStore struct {
	db    *sqlx.DB
	cache *sq.StmtCache
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures the dictionaries table exists.
func Open(path string) (*MasterStore, error) {
	registerOnce.Do(func() {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &queryLogHooks{}))
	})

	db, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sjmerr.ErrDictInit, err)
	}
	// sqlite does not multithread; more than one open connection would
	// just mean waiting on the same file lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", sjmerr.ErrDictInit, err)
	}

	return &MasterStore{db: db, cache: sq.NewStmtCache(db.DB)}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS dictionaries (
	use_type    INTEGER PRIMARY KEY,
	bucket_name TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);`

// Lookup returns the bucket name recorded for useType, and whether an
// entry exists at all.
func (m *MasterStore) Lookup(useType int) (bucketName string, found bool, err error) {
	row := sq.Select("bucket_name").From("dictionaries").
		Where(sq.Eq{"use_type": useType}).RunWith(m.cache).QueryRow()

	var name string
	if err := row.Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", sjmerr.ErrDictGet, err)
	}
	return name, true, nil
}

// Register records that useType maps to bucketName. It returns
// sjmerr.ErrDuplicateKey if useType is already registered.
func (m *MasterStore) Register(useType int, bucketName string) error {
	_, found, err := m.Lookup(useType)
	if err != nil {
		return err
	}
	if found {
		return sjmerr.ErrDuplicateKey
	}

	_, err = sq.Insert("dictionaries").
		Columns("use_type", "bucket_name", "created_at").
		Values(useType, bucketName, time.Now()).
		RunWith(m.cache).Exec()
	if err != nil {
		return fmt.Errorf("%w: %v", sjmerr.ErrDictUpdate, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (m *MasterStore) Close() error {
	return m.db.Close()
}

// queryLogHooks satisfies sqlhooks.Hooks, logging every query and its
// elapsed time through pkg/log at debug level.
type queryLogHooks struct{}

func (h *queryLogHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("SQL query %s %q", query, args)
	return context.WithValue(ctx, hookTimeKey{}, time.Now()), nil
}

func (h *queryLogHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(hookTimeKey{}).(time.Time); ok {
		log.Debugf("took %s", time.Since(begin))
	}
	return ctx, nil
}
