// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package masterstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iondb-project/sensor-jobmanager/internal/sjmerr"
)

func openTestMasterStore(t *testing.T) *MasterStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master.db")
	m, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestLookupMiss(t *testing.T) {
	m := openTestMasterStore(t)

	_, found, err := m.Lookup(1)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRegisterThenLookup(t *testing.T) {
	m := openTestMasterStore(t)

	require.NoError(t, m.Register(1, "sensor_jobs"))

	name, found, err := m.Lookup(1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "sensor_jobs", name)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	m := openTestMasterStore(t)

	require.NoError(t, m.Register(1, "sensor_jobs"))
	err := m.Register(1, "other_bucket")
	require.ErrorIs(t, err, sjmerr.ErrDuplicateKey)
}
