// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMissingFileUsesDefaults(t *testing.T) {
	Keys = ProgramConfig{
		MaxNameSize:     32,
		MaxJSONTokens:   128,
		RegistryPath:    "./var/registry.db",
		MasterTablePath: "./var/master.db",
		TickInterval:    "1s",
	}

	require.NoError(t, Init(filepath.Join(t.TempDir(), "absent.json")))
	assert.Equal(t, 32, Keys.MaxNameSize)
}

func TestInitValidFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"maxNameSize": 16,
		"maxJSONTokens": 64,
		"registryPath": "./var/test-registry.db",
		"masterTablePath": "./var/test-master.db",
		"tickInterval": "500ms"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	require.NoError(t, Init(path))
	assert.Equal(t, 16, Keys.MaxNameSize)
	assert.Equal(t, 64, Keys.MaxJSONTokens)
	assert.Equal(t, 500*time.Millisecond, Keys.TickDuration())
}

func TestInitRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"maxNameSize": 16,
		"maxJSONTokens": 64,
		"registryPath": "./var/test-registry.db",
		"masterTablePath": "./var/test-master.db",
		"bogusField": true
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	err := Init(path)
	require.Error(t, err)
}
