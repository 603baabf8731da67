// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the daemon's JSON configuration
// file, covering the job manager's own tunables (name/token limits,
// store paths) and the optional companion transports.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/iondb-project/sensor-jobmanager/pkg/log"
)

// HTTPConfig enables the optional gorilla/mux companion HTTP transport.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// NATSConfig enables the optional nats.go companion transport.
type NATSConfig struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// ProgramConfig is the job manager daemon's full configuration.
// Defaults live in Keys below; Init overlays a config file on top of
// them after schema validation, the same two-step shape as the
// teacher's internal/config.Keys + Init.
type ProgramConfig struct {
	MaxNameSize     int         `json:"maxNameSize"`
	MaxJSONTokens   int         `json:"maxJSONTokens"`
	UseType         int         `json:"useType"`
	RegistryPath    string      `json:"registryPath"`
	MasterTablePath string      `json:"masterTablePath"`
	CacheMemory     int         `json:"cacheMemory"`
	TickInterval    string      `json:"tickInterval"`
	HTTP            *HTTPConfig `json:"http,omitempty"`
	NATS            *NATSConfig `json:"nats,omitempty"`
}

// Keys holds the active configuration. Init overwrites it in place
// after reading and validating a config file.
var Keys = ProgramConfig{
	MaxNameSize:     32,
	MaxJSONTokens:   128,
	UseType:         1,
	RegistryPath:    "./var/registry.db",
	MasterTablePath: "./var/master.db",
	CacheMemory:     1024 * 1024,
	TickInterval:    "1s",
}

// Init reads flagConfigFile, validates it against the embedded schema,
// and decodes it on top of Keys. A missing file is not an error — the
// defaults above are used as-is.
func Init(flagConfigFile string) error {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("config: %s not found, using defaults", flagConfigFile)
			return nil
		}
		return err
	}

	if err := validate(raw); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return err
	}

	if Keys.MaxNameSize < 2 {
		log.Abortf("config: maxNameSize must be >= 2, got %d", Keys.MaxNameSize)
	}

	return nil
}

// TickDuration parses Keys.TickInterval, falling back to one second on
// a malformed value.
func (c ProgramConfig) TickDuration() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		log.Warnf("config: could not parse tickInterval %q, defaulting to 1s", c.TickInterval)
		return time.Second
	}
	return d
}
