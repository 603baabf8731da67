// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iondb-project/sensor-jobmanager/internal/manager"
	"github.com/iondb-project/sensor-jobmanager/internal/registry"
)

func openTestAPI(t *testing.T) (*API, *mux.Router) {
	t.Helper()
	dir := t.TempDir()
	m, err := manager.New(manager.Config{
		MaxNameSize:     20,
		MaxJSONTokens:   12,
		UseType:         1,
		RegistryPath:    filepath.Join(dir, "registry.db"),
		MasterTablePath: filepath.Join(dir, "master.db"),
		CacheMemory:     4096,
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	require.NoError(t, m.AddJob("ADD", registry.Job{
		Func: func(params []any, out *any) {
			x := params[0].(int)
			y := params[1].(int)
			*out = x + y
		},
		NeedsExecution: func(job *registry.Job, base, now time.Time) bool { return true },
	}))

	api := &API{Manager: m}
	r := mux.NewRouter()
	api.MountRoutes(r)
	return api, r
}

func TestPerformJobEndpoint(t *testing.T) {
	_, r := openTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/ADD", strings.NewReader(`[1, 2]`))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	var body jobResult
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body.Result)
}

func TestRequestJobEndpoint(t *testing.T) {
	_, r := openTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/request", strings.NewReader(`[ "ADD", 1, 2 ]`))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	var body jobResult
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body.Result)
}

func TestPerformJobEndpointUnknownJob(t *testing.T) {
	_, r := openTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/MISSING", strings.NewReader(`[]`))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestRequestJobEndpointMalformed(t *testing.T) {
	_, r := openTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/request", strings.NewReader(`[]`))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusBadRequest, rw.Code)
}
