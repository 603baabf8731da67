// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package httpapi exposes a Manager over HTTP: POST /api/jobs/{name} runs
// a job with a JSON array of arguments, POST /api/request runs the
// dispatcher's `[name, arg...]` form directly. Both are thin wrappers
// around Manager.PerformJob / Manager.RequestJob; the package owns
// nothing but request decoding and error-to-status-code mapping.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iondb-project/sensor-jobmanager/internal/manager"
	"github.com/iondb-project/sensor-jobmanager/internal/sjmerr"
	"github.com/iondb-project/sensor-jobmanager/pkg/log"
)

// API wraps a Manager with HTTP handlers.
type API struct {
	Manager *manager.Manager
}

// MountRoutes registers the job endpoints on r.
func (api *API) MountRoutes(r *mux.Router) {
	r = r.PathPrefix("/api").Subrouter()
	r.StrictSlash(true)
	r.HandleFunc("/jobs/{name}", api.performJob).Methods(http.MethodPost)
	r.HandleFunc("/request", api.requestJob).Methods(http.MethodPost)
}

// ErrorResponse is the JSON body written on any handler error.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// jobResult is the JSON body written on handler success.
type jobResult struct {
	Result any `json:"result"`
}

func decode(r io.Reader, val interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(val)
}

func (api *API) performJob(rw http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var params []any
	if err := decode(r.Body, &params); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	// Jobs take integer arguments: numbers become int (truncated toward
	// zero) and true/false become 1/0; strings pass through.
	for i, p := range params {
		switch v := p.(type) {
		case float64:
			params[i] = int(v)
		case bool:
			params[i] = 0
			if v {
				params[i] = 1
			}
		}
	}

	var out any
	if err := api.Manager.PerformJob(name, params, &out); err != nil {
		handleError(err, statusFor(err), rw)
		return
	}

	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(jobResult{Result: out})
}

func (api *API) requestJob(rw http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}

	var out any
	if err := api.Manager.RequestJob(raw, &out); err != nil {
		handleError(err, statusFor(err), rw)
		return
	}

	rw.Header().Add("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(jobResult{Result: out})
}

// statusFor maps the sjmerr taxonomy to an HTTP status: malformed
// input is a 400, an unknown job name or record is a 404, anything
// else is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sjmerr.ErrUnsupportedJSONFormat):
		return http.StatusBadRequest
	case errors.Is(err, sjmerr.ErrNotFound), errors.Is(err, sjmerr.ErrDictGet):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func handleError(err error, statusCode int, rw http.ResponseWriter) {
	log.Warnf("httpapi: %s", err.Error())
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(ErrorResponse{
		Status: http.StatusText(statusCode),
		Error:  err.Error(),
	})
}
