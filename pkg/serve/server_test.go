// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/boreal/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	archive, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close() })

	s, err := NewServer(Config{}, archive, nil)
	require.NoError(t, err)
	return s, archive
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ServiceVersion)
}

func TestKinds(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/v1/kinds")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "resample")
	assert.Contains(t, w.Body.String(), "benchmark")
}

func TestListAndGet(t *testing.T) {
	s, archive := newTestServer(t)
	rec, err := archive.Put(context.Background(), store.KindResample, "",
		map[string]any{"task_id": "iris", "learner_id": "knn"})
	require.NoError(t, err)

	w := do(t, s, http.MethodGet, "/v1/results/resample")
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Count   int             `json:"count"`
		Records []*store.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Equal(t, 1, listResp.Count)
	assert.Equal(t, rec.ID, listResp.Records[0].ID)

	w = do(t, s, http.MethodGet, "/v1/result/"+rec.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var got store.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, store.KindResample, got.Kind)
}

func TestListEmptyKind(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/v1/results/tune")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
	assert.Contains(t, w.Body.String(), `"records":[]`)
}

func TestListUnknownKind(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/v1/results/models")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListBadLimit(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/v1/results/resample?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, s, http.MethodGet, "/v1/results/resample?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListLimit(t *testing.T) {
	s, archive := newTestServer(t)
	for i := 0; i < 3; i++ {
		_, err := archive.Put(context.Background(), store.KindTune, "", map[string]any{"i": i})
		require.NoError(t, err)
	}
	w := do(t, s, http.MethodGet, "/v1/results/tune?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/v1/result/absent")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodGet, "/healthz")

	w := do(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "boreal_http_requests_total")
}
