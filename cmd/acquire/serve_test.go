package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dipdup-net/acquire/internal/models"
	"github.com/dipdup-net/acquire/internal/progress"
	"github.com/dipdup-net/acquire/internal/report"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	cfg := testConfig(t, "http://localhost")

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Acquire.CheckpointPath), 0o755))
	store := progress.NewStore(cfg.Acquire.CheckpointPath)
	require.NoError(t, store.Put("jane", models.ProgressRecord{
		Status:           models.StatusProcessed,
		CandidateID:      "H1",
		KnownPeriods:     []int{2022},
		RetrievedPeriods: []int{2022},
	}))
	store.BeginRun("run-1", time.Now(), false)
	require.NoError(t, store.Save())

	e := newServer(cfg)
	json := jsoniter.ConfigCompatibleWithStandardLibrary

	tests := []struct {
		name     string
		url      string
		wantCode int
	}{
		{name: "report", url: "/report", wantCode: http.StatusOK},
		{name: "known entity", url: "/entities/jane", wantCode: http.StatusOK},
		{name: "pending entity", url: "/entities/bob", wantCode: http.StatusNotFound},
		{name: "runs", url: "/runs", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	var r report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, 2, r.Population)
	assert.Equal(t, 1, r.Completed)
	assert.Equal(t, 1, r.Pending)
	assert.Len(t, r.Runs, 1)
}
