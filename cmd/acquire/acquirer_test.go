package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dipdup-net/acquire/cmd/acquire/config"
	"github.com/dipdup-net/acquire/internal/models"
	"github.com/dipdup-net/acquire/internal/orchestrator"
	"github.com/dipdup-net/acquire/internal/progress"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, requests *int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		cycle := r.URL.Query().Get("cycle")

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/candidates/search/":
			if strings.Contains(r.URL.Query().Get("q"), "Jane") {
				fmt.Fprint(w, `{"results":[{"candidate_id":"H1","name":"DOE, JANE","cycles":[2016,2022,2024]}]}`)
				return
			}
			fmt.Fprint(w, `{"results":[]}`)
		case r.URL.Path == "/candidate/H1/totals/":
			fmt.Fprintf(w, `{"results":[{"cycle":%s,"committee_id":"C1","receipts":"1500.25"}]}`, cycle)
		case r.URL.Path == "/committee/C1/reports/":
			fmt.Fprintf(w, `{"results":[{"file_number":"%s-1","cycle":%s,"form_type":"F3","receipt_date":"%s-04-15"}]}`, cycle, cycle, cycle)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) config.Config {
	dir := t.TempDir()
	entities := filepath.Join(dir, "entities.yml")
	require.NoError(t, os.WriteFile(entities, []byte(`
- {id: jane, name: Jane Doe, jurisdiction: CA}
- {id: bob, name: Bob Roe, jurisdiction: NY}
`), 0o600))

	cfg := config.Default()
	cfg.Acquire.CheckpointPath = filepath.Join(dir, "state", "checkpoint.json")
	cfg.Acquire.CacheDir = filepath.Join(dir, "cache")
	cfg.Acquire.EntitiesPath = entities
	cfg.Acquire.SinkPath = filepath.Join(dir, "records.jsonl")
	cfg.Acquire.DelayMs = 0
	cfg.Source.BaseURL = baseURL
	cfg.Source.RPS = 1000
	return cfg
}

func TestAcquirer_Invoke(t *testing.T) {
	var requests int32
	srv := newRegistry(t, &requests)
	cfg := testConfig(t, srv.URL)

	acquirer, err := NewAcquirer(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer acquirer.Close()

	require.NoError(t, acquirer.Invoke(context.Background(), false))
	assert.EqualValues(t, 6, atomic.LoadInt32(&requests))

	store, err := progress.Load(cfg.Acquire.CheckpointPath)
	require.NoError(t, err)
	assert.Equal(t, 2, store.CompletedCount)
	assert.Equal(t, 6, store.APICallsInLastHour)

	jane, ok := store.Record("jane")
	require.True(t, ok)
	assert.Equal(t, models.StatusProcessed, jane.Status)
	assert.Equal(t, []int{2022, 2024}, jane.RetrievedPeriods)
	assert.Equal(t, []string{"2022-1", "2024-1"}, jane.RelatedRecords)

	bob, ok := store.Record("bob")
	require.True(t, ok)
	assert.Equal(t, models.StatusNoCandidateData, bob.Status)

	t.Run("nothing left to do", func(t *testing.T) {
		require.NoError(t, acquirer.Invoke(context.Background(), false))
		assert.EqualValues(t, 6, atomic.LoadInt32(&requests))
	})

	t.Run("recovery asks the registry again for an empty lookup", func(t *testing.T) {
		require.NoError(t, acquirer.Invoke(context.Background(), true))
		assert.EqualValues(t, 7, atomic.LoadInt32(&requests))

		store, err := progress.Load(cfg.Acquire.CheckpointPath)
		require.NoError(t, err)
		assert.Equal(t, 2, store.CompletedCount)
		require.Len(t, store.Runs, 3)
		assert.True(t, store.Runs[2].Recovery)
		assert.Equal(t, 1, store.Runs[2].Calls)
		assert.Equal(t, 1, store.Runs[2].Entities)
		assert.NotNil(t, store.Runs[2].EndedAt)

		bob, ok := store.Record("bob")
		require.True(t, ok)
		assert.Equal(t, models.StatusNoCandidateData, bob.Status)
	})
}

type brokenSink struct {
	models.Sink
}

func (brokenSink) SaveTotals(ctx context.Context, totals []models.Totals) error {
	return errors.New("connection reset")
}

func TestAcquirer_FatalErrorKeepsCheckpoint(t *testing.T) {
	var requests int32
	srv := newRegistry(t, &requests)
	cfg := testConfig(t, srv.URL)

	acquirer, err := NewAcquirer(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer acquirer.Close()

	require.NoError(t, acquirer.Invoke(context.Background(), false))
	before, err := progress.Load(cfg.Acquire.CheckpointPath)
	require.NoError(t, err)
	jane, ok := before.Record("jane")
	require.True(t, ok)

	// make jane recoverable: one period is missing
	jane.RetrievedPeriods = []int{2022}
	require.NoError(t, before.Put("jane", jane))
	require.NoError(t, before.Save())

	acquirer.sink = brokenSink{acquirer.sink}
	err = acquirer.Invoke(context.Background(), true)
	require.Error(t, err)
	assert.True(t, orchestrator.IsFatal(err))

	after, err := progress.Load(cfg.Acquire.CheckpointPath)
	require.NoError(t, err)
	assert.Equal(t, 2, after.CompletedCount, "unprocessed recovery records stay on disk")

	record, ok := after.Record("jane")
	require.True(t, ok, "record of the failed entity is kept")
	assert.Equal(t, []int{2022}, record.RetrievedPeriods)

	require.Len(t, after.Runs, 2)
	assert.True(t, after.Runs[1].Recovery)
	assert.Contains(t, after.Runs[1].Error, "save totals")
	assert.NotNil(t, after.Runs[1].EndedAt)
	assert.Equal(t, 1, after.Runs[1].Calls, "2024 totals are asked again, the rest is cached")
	assert.Equal(t, 7, after.APICallsInLastHour)
	assert.EqualValues(t, 7, atomic.LoadInt32(&requests))
}

func TestAcquirer_BudgetCarriesOver(t *testing.T) {
	var requests int32
	srv := newRegistry(t, &requests)
	cfg := testConfig(t, srv.URL)
	cfg.Acquire.APICallsPerHour = 7
	cfg.Acquire.Reserve = 5

	acquirer, err := NewAcquirer(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer acquirer.Close()

	require.NoError(t, acquirer.Invoke(context.Background(), false))
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))

	store, err := progress.Load(cfg.Acquire.CheckpointPath)
	require.NoError(t, err)
	assert.Equal(t, 0, store.CompletedCount, "entity interrupted during primary fetch stays pending")
	assert.Equal(t, 2, store.APICallsInLastHour)
	assert.False(t, store.IsTerminal("jane"))
}
