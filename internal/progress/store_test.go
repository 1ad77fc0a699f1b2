package progress

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dipdup-net/acquire/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processed(runID string, known, retrieved []int) models.ProgressRecord {
	return models.ProgressRecord{
		Status:           models.StatusProcessed,
		StartedAt:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt:       time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC),
		CandidateID:      "H0CA00001",
		KnownPeriods:     known,
		RetrievedPeriods: retrieved,
		RunID:            runID,
	}
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	store, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, store.ProcessedEntities)
	assert.Empty(t, store.Runs)
	assert.Nil(t, store.LastRunTimestamp)
	assert.Equal(t, path, store.Path())
}

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "progress.json")
	now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

	store := NewStore(path)
	store.BeginRun("run-1", now, false)
	require.NoError(t, store.Put("e1", processed("run-1", []int{2022, 2024}, []int{2022, 2024})))
	require.NoError(t, store.Put("e2", models.ProgressRecord{Status: models.StatusNoCandidateData, RunID: "run-1"}))
	store.LastProcessedEntity = "e2"
	store.LastProcessedIndex = 2
	store.Consume(42, now)

	run, err := store.CurrentRun()
	require.NoError(t, err)
	run.Calls = 42
	run.Entities = 2

	require.NoError(t, store.Save())

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.CompletedCount)
	assert.Equal(t, 42, loaded.APICallsInLastHour)
	assert.Equal(t, "e2", loaded.LastProcessedEntity)
	assert.Equal(t, 2, loaded.LastProcessedIndex)
	require.NotNil(t, loaded.LastRunTimestamp)
	assert.True(t, now.Equal(*loaded.LastRunTimestamp))
	require.Len(t, loaded.Runs, 1)
	assert.Equal(t, 42, loaded.Runs[0].Calls)

	record, ok := loaded.Record("e1")
	require.True(t, ok)
	assert.Equal(t, []int{2022, 2024}, record.RetrievedPeriods)
	assert.Equal(t, "run-1", record.RunID)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Put(t *testing.T) {
	store := NewStore("")

	err := store.Put("e1", models.ProgressRecord{})
	assert.True(t, errors.Is(err, ErrNotTerminal))
	assert.Equal(t, 0, store.CompletedCount)

	require.NoError(t, store.Put("e1", processed("run-1", []int{2022}, nil)))
	require.NoError(t, store.Put("e1", processed("run-2", []int{2022}, []int{2022})))
	assert.Equal(t, 1, store.CompletedCount)

	record, _ := store.Record("e1")
	assert.Equal(t, "run-2", record.RunID)
	assert.Equal(t, []int{2022}, record.RetrievedPeriods)

	store.Clear("e1")
	assert.Equal(t, 0, store.CompletedCount)
	assert.False(t, store.IsTerminal("e1"))
}

func TestLoad_RepairsInvariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	raw := `{
		"lastProcessedIndex": 3,
		"processedEntities": {
			"e1": {"status": "processed", "runId": "r"},
			"e2": {"status": "", "runId": "r"},
			"e3": {"status": "no_recent_candidacy", "runId": "r"}
		},
		"lastRunTimestamp": null,
		"apiCallsInLastHour": -5,
		"completedCount": 7,
		"runs": null
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	store, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, store.CompletedCount)
	assert.Len(t, store.ProcessedEntities, 2)
	assert.Equal(t, 0, store.APICallsInLastHour)
	assert.NotNil(t, store.Runs)
}

func TestLoad_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"processedEntities": {`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestStore_CheckpointDurability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	store := NewStore(path)
	require.NoError(t, store.Put("e1", processed("run-1", []int{2024}, []int{2024})))
	require.NoError(t, store.Save())

	// the process dies before e2 is checkpointed
	require.NoError(t, store.Put("e2", processed("run-1", []int{2024}, []int{2024})))

	restarted, err := Load(path)
	require.NoError(t, err)
	assert.True(t, restarted.IsTerminal("e1"))
	assert.False(t, restarted.IsTerminal("e2"))
	assert.Equal(t, 1, restarted.CompletedCount)
}

func TestStore_CountByStatus(t *testing.T) {
	store := NewStore("")
	require.NoError(t, store.Put("e1", processed("r", nil, nil)))
	require.NoError(t, store.Put("e2", processed("r", nil, nil)))
	require.NoError(t, store.Put("e3", models.ProgressRecord{Status: models.StatusSkippedHasData}))

	counts := store.CountByStatus()
	assert.Equal(t, 2, counts[models.StatusProcessed])
	assert.Equal(t, 1, counts[models.StatusSkippedHasData])
	assert.Equal(t, 0, counts[models.StatusNoCandidateData])
}

func TestLock(t *testing.T) {
	checkpoint := filepath.Join(t.TempDir(), "progress.json")

	lock, err := Acquire(checkpoint, time.Hour)
	require.NoError(t, err)

	_, err = Acquire(checkpoint, time.Hour)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, lock.Refresh())
	require.NoError(t, lock.Release())

	again, err := Acquire(checkpoint, time.Hour)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestLock_Stale(t *testing.T) {
	checkpoint := filepath.Join(t.TempDir(), "progress.json")

	_, err := Acquire(checkpoint, time.Hour)
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(LockPath(checkpoint), old, old))

	lock, err := Acquire(checkpoint, time.Hour)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestStore_PutRun(t *testing.T) {
	store := NewStore("")
	store.BeginRun("run-1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), false)

	store.PutRun(models.RunRecord{ID: "run-1", Calls: 3, Error: "fatal"})
	require.Len(t, store.Runs, 1)
	assert.Equal(t, 3, store.Runs[0].Calls)

	store.PutRun(models.RunRecord{ID: "run-2", Recovery: true})
	require.Len(t, store.Runs, 2)
	assert.True(t, store.Runs[1].Recovery)
}
