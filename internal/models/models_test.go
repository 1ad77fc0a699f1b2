package models

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressRecord_Coverage(t *testing.T) {
	tests := []struct {
		name        string
		record      ProgressRecord
		missing     []int
		hasCoverage bool
		hasRelated  bool
	}{
		{
			name:        "empty",
			missing:     []int{},
			hasCoverage: true,
			hasRelated:  true,
		}, {
			name: "partial coverage",
			record: ProgressRecord{
				KnownPeriods:     []int{2024, 2022},
				RetrievedPeriods: []int{2022},
			},
			missing:    []int{2024},
			hasRelated: true,
		}, {
			name: "related id without records",
			record: ProgressRecord{
				KnownPeriods:     []int{2022},
				RetrievedPeriods: []int{2022},
				RelatedID:        "C1",
			},
			missing:     []int{},
			hasCoverage: true,
		}, {
			name: "complete",
			record: ProgressRecord{
				KnownPeriods:     []int{2022},
				RetrievedPeriods: []int{2022},
				RelatedID:        "C1",
				RelatedRecords:   []string{"1"},
			},
			missing:     []int{},
			hasCoverage: true,
			hasRelated:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, tt.record.MissingPeriods())
			assert.Equal(t, tt.hasCoverage, tt.record.HasCoverage())
			assert.Equal(t, tt.hasRelated, tt.record.HasRelated())
		})
	}
}

func TestProgressRecord_AddRetrieved(t *testing.T) {
	var r ProgressRecord
	r.AddRetrieved(2024)
	r.AddRetrieved(2022)
	r.AddRetrieved(2024)
	assert.Equal(t, []int{2022, 2024}, r.RetrievedPeriods)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.False(t, StatusPending.IsTerminal())
	for _, status := range Statuses {
		assert.True(t, status.IsTerminal(), status.String())
	}
	assert.False(t, Status("unknown").IsTerminal())
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	ctx := context.Background()

	sink, err := NewFileSink(path)
	require.NoError(t, err)

	has, err := sink.HasTerminalData(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, sink.SaveCandidate(ctx, Candidate{EntityID: "e1", ID: "H1"}))
	require.NoError(t, sink.SaveTotals(ctx, []Totals{{EntityID: "e1", Cycle: 2024, Receipts: decimal.RequireFromString("10.5")}}))
	require.NoError(t, sink.SaveFilings(ctx, []Filing{{ID: "1", EntityID: "e1"}}))
	require.NoError(t, sink.SaveTotals(ctx, nil))

	has, err = sink.HasTerminalData(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, has)
	require.NoError(t, sink.Close())

	reopened, err := NewFileSink(path)
	require.NoError(t, err)
	defer reopened.Close()

	has, err = reopened.HasTerminalData(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, has, "index is rebuilt from the file")

	has, err = reopened.HasTerminalData(ctx, "e2")
	require.NoError(t, err)
	assert.False(t, has)
}
