package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVectorUpsertAndSearch(t *testing.T) {
	w := newTestWorker(t)

	require.NoError(t, w.UpsertVector("memories", "m1", []float32{1, 0, 0}, map[string]string{"kind": "fact"}, "prefers metric units"))
	require.NoError(t, w.UpsertVector("memories", "m2", []float32{0, 1, 0}, nil, "lives in Jakarta"))

	results, err := w.SearchVectors("memories", []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "m1", results[0].ID)
	require.Equal(t, "prefers metric units", results[0].Content)
	require.InDelta(t, 1.0, results[0].Score, 0.001)
}

func TestVectorSearch_MissingCollectionIsEmpty(t *testing.T) {
	w := newTestWorker(t)

	results, err := w.SearchVectors("ghost", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestVectorUpsert_OverwritesExisting(t *testing.T) {
	w := newTestWorker(t)

	require.NoError(t, w.UpsertVector("memories", "m1", []float32{1, 0}, nil, "old"))
	require.NoError(t, w.UpsertVector("memories", "m1", []float32{1, 0}, nil, "new"))

	results, err := w.SearchVectors("memories", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "new", results[0].Content)
}

func TestVectorSearch_LimitClampedToCount(t *testing.T) {
	w := newTestWorker(t)

	require.NoError(t, w.UpsertVector("memories", "m1", []float32{1, 0}, nil, "only one"))

	results, err := w.SearchVectors("memories", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestNewTranscriptEntry(t *testing.T) {
	entry := NewTranscriptEntry(RoleTool, `{"result": 5}`)
	require.NotEmpty(t, entry.ID)
	require.Equal(t, RoleTool, entry.Role)
	require.WithinDuration(t, time.Now().UTC(), entry.Timestamp, time.Minute)
}
