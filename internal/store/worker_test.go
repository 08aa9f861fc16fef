package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	w, err := NewWorker("testws", t.TempDir(), RuntimeConfig{
		LockTimeout:  time.Second,
		LockRetry:    10 * time.Millisecond,
		LockMaxRetry: 3,
	})
	require.NoError(t, err)
	w.Start()
	t.Cleanup(w.Stop)
	return w
}

func TestTranscriptRoundTrip(t *testing.T) {
	w := newTestWorker(t)

	require.NoError(t, w.AppendEntry("sess1", NewTranscriptEntry(RoleUser, "hello")))
	require.NoError(t, w.AppendEntry("sess1", NewTranscriptEntry(RoleAssistant, "hi there")))

	entries, err := w.ReadEntries("sess1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, RoleUser, entries[0].Role)
	require.Equal(t, "hello", entries[0].Content)
	require.Equal(t, RoleAssistant, entries[1].Role)
	require.NotEmpty(t, entries[0].ID)
	require.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestReadTranscript_LimitReturnsTail(t *testing.T) {
	w := newTestWorker(t)

	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, w.AppendEntry("sess1", NewTranscriptEntry(RoleUser, content)))
	}

	entries, err := w.ReadEntries("sess1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "two", entries[0].Content)
	require.Equal(t, "three", entries[1].Content)
}

func TestReadTranscript_MissingSessionIsEmpty(t *testing.T) {
	w := newTestWorker(t)

	lines, err := w.ReadTranscript("nope", 0)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestResetSession(t *testing.T) {
	w := newTestWorker(t)

	require.NoError(t, w.AppendEntry("sess1", NewTranscriptEntry(RoleUser, "hello")))
	require.NoError(t, w.SaveSession(&SessionMeta{ID: "sess1", Status: "active"}))
	require.NoError(t, w.ResetSession("sess1"))

	lines, err := w.ReadTranscript("sess1", 0)
	require.NoError(t, err)
	require.Empty(t, lines)

	sess, err := w.GetSession("sess1")
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestSessionIndexRoundTrip(t *testing.T) {
	w := newTestWorker(t)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, w.SaveSession(&SessionMeta{
		ID:        "sess1",
		Title:     "first chat",
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	sess, err := w.GetSession("sess1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "first chat", sess.Title)
}

func TestListSessions(t *testing.T) {
	w := newTestWorker(t)

	require.NoError(t, w.AppendEntry("alpha", NewTranscriptEntry(RoleUser, "a")))
	require.NoError(t, w.AppendEntry("beta", NewTranscriptEntry(RoleUser, "b")))

	ids, err := w.ListSessions()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"alpha", "beta"}, ids)
}
