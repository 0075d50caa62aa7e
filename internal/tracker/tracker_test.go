package tracker

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTracker(t *testing.T, saveEvery int) (*Tracker, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results", "processed_pdfs.json")
	return New(path, saveEvery, quiet), path
}

func TestTracker_MarkAndQuery(t *testing.T) {
	tr, _ := newTracker(t, 0)

	assert.False(t, tr.IsProcessed("Lincoln/1/a.pdf"))
	require.NoError(t, tr.MarkProcessed("Lincoln/1/a.pdf"))
	assert.True(t, tr.IsProcessed("Lincoln/1/a.pdf"))
	assert.False(t, tr.IsProcessed("Lincoln/2/a.pdf"))
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_SaveLoadRoundTrip(t *testing.T) {
	tr, path := newTracker(t, 0)
	for _, id := range []string{"B/2/x.pdf", "A/1/y.pdf", "A/1/z.pdf"} {
		require.NoError(t, tr.MarkProcessed(id))
	}
	require.NoError(t, tr.Save())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, []string{"A/1/y.pdf", "A/1/z.pdf", "B/2/x.pdf"}, doc.ProcessedPDFs)
	assert.Equal(t, 3, doc.TotalProcessed)
	assert.NotEmpty(t, doc.LastUpdated)

	again := New(path, 0, quiet)
	assert.Equal(t, 3, again.Load())
	assert.Equal(t, tr.IDs(), again.IDs())
}

func TestTracker_PeriodicSave(t *testing.T) {
	tr, path := newTracker(t, 5)

	for i, id := range []string{"d/1/1.pdf", "d/1/2.pdf", "d/1/3.pdf", "d/1/4.pdf"} {
		require.NoError(t, tr.MarkProcessed(id), i)
	}
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no save before the 5th addition")

	// re-marking an existing id is not a new addition
	require.NoError(t, tr.MarkProcessed("d/1/4.pdf"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, tr.MarkProcessed("d/1/5.pdf"))
	st, err := ReadStatus(path)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Equal(t, 5, st.TotalProcessed)
}

func TestTracker_ClearThenLoadIsEmpty(t *testing.T) {
	tr, path := newTracker(t, 0)
	require.NoError(t, tr.MarkProcessed("a/1/a.pdf"))
	require.NoError(t, tr.Save())

	require.NoError(t, tr.Clear())
	assert.Equal(t, 0, tr.Len())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, 0, New(path, 0, quiet).Load())
	require.NoError(t, tr.Clear(), "clearing twice is fine")
}

func TestTracker_LoadMissingOrCorrupt(t *testing.T) {
	tr, path := newTracker(t, 0)
	assert.Equal(t, 0, tr.Load())

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"processed_pdfs": [`), 0o644))
	assert.Equal(t, 0, tr.Load())

	_, err := ReadStatus(path)
	assert.Error(t, err)
}

func TestTracker_Lock(t *testing.T) {
	first, path := newTracker(t, 0)
	second := New(path, 0, quiet)

	require.NoError(t, first.Lock())
	err := second.Lock()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTrackerLocked)

	st, err := ReadStatus(path)
	require.NoError(t, err)
	assert.True(t, st.Locked)

	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock())
	require.NoError(t, second.Unlock())
}

func TestForceUnlock(t *testing.T) {
	tr, path := newTracker(t, 0)
	require.NoError(t, tr.Lock())

	removed, err := ForceUnlock(path)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = ForceUnlock(path)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, New(path, 0, quiet).Lock())
}
