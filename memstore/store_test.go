package memstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/ragcore/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	return New(filepath.Join(root, "memory"), filepath.Join(root, "checkpoints"), nil)
}

func TestSaveAndListItems(t *testing.T) {
	s := newStore(t)

	first, err := s.SaveItem("a1", "t1", core.RoleUser, "loves hiking")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.SaveItem("a1", "t1", core.RoleAssistant, "noted")
	require.NoError(t, err)

	items, err := s.ListItems("a1", "t1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	for _, it := range items {
		assert.NotEmpty(t, it.ID)
		assert.False(t, it.CreatedAt.IsZero())
	}
}

func TestListItemsEmptyNamespace(t *testing.T) {
	s := newStore(t)

	items, err := s.ListItems("nobody", "nothing")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchMatchesWithinThread(t *testing.T) {
	s := newStore(t)

	_, err := s.SaveItem("a1", "t1", core.RoleUser, "loves hiking")
	require.NoError(t, err)
	_, err = s.SaveItem("a1", "t1", core.RoleUser, "dislikes rain")
	require.NoError(t, err)

	matches, err := s.Search("a1", "t1", "hiking", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "loves hiking", matches[0].Content)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	s := newStore(t)

	_, err := s.SaveItem("a1", "t1", core.RoleUser, "Loves Hiking in the Alps")
	require.NoError(t, err)

	matches, err := s.Search("a1", "t1", "HIKING", 5)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSearchFallsBackAcrossThreads(t *testing.T) {
	s := newStore(t)

	_, err := s.SaveItem("a1", "older-thread", core.RoleUser, "my dog is called biscuit")
	require.NoError(t, err)
	_, err = s.SaveItem("a1", "current", core.RoleUser, "unrelated note")
	require.NoError(t, err)

	// No match in the current thread, so the whole actor namespace is
	// scanned.
	matches, err := s.Search("a1", "current", "biscuit", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "my dog is called biscuit", matches[0].Content)
}

func TestSearchNoMatchesReturnsEmpty(t *testing.T) {
	s := newStore(t)

	_, err := s.SaveItem("a1", "t1", core.RoleUser, "loves hiking")
	require.NoError(t, err)

	matches, err := s.Search("a1", "t1", "sailing", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Unknown actor is not an error either.
	matches, err = s.Search("ghost", "t1", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchTruncatesToLimit(t *testing.T) {
	s := newStore(t)

	for i := 0; i < 8; i++ {
		_, err := s.SaveItem("a1", "t1", core.RoleUser, "hiking note")
		require.NoError(t, err)
	}

	matches, err := s.Search("a1", "t1", "hiking", 3)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestListItemsSkipsCorruptRecords(t *testing.T) {
	s := newStore(t)

	_, err := s.SaveItem("a1", "t1", core.RoleUser, "good record")
	require.NoError(t, err)

	dir := filepath.Join(s.memoryDir, "a1", "t1")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zzz-broken.json"), []byte("{not json"), 0o600))

	items, err := s.ListItems("a1", "t1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "good record", items[0].Content)
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := newStore(t)

	log := []core.Message{
		{Role: core.RoleUser, Content: "hello"},
		{Role: core.RoleAssistant, Content: "hi there"},
	}
	require.NoError(t, s.SaveCheckpoint("a1", "t1", log))

	loaded, err := s.LoadCheckpoint("a1", "t1")
	require.NoError(t, err)
	assert.Equal(t, log, loaded)
}

func TestCheckpointFreshThreadLoadsEmpty(t *testing.T) {
	s := newStore(t)

	loaded, err := s.LoadCheckpoint("never", "seen")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCheckpointLastWriteWins(t *testing.T) {
	s := newStore(t)

	log := []core.Message{{Role: core.RoleUser, Content: "same content"}}
	require.NoError(t, s.SaveCheckpoint("a1", "t1", log))
	require.NoError(t, s.SaveCheckpoint("a1", "t1", log))

	loaded, err := s.LoadCheckpoint("a1", "t1")
	require.NoError(t, err)
	assert.Equal(t, log, loaded)

	longer := append(log, core.Message{Role: core.RoleAssistant, Content: "reply"})
	require.NoError(t, s.SaveCheckpoint("a1", "t1", longer))
	loaded, err = s.LoadCheckpoint("a1", "t1")
	require.NoError(t, err)
	assert.Equal(t, longer, loaded)
}

func TestCorruptCheckpointIsFatal(t *testing.T) {
	s := newStore(t)

	dir := filepath.Join(s.checkpointDir, "a1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t1.json"), []byte("{{{"), 0o600))

	_, err := s.LoadCheckpoint("a1", "t1")
	var corrupt *core.CorruptCheckpointError
	require.ErrorAs(t, err, &corrupt)
	assert.Contains(t, corrupt.Path, "t1.json")
}

func TestNamespaceValidation(t *testing.T) {
	s := newStore(t)

	_, err := s.SaveItem("../escape", "t1", core.RoleUser, "x")
	assert.Error(t, err)
	_, err = s.ListItems("a1", "")
	assert.Error(t, err)
	err = s.SaveCheckpoint("a/b", "t1", nil)
	assert.Error(t, err)
}
