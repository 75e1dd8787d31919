package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMemoryAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.StoreMemory(ctx, "the database password is rotated every friday", map[string]any{"type": "fact"}))
	require.NoError(t, s.StoreMemory(ctx, "kubernetes pods restart when memory limits are hit", map[string]any{"type": "fact"}))

	results, err := s.Search(ctx, "database password rotated friday", SearchOptions{MinSimilarity: 0.1})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Contains(t, results[0].Content, "database password")
	assert.Equal(t, "fact", results[0].Metadata["type"])
	assert.Greater(t, results[0].Similarity, 0.1)
}

func TestEncodeVectorBlobLayout(t *testing.T) {
	blob := encodeVectorBlob([]float32{1.0, -2.5})
	require.Len(t, blob, 8)

	// Little-endian float32: 1.0 = 0x3f800000, -2.5 = 0xc0200000.
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, blob[:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x20, 0xc0}, blob[4:])
}

func TestSearchFallsBackWhenAcceleratedPathFails(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.StoreMemory(ctx, "the deploy pipeline runs on merge to main", nil))

	// Force the accelerated path on a build without the extension:
	// the vec_distance_cosine query errors and the in-process scan
	// must still serve the results.
	s.vectorExt = true
	results, err := s.Search(ctx, "deploy pipeline merge main", SearchOptions{MinSimilarity: 0.1})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "deploy pipeline")
}

func TestStoreMemoryRejectsEmptyContent(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.StoreMemory(t.Context(), "", nil))
}

func TestSearchHonorsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	for _, c := range []string{
		"fix the flaky login test",
		"fix the flaky signup test",
		"fix the flaky checkout test",
		"fix the flaky payment test",
	} {
		require.NoError(t, s.StoreMemory(ctx, c, nil))
	}

	results, err := s.Search(ctx, "fix the flaky test", SearchOptions{Limit: 2, MinSimilarity: 0.01})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchMinSimilarityFiltersUnrelated(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.StoreMemory(ctx, "zebra giraffe elephant savanna wildlife", nil))

	results, err := s.Search(ctx, "postgres connection pool tuning", SearchOptions{MinSimilarity: 0.9})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreConversationChunkMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	err := s.StoreConversationChunk(ctx, "sess-42",
		"user: list the files\nassistant: I ran ls and found three files",
		2, []string{"user", "assistant"})
	require.NoError(t, err)

	results, err := s.Search(ctx, "list the files", SearchOptions{MinSimilarity: 0.05})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	meta := results[0].Metadata
	assert.Equal(t, "conversation_chunk", meta["type"])
	assert.Equal(t, "session_overflow", meta["source"])
	assert.Equal(t, "sess-42", meta["session_id"])
	assert.EqualValues(t, 2, meta["message_count"])
}

func TestTemporalWeight(t *testing.T) {
	now := time.Now()

	assert.InDelta(t, 1.0, temporalWeight(now, 0), 0.01)
	assert.InDelta(t, 0.9, temporalWeight(now.Add(-24*time.Hour), 0), 0.01)
	assert.InDelta(t, 0.81, temporalWeight(now.Add(-48*time.Hour), 0), 0.01)

	// Disabled decay treats every age the same.
	assert.Equal(t, 1.0, temporalWeight(now.Add(-1000*time.Hour), -1))
}

func TestTemporalDecayReordersResults(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	// Identical content so raw similarity ties; the older row must
	// sink below the fresh one once decay applies.
	require.NoError(t, s.StoreMemory(ctx, "restart the ingest worker after schema changes", nil))
	_, err := s.db.Exec(
		"INSERT INTO memories (content, embedding, metadata, created_at) SELECT content, embedding, metadata, ? FROM memories LIMIT 1",
		time.Now().Add(-30*24*time.Hour),
	)
	require.NoError(t, err)

	results, err := s.Search(ctx, "restart the ingest worker after schema changes", SearchOptions{MinSimilarity: 0.1})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Greater(t, results[0].Score, results[1].Score)
	assert.True(t, results[0].CreatedAt.After(results[1].CreatedAt))
}

func TestWorkspaceRoundTrip(t *testing.T) {
	s := newTestStore(t)

	state := []byte(`{"goal":"refactor auth","completed_steps":3}`)
	require.NoError(t, s.SaveWorkspace("sess-1", state))

	got, err := s.LoadWorkspace("sess-1")
	require.NoError(t, err)
	assert.Equal(t, state, got)

	// Upsert replaces previous state.
	next := []byte(`{"goal":"refactor auth","completed_steps":4}`)
	require.NoError(t, s.SaveWorkspace("sess-1", next))
	got, err = s.LoadWorkspace("sess-1")
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestLoadWorkspaceMissingSession(t *testing.T) {
	s := newTestStore(t)

	got, err := s.LoadWorkspace("never-seen")
	require.NoError(t, err)
	assert.Nil(t, got)
}
