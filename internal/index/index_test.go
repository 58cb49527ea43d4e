// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganforge/lexrun/internal/storage"
)

func openTestIndex(t *testing.T) *ConversationIndex {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func sampleConversation(id, question, answer string) *storage.StoredConversation {
	return &storage.StoredConversation{
		ID:        id,
		Title:     storage.DeriveTitle([]storage.StoredMessage{{Role: "user", Content: question}}),
		UpdatedAt: time.Now(),
		Messages: []storage.StoredMessage{
			{ID: id + "_m1", Role: "user", Content: question},
			{ID: id + "_m2", Role: "assistant", Content: answer},
		},
	}
}

func TestIndexAndSearch(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.IndexConversation(sampleConversation(
		"conv_owi", "What is OWI?", "Operating while intoxicated under Wis. Stat. 346.63.")))
	require.NoError(t, idx.IndexConversation(sampleConversation(
		"conv_consent", "Explain implied consent", "Wisconsin's implied consent law requires chemical testing.")))

	hits, err := idx.Search("intoxicated", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "conv_owi", hits[0].ConversationID)
	assert.Equal(t, "assistant", hits[0].Role)
	assert.Contains(t, hits[0].Snippet, "intoxicated")

	hits, err = idx.Search("consent", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2) // question and answer both match
	assert.Equal(t, "conv_consent", hits[0].ConversationID)
}

func TestIndexConversation_UpsertReplacesMessages(t *testing.T) {
	idx := openTestIndex(t)

	conv := sampleConversation("conv_1", "first question", "first answer")
	require.NoError(t, idx.IndexConversation(conv))

	conv.Messages = append(conv.Messages, storage.StoredMessage{
		ID: "conv_1_m3", Role: "user", Content: "followup about sobriety checkpoints",
	})
	require.NoError(t, idx.IndexConversation(conv))

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ConversationCount)
	assert.Equal(t, 3, stats.MessageCount)

	hits, err := idx.Search("checkpoints", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestRemove(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.IndexConversation(sampleConversation("conv_1", "question", "answer")))
	require.NoError(t, idx.Remove("conv_1"))
	// Removing again is a no-op.
	require.NoError(t, idx.Remove("conv_1"))

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ConversationCount)
	assert.Equal(t, 0, stats.MessageCount, "cascade should remove messages")
}

func TestSearch_EmptyQuery(t *testing.T) {
	idx := openTestIndex(t)

	_, err := idx.Search("   ", 10)
	assert.True(t, errors.Is(err, ErrEmptyQuery))
}

func TestSearch_FTSOperatorsTreatedLiterally(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.IndexConversation(sampleConversation(
		"conv_1", "what does AND mean in a statute", "AND joins conditions")))

	// Bare FTS operators would be a syntax error unquoted.
	hits, err := idx.Search(`statute AND`, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestRebuild(t *testing.T) {
	store, err := storage.NewConversationStoreWithDir(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"conv_a", "conv_b"} {
		conv := &storage.StoredConversation{
			ID: id,
			Messages: []storage.StoredMessage{
				{ID: id + "_m1", Role: "user", Content: "question about restraining orders"},
			},
		}
		_, err := store.Save(conv)
		require.NoError(t, err)
	}

	idx := openTestIndex(t)
	// Seed with a stale record that the rebuild must discard.
	require.NoError(t, idx.IndexConversation(sampleConversation("conv_stale", "old", "old")))

	require.NoError(t, idx.Rebuild(store))

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ConversationCount)

	hits, err := idx.Search("restraining", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = idx.Search("old", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, idx.IndexConversation(sampleConversation("conv_1", "persistent question", "answer")))
	require.NoError(t, idx.Close())

	idx, err = Open(path)
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Search("persistent", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
