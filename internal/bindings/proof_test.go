package bindings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/storage"
)

func seedCommitment(t *testing.T) *storage.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateEvent(ctx, &storage.Event{
		EventID: "ev-1", UserID: "alice", AccountID: "work",
		Title: "Design review", StartTs: 1000, EndTs: 2800,
		Timezone: "UTC", Status: "confirmed", Source: "mcp",
	}))
	require.NoError(t, store.CreateCommitment(ctx, &storage.Commitment{
		CommitmentID: "com-1", UserID: "alice", ProposalID: "prop-1",
		CandidateID: "cand-1", EventID: "ev-1", Status: storage.CommitmentConfirmed,
	}))
	return store
}

func TestLocalExporterJSON(t *testing.T) {
	store := seedCommitment(t)
	exporter := NewLocalExporter(store, []byte("secret"))
	ctx := WithUserID(context.Background(), "alice")

	out, err := exporter.Export(ctx, "com-1", "json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "com-1", doc["commitment_id"])
	assert.Equal(t, "Design review", doc["title"])
	assert.Equal(t, "confirmed", doc["status"])
	assert.NotEmpty(t, doc["signature"])
}

func TestLocalExporterText(t *testing.T) {
	store := seedCommitment(t)
	exporter := NewLocalExporter(store, []byte("secret"))
	ctx := WithUserID(context.Background(), "alice")

	out, err := exporter.Export(ctx, "com-1", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "com-1")
	assert.Contains(t, out, "Design review")
	assert.Contains(t, out, "signature:")
}

func TestLocalExporterScoping(t *testing.T) {
	store := seedCommitment(t)
	exporter := NewLocalExporter(store, []byte("secret"))

	// No user scope on the context.
	_, err := exporter.Export(context.Background(), "com-1", "json")
	assert.True(t, errors.Is(err, ErrUnavailable))

	// Wrong user.
	_, err = exporter.Export(WithUserID(context.Background(), "bob"), "com-1", "json")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestUnavailableDefaults(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, UnavailableSync{}.PushEvent(ctx, "a", "e"), ErrUnavailable)
	assert.ErrorIs(t, UnavailableSync{}.PushDeletion(ctx, "a", "e"), ErrUnavailable)
	_, err := UnavailableExporter{}.Export(ctx, "c", "json")
	assert.ErrorIs(t, err, ErrUnavailable)
}
