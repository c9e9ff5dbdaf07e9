package snapshot_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/message"
	"chat-client/internal/infrastructure/snapshot"
	"chat-client/internal/utils/platformerrors"
)

func openTestStore(t *testing.T) *snapshot.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	store, err := snapshot.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSnapshot(userID string) conversation.Snapshot {
	return conversation.Snapshot{
		UserID: userID,
		Chats: map[string]conversation.ChatRecord{
			"conv_1": {
				ID:        "conv_1",
				Title:     "First",
				UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				Messages: []message.PersistedMessage{
					{ID: "msg_1", Role: message.RoleUser, Content: "hello"},
				},
			},
		},
		Order:      []string{"conv_1"},
		SelectedID: "conv_1",
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("user_1")))

	snap, found, err := store.Load(ctx, "user_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "user_1", snap.UserID)
	assert.Equal(t, []string{"conv_1"}, snap.Order)
	require.Contains(t, snap.Chats, "conv_1")
	assert.Equal(t, "First", snap.Chats["conv_1"].Title)
}

func TestSave_Upserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("user_1")))

	updated := sampleSnapshot("user_1")
	rec := updated.Chats["conv_1"]
	rec.Title = "Renamed"
	updated.Chats["conv_1"] = rec
	require.NoError(t, store.Save(ctx, updated))

	snap, found, err := store.Load(ctx, "user_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Renamed", snap.Chats["conv_1"].Title)
}

func TestLoad_MissingUserIsNotFound(t *testing.T) {
	store := openTestStore(t)
	_, found, err := store.Load(context.Background(), "user_missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSave_RejectsAnonymousSnapshot(t *testing.T) {
	store := openTestStore(t)
	err := store.Save(context.Background(), conversation.Snapshot{})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("user_1")))
	require.NoError(t, store.Delete(ctx, "user_1"))

	_, found, err := store.Load(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, found)
}
