package conversation_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/message"
	"chat-client/internal/domain/session"
)

// testClock hands out strictly increasing timestamps.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) (*conversation.Store, *testClock) {
	t.Helper()
	clock := newTestClock()
	cfg := conversation.StoreConfig{MaxCheckpoints: 3, Now: clock.Now}
	return conversation.NewStore(cfg, zerolog.Nop()), clock
}

func strptr(s string) *string { return &s }

func seedConversation(t *testing.T, s *conversation.Store, id, title string) {
	t.Helper()
	s.Apply(conversation.Upsert{ID: id, Title: strptr(title)})
}

func TestApply_InsertAndMerge(t *testing.T) {
	s, _ := newTestStore(t)

	s.Apply(conversation.Upsert{ID: "conv_1", Title: strptr("First")})
	c, ok := s.Get("conv_1")
	require.True(t, ok)
	assert.Equal(t, "First", c.Title)
	assert.False(t, c.UpdatedAt.IsZero())
	assert.Equal(t, conversation.StatusIdle, s.GetStatus("conv_1"))

	// Partial update keeps untouched fields.
	pinned := true
	s.Apply(conversation.Upsert{ID: "conv_1", Pinned: &pinned})
	c, _ = s.Get("conv_1")
	assert.Equal(t, "First", c.Title)
	assert.True(t, c.Pinned)
}

func TestApply_NewRecordGetsDefaultTitle(t *testing.T) {
	s, _ := newTestStore(t)
	s.Apply(conversation.Upsert{ID: "conv_1"})
	c, _ := s.Get("conv_1")
	assert.Equal(t, conversation.DefaultTitle, c.Title)
	assert.True(t, c.IsUnusedNewChat())
}

func TestUpdateMessages_EqualListIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")

	msgs := []message.Message{message.NewUserMessage("msg_1", "hello")}
	require.True(t, s.UpdateMessages("conv_1", msgs))
	before, _ := s.Get("conv_1")

	// Same content again: no change reported, timestamps untouched.
	require.False(t, s.UpdateMessages("conv_1", []message.Message{message.NewUserMessage("msg_1", "hello")}))
	after, _ := s.Get("conv_1")
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.LastUserMessageAt, after.LastUserMessageAt)
}

func TestUpdateMessages_AssistantDeltaDoesNotBumpRecency(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")

	user := message.NewUserMessage("msg_1", "hello")
	require.True(t, s.UpdateMessages("conv_1", []message.Message{user}))
	afterUser, _ := s.Get("conv_1")
	require.False(t, afterUser.LastUserMessageAt.IsZero())

	// Streaming assistant content grows the list without a new user turn.
	withAssistant := []message.Message{
		user,
		{ID: "msg_2", Role: message.RoleAssistant, Parts: []message.Part{message.NewTextPart("hi")}},
	}
	require.True(t, s.UpdateMessages("conv_1", withAssistant))
	afterAssistant, _ := s.Get("conv_1")
	assert.Equal(t, afterUser.LastUserMessageAt, afterAssistant.LastUserMessageAt)
	// Message sync never owns UpdatedAt, so streaming cannot reorder the list.
	assert.Equal(t, afterUser.UpdatedAt, afterAssistant.UpdatedAt)
}

func TestOrder_NewestUserActivityFirst(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")
	seedConversation(t, s, "conv_2", "Second")
	seedConversation(t, s, "conv_3", "Third")

	// conv_1 gets the most recent user turn.
	require.True(t, s.UpdateMessages("conv_2", []message.Message{message.NewUserMessage("msg_1", "a")}))
	require.True(t, s.UpdateMessages("conv_1", []message.Message{message.NewUserMessage("msg_2", "b")}))

	assert.Equal(t, []string{"conv_1", "conv_2", "conv_3"}, s.Order())
}

func TestOrder_TitleEditDoesNotReshuffle(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")
	seedConversation(t, s, "conv_2", "Second")

	require.True(t, s.UpdateMessages("conv_1", []message.Message{message.NewUserMessage("msg_1", "a")}))
	require.True(t, s.UpdateMessages("conv_2", []message.Message{message.NewUserMessage("msg_2", "b")}))
	require.Equal(t, []string{"conv_2", "conv_1"}, s.Order())

	s.UpdateTitle("conv_1", "Renamed")
	assert.Equal(t, []string{"conv_2", "conv_1"}, s.Order())

	c, _ := s.Get("conv_1")
	assert.Equal(t, "Renamed", c.Title)
}

func TestSelect_UnknownIDIgnored(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")

	s.Select("conv_1")
	assert.Equal(t, "conv_1", s.SelectedID())

	s.Select("conv_missing")
	assert.Equal(t, "conv_1", s.SelectedID())

	s.Select("")
	assert.Empty(t, s.SelectedID())
}

func TestRemove_ClearsSelection(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")
	seedConversation(t, s, "conv_2", "Second")
	s.Select("conv_1")

	s.Remove("conv_1")
	assert.Empty(t, s.SelectedID())
	assert.Equal(t, []string{"conv_2"}, s.Order())
	_, ok := s.Get("conv_1")
	assert.False(t, ok)
	assert.Equal(t, conversation.StatusIdle, s.GetStatus("conv_1"))
}

func TestAddCheckpoint_BoundsAndEviction(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")
	msgs := []message.Message{
		message.NewUserMessage("msg_1", "a"),
		{ID: "msg_2", Role: message.RoleAssistant, Parts: []message.Part{message.NewTextPart("b")}},
	}
	require.True(t, s.UpdateMessages("conv_1", msgs))

	_, ok := s.AddCheckpoint("conv_1", -1)
	assert.False(t, ok)
	_, ok = s.AddCheckpoint("conv_1", 3)
	assert.False(t, ok)

	// len(messages) itself is a valid index: restore-to-end.
	first, ok := s.AddCheckpoint("conv_1", 2)
	require.True(t, ok)
	assert.NotEmpty(t, first.ID)

	// Cap is 3: the fourth insert evicts the oldest by timestamp.
	_, _ = s.AddCheckpoint("conv_1", 0)
	_, _ = s.AddCheckpoint("conv_1", 1)
	_, _ = s.AddCheckpoint("conv_1", 2)

	c, _ := s.Get("conv_1")
	require.Len(t, c.Checkpoints, 3)
	for _, cp := range c.Checkpoints {
		assert.NotEqual(t, first.ID, cp.ID, "oldest checkpoint should be evicted")
	}
}

func TestRestoreCheckpoint_TruncatesAndPrunes(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")
	msgs := []message.Message{
		message.NewUserMessage("msg_1", "q1"),
		{ID: "msg_2", Role: message.RoleAssistant, Parts: []message.Part{message.NewTextPart("a1")}},
		message.NewUserMessage("msg_3", "q2"),
		{ID: "msg_4", Role: message.RoleAssistant, Parts: []message.Part{message.NewTextPart("a2")}},
	}
	require.True(t, s.UpdateMessages("conv_1", msgs))

	early, ok := s.AddCheckpoint("conv_1", 1)
	require.True(t, ok)
	mid, ok := s.AddCheckpoint("conv_1", 2)
	require.True(t, ok)
	late, ok := s.AddCheckpoint("conv_1", 3)
	require.True(t, ok)

	restored, ok := s.RestoreCheckpoint("conv_1", mid.ID)
	require.True(t, ok)
	assert.Equal(t, 2, restored.MessageIndex)

	c, _ := s.Get("conv_1")
	// Messages strictly before index 2 survive.
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "msg_1", c.Messages[0].ID)
	assert.Equal(t, "msg_2", c.Messages[1].ID)

	// Checkpoints at or beyond the restored index are gone, including the
	// restored one.
	require.Len(t, c.Checkpoints, 1)
	assert.Equal(t, early.ID, c.Checkpoints[0].ID)
	_ = late

	_, ok = s.RestoreCheckpoint("conv_1", "nope")
	assert.False(t, ok)
}

func TestRestoreCheckpoint_StaleIndexIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")
	msgs := []message.Message{
		message.NewUserMessage("msg_1", "q1"),
		{ID: "msg_2", Role: message.RoleAssistant, Parts: []message.Part{message.NewTextPart("a1")}},
		message.NewUserMessage("msg_3", "q2"),
		{ID: "msg_4", Role: message.RoleAssistant, Parts: []message.Part{message.NewTextPart("a2")}},
	}
	require.True(t, s.UpdateMessages("conv_1", msgs))

	keep, ok := s.AddCheckpoint("conv_1", 1)
	require.True(t, ok)
	stale, ok := s.AddCheckpoint("conv_1", 3)
	require.True(t, ok)

	// The history shrinks below the second checkpoint's index.
	require.True(t, s.UpdateMessages("conv_1", msgs[:2]))

	_, ok = s.RestoreCheckpoint("conv_1", stale.ID)
	assert.False(t, ok)

	// Nothing was truncated or pruned by the rejected restore.
	c, _ := s.Get("conv_1")
	assert.Len(t, c.Messages, 2)
	require.Len(t, c.Checkpoints, 2)
	assert.Equal(t, keep.ID, c.Checkpoints[0].ID)
	assert.Equal(t, stale.ID, c.Checkpoints[1].ID)
}

func TestReset_ClearsHydrationState(t *testing.T) {
	s, clock := newTestStore(t)
	require.NoError(t, s.Hydrate(conversation.Snapshot{UserID: "user_1", SavedAt: clock.Now()}))
	require.True(t, s.Hydrated())
	seedConversation(t, s, "conv_1", "First")

	s.Reset()
	assert.False(t, s.Hydrated())
	assert.Empty(t, s.UserID())
	assert.Empty(t, s.List())
	assert.Empty(t, s.SelectedID())
}

func TestSuggestions_SetAndClear(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "First")

	s.SetSuggestions("conv_1", []string{"one", "two"})
	c, _ := s.Get("conv_1")
	assert.Equal(t, []string{"one", "two"}, c.Suggestions)

	s.ClearSuggestions("conv_1")
	c, _ = s.Get("conv_1")
	assert.Empty(t, c.Suggestions)
}

func TestStatusFromSession(t *testing.T) {
	assert.Equal(t, conversation.StatusLoading, conversation.StatusFromSession(session.StatusSubmitted))
	assert.Equal(t, conversation.StatusStreaming, conversation.StatusFromSession(session.StatusStreaming))
	assert.Equal(t, conversation.StatusError, conversation.StatusFromSession(session.StatusError))
	assert.Equal(t, conversation.StatusIdle, conversation.StatusFromSession(session.StatusReady))
}

func TestHydrate_SkipsMalformedEntries(t *testing.T) {
	s, clock := newTestStore(t)

	snap := conversation.Snapshot{
		UserID: "user_1",
		Chats: map[string]conversation.ChatRecord{
			"conv_1": {
				ID:        "conv_1",
				Title:     "Good",
				UpdatedAt: clock.Now(),
				Messages: []message.PersistedMessage{
					{ID: "msg_1", Role: message.RoleUser, Content: "hello"},
					{ID: "", Role: message.RoleUser, Content: "dropped"},
				},
				Checkpoints: []conversation.Checkpoint{
					{ID: "cp_1", MessageIndex: 1, Timestamp: clock.Now()},
					{ID: "cp_2", MessageIndex: 9, Timestamp: clock.Now()}, // out of range, pruned
				},
			},
			"conv_bad": {Title: "No updatedAt", ID: "conv_bad"},
		},
		Order:      []string{"conv_1", "conv_bad", "conv_1"},
		SelectedID: "conv_1",
	}

	require.NoError(t, s.Hydrate(snap))
	assert.True(t, s.Hydrated())

	c, ok := s.Get("conv_1")
	require.True(t, ok)
	require.Len(t, c.Messages, 1)
	require.Len(t, c.Checkpoints, 1)
	assert.Equal(t, "cp_1", c.Checkpoints[0].ID)

	_, ok = s.Get("conv_bad")
	assert.False(t, ok)

	assert.Equal(t, []string{"conv_1"}, s.Order())
	assert.Equal(t, "conv_1", s.SelectedID())
	assert.Equal(t, "user_1", s.UserID())
}

func TestHydrate_MissingUserIDLeavesEmptyStore(t *testing.T) {
	s, _ := newTestStore(t)
	seedConversation(t, s, "conv_1", "Stale")

	err := s.Hydrate(conversation.Snapshot{})
	require.Error(t, err)
	assert.True(t, s.Hydrated())
	assert.Empty(t, s.List())
	assert.Empty(t, s.SelectedID())
}

func TestHydrate_UserSwitchResetsState(t *testing.T) {
	s, clock := newTestStore(t)

	first := conversation.Snapshot{
		UserID: "user_1",
		Chats: map[string]conversation.ChatRecord{
			"conv_1": {ID: "conv_1", Title: "Mine", UpdatedAt: clock.Now()},
		},
		Order: []string{"conv_1"},
	}
	require.NoError(t, s.Hydrate(first))
	s.Select("conv_1")

	second := conversation.Snapshot{
		UserID: "user_2",
		Chats: map[string]conversation.ChatRecord{
			"conv_9": {ID: "conv_9", Title: "Theirs", UpdatedAt: clock.Now()},
		},
		Order: []string{"conv_9"},
	}
	require.NoError(t, s.Hydrate(second))

	_, ok := s.Get("conv_1")
	assert.False(t, ok, "previous user's conversations must be gone")
	_, ok = s.Get("conv_9")
	assert.True(t, ok)
	assert.Empty(t, s.SelectedID())
	assert.Equal(t, "user_2", s.UserID())
}

func TestExportHydrate_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetUser("user_1")
	seedConversation(t, s, "conv_1", "First")
	require.True(t, s.UpdateMessages("conv_1", []message.Message{
		message.NewUserMessage("msg_1", "hello"),
		{ID: "msg_2", Role: message.RoleAssistant, Parts: []message.Part{
			message.NewReasoningPart("hmm"),
			message.NewTextPart("hi"),
		}},
	}))
	_, ok := s.AddCheckpoint("conv_1", 1)
	require.True(t, ok)
	s.Select("conv_1")

	snap := s.Export()
	assert.Equal(t, "user_1", snap.UserID)

	restored := conversation.NewStore(conversation.DefaultStoreConfig(), zerolog.Nop())
	require.NoError(t, restored.Hydrate(snap))

	c, ok := restored.Get("conv_1")
	require.True(t, ok)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "hello", c.Messages[0].TextContent())
	require.Len(t, c.Messages[1].Parts, 2)
	assert.True(t, c.Messages[1].Parts[0].IsReasoning())
	require.Len(t, c.Checkpoints, 1)
	assert.Equal(t, "conv_1", restored.SelectedID())
}
