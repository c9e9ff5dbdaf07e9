package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/lifecycle"
	"chat-client/internal/domain/message"
	"chat-client/internal/domain/session"
)

type fakeGateway struct {
	mu          sync.Mutex
	createCalls int32
	deleteCalls []string
	createErr   error
	deleteErr   error
	createDelay time.Duration
	nextID      int
}

func (f *fakeGateway) CreateChat(ctx context.Context, model string) (lifecycle.RemoteChat, error) {
	atomic.AddInt32(&f.createCalls, 1)
	if f.createDelay > 0 {
		select {
		case <-time.After(f.createDelay):
		case <-ctx.Done():
			return lifecycle.RemoteChat{}, ctx.Err()
		}
	}
	if f.createErr != nil {
		return lifecycle.RemoteChat{}, f.createErr
	}
	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("conv_%d", f.nextID)
	f.mu.Unlock()
	return lifecycle.RemoteChat{ID: id, Title: conversation.DefaultTitle, Model: model}, nil
}

func (f *fakeGateway) DeleteChat(ctx context.Context, chatID string) error {
	f.mu.Lock()
	f.deleteCalls = append(f.deleteCalls, chatID)
	f.mu.Unlock()
	return f.deleteErr
}

type noopStreamer struct{}

func (noopStreamer) Stream(ctx context.Context, req session.Request) (<-chan session.Event, error) {
	ch := make(chan session.Event)
	close(ch)
	return ch, nil
}

func newManager(t *testing.T, gw *fakeGateway, cfg lifecycle.Config) (*lifecycle.Manager, *conversation.Store, *session.StreamSession) {
	t.Helper()
	store := conversation.NewStore(conversation.DefaultStoreConfig(), zerolog.Nop())
	sess := session.New(noopStreamer{}, zerolog.Nop())
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "jan-v1"
	}
	return lifecycle.NewManager(store, gw, sess, cfg, zerolog.Nop()), store, sess
}

func TestCreateConversation_StoresSelectsAndBinds(t *testing.T) {
	gw := &fakeGateway{}
	m, store, sess := newManager(t, gw, lifecycle.Config{})

	id, err := m.CreateConversation(context.Background(), "jan-v1")
	require.NoError(t, err)
	require.Equal(t, "conv_1", id)

	c, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, conversation.DefaultTitle, c.Title)
	assert.Equal(t, "jan-v1", c.Model)
	assert.Equal(t, id, store.SelectedID())
	assert.Equal(t, id, sess.ConversationID())
	assert.Empty(t, sess.Messages())
}

func TestCreateConversation_BurstSharesOneBackendCall(t *testing.T) {
	gw := &fakeGateway{createDelay: 50 * time.Millisecond}
	m, _, _ := newManager(t, gw, lifecycle.Config{})

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.CreateConversation(context.Background(), "jan-v1")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&gw.createCalls))
	for _, id := range ids {
		assert.Equal(t, ids[0], id, "all callers must share the same conversation")
	}
}

func TestCreateConversation_FailureSurfacesWithoutFallback(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("backend down")}
	m, store, _ := newManager(t, gw, lifecycle.Config{})

	_, err := m.CreateConversation(context.Background(), "jan-v1")
	require.Error(t, err)
	assert.Empty(t, store.List(), "failed create must not leave a record behind")
}

func TestCreateConversation_LocalFallback(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("backend down")}
	m, store, _ := newManager(t, gw, lifecycle.Config{LocalFallback: true})

	id, err := m.CreateConversation(context.Background(), "jan-v1")
	require.NoError(t, err)
	assert.True(t, len(id) > 6 && id[:6] == "local_", "fallback id must be locally scoped, got %s", id)

	_, ok := store.Get(id)
	assert.True(t, ok)
	assert.Equal(t, id, store.SelectedID())
}

func TestFindExistingNewChat_PrefersSelection(t *testing.T) {
	gw := &fakeGateway{}
	m, store, _ := newManager(t, gw, lifecycle.Config{})

	store.Apply(conversation.Upsert{ID: "conv_a"})
	store.Apply(conversation.Upsert{ID: "conv_b"})
	store.Select("conv_b")

	id, ok := m.FindExistingNewChat()
	require.True(t, ok)
	assert.Equal(t, "conv_b", id)
}

func TestFindExistingNewChat_IgnoresUsedConversations(t *testing.T) {
	gw := &fakeGateway{}
	m, store, _ := newManager(t, gw, lifecycle.Config{})

	title := "Real talk"
	store.Apply(conversation.Upsert{ID: "conv_a", Title: &title})
	store.UpdateMessages("conv_a", []message.Message{message.NewUserMessage("msg_1", "hi")})

	_, ok := m.FindExistingNewChat()
	assert.False(t, ok)
}

func TestEnsureConversation_ReusesPlaceholderInsteadOfCreating(t *testing.T) {
	gw := &fakeGateway{}
	m, store, _ := newManager(t, gw, lifecycle.Config{})

	store.Apply(conversation.Upsert{ID: "conv_empty"})

	id, err := m.EnsureConversation(context.Background(), "jan-v1")
	require.NoError(t, err)
	assert.Equal(t, "conv_empty", id)
	assert.Equal(t, int32(0), atomic.LoadInt32(&gw.createCalls))
	assert.Equal(t, "conv_empty", store.SelectedID())
}

func TestEnsureConversation_CreatesWhenNothingReusable(t *testing.T) {
	gw := &fakeGateway{}
	m, _, _ := newManager(t, gw, lifecycle.Config{})

	id, err := m.EnsureConversation(context.Background(), "jan-v1")
	require.NoError(t, err)
	assert.Equal(t, "conv_1", id)
	assert.Equal(t, int32(1), atomic.LoadInt32(&gw.createCalls))
}

func TestDeleteConversation_SelectsNextInOrder(t *testing.T) {
	gw := &fakeGateway{}
	m, store, _ := newManager(t, gw, lifecycle.Config{})

	store.Apply(conversation.Upsert{ID: "conv_a"})
	store.Apply(conversation.Upsert{ID: "conv_b"})
	store.UpdateMessages("conv_a", []message.Message{message.NewUserMessage("msg_1", "hi")})
	store.UpdateMessages("conv_b", []message.Message{message.NewUserMessage("msg_2", "yo")})
	store.Select("conv_b")

	require.NoError(t, m.DeleteConversation(context.Background(), "conv_b"))

	assert.Equal(t, []string{"conv_b"}, gw.deleteCalls)
	_, ok := store.Get("conv_b")
	assert.False(t, ok)
	assert.Equal(t, "conv_a", store.SelectedID())
}

func TestDeleteConversation_LastOneClearsSelection(t *testing.T) {
	gw := &fakeGateway{}
	m, store, sess := newManager(t, gw, lifecycle.Config{})

	store.Apply(conversation.Upsert{ID: "conv_a"})
	store.Select("conv_a")

	require.NoError(t, m.DeleteConversation(context.Background(), "conv_a"))
	assert.Empty(t, store.SelectedID())
	assert.Empty(t, sess.ConversationID())
}

func TestDeleteConversation_BackendFailureKeepsRecord(t *testing.T) {
	gw := &fakeGateway{deleteErr: errors.New("backend down")}
	m, store, _ := newManager(t, gw, lifecycle.Config{})

	store.Apply(conversation.Upsert{ID: "conv_a"})
	require.Error(t, m.DeleteConversation(context.Background(), "conv_a"))

	_, ok := store.Get("conv_a")
	assert.True(t, ok, "record survives when the backend delete fails")
}

func TestDeleteConversation_LocalIDSkipsBackend(t *testing.T) {
	gw := &fakeGateway{}
	m, store, _ := newManager(t, gw, lifecycle.Config{})

	store.Apply(conversation.Upsert{ID: "local_abc123"})
	require.NoError(t, m.DeleteConversation(context.Background(), "local_abc123"))

	assert.Empty(t, gw.deleteCalls)
	_, ok := store.Get("local_abc123")
	assert.False(t, ok)
}

func TestOpen_LoadsMessagesIntoSession(t *testing.T) {
	gw := &fakeGateway{}
	m, store, sess := newManager(t, gw, lifecycle.Config{})

	store.Apply(conversation.Upsert{ID: "conv_a", Messages: []message.Message{
		message.NewUserMessage("msg_1", "hello"),
	}})

	require.NoError(t, m.Open("conv_a"))
	assert.Equal(t, "conv_a", sess.ConversationID())
	require.Len(t, sess.Messages(), 1)
	assert.Equal(t, "hello", sess.Messages()[0].TextContent())

	require.Error(t, m.Open("conv_missing"))
}
