package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/message"
	"chat-client/internal/domain/session"
	"chat-client/internal/utils/idgen"
	"chat-client/internal/utils/platformerrors"
)

// RemoteChat is the backend's view of a freshly created conversation.
type RemoteChat struct {
	ID    string
	Title string
	Model string
}

// Gateway is the slice of the backend the lifecycle needs.
type Gateway interface {
	CreateChat(ctx context.Context, model string) (RemoteChat, error)
	DeleteChat(ctx context.Context, chatID string) error
}

// Config tunes lifecycle behavior.
type Config struct {
	CreateTimeout time.Duration
	DeleteTimeout time.Duration
	DefaultModel  string

	// LocalFallback synthesizes a locally identified conversation when the
	// backend create fails, instead of surfacing the error. Local ids live
	// outside the backend id space until reconciled.
	LocalFallback bool
}

// Manager owns conversation creation, selection, and deletion. Creation is
// single-flight: burst calls share one backend round-trip. Deletions are
// guarded per conversation so a double-tap cannot issue two deletes.
type Manager struct {
	store   *conversation.Store
	gateway Gateway
	session *session.StreamSession
	cfg     Config
	log     zerolog.Logger

	createGroup singleflight.Group

	mu       sync.Mutex
	deleting map[string]bool
}

func NewManager(store *conversation.Store, gateway Gateway, sess *session.StreamSession, cfg Config, log zerolog.Logger) *Manager {
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = 10 * time.Second
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = 10 * time.Second
	}
	return &Manager{
		store:    store,
		gateway:  gateway,
		session:  sess,
		cfg:      cfg,
		log:      log.With().Str("component", "lifecycle").Logger(),
		deleting: make(map[string]bool),
	}
}

// FindExistingNewChat returns the id of a reusable empty placeholder
// conversation, checking the selection first and then display order.
func (m *Manager) FindExistingNewChat() (string, bool) {
	if c, ok := m.store.Selected(); ok && c.IsUnusedNewChat() {
		return c.ID, true
	}
	for _, c := range m.store.List() {
		if c.IsUnusedNewChat() {
			return c.ID, true
		}
	}
	return "", false
}

// CreateConversation registers a new conversation with the backend, stores
// it, selects it, and rebinds the live session. Concurrent calls coalesce
// into a single backend request and all receive the same id.
func (m *Manager) CreateConversation(ctx context.Context, model string) (string, error) {
	if model == "" {
		model = m.cfg.DefaultModel
	}

	id, err, _ := m.createGroup.Do("create", func() (any, error) {
		return m.doCreate(ctx, model)
	})
	if err != nil {
		return "", err
	}
	return id.(string), nil
}

func (m *Manager) doCreate(ctx context.Context, model string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CreateTimeout)
	defer cancel()

	remote, err := m.gateway.CreateChat(ctx, model)
	if err != nil {
		if platformerrors.IsAborted(err) {
			return "", err
		}
		if !m.cfg.LocalFallback {
			m.log.Error().Err(err).Msg("backend create failed")
			return "", err
		}

		localID, idErr := idgen.GenerateLocalID()
		if idErr != nil {
			return "", idErr
		}
		m.log.Warn().Err(err).Str("conversation_id", localID).Msg("backend create failed, using local conversation")
		remote = RemoteChat{ID: localID, Title: conversation.DefaultTitle, Model: model}
	}

	title := remote.Title
	if title == "" {
		title = conversation.DefaultTitle
	}
	m.store.Apply(conversation.Upsert{
		ID:       remote.ID,
		Title:    &title,
		Model:    &model,
		Messages: []message.Message{},
	})
	m.activate(remote.ID, model)
	return remote.ID, nil
}

// EnsureConversation returns the conversation new input should land in: the
// current selection, a reusable placeholder, or a newly created one.
func (m *Manager) EnsureConversation(ctx context.Context, model string) (string, error) {
	if id := m.store.SelectedID(); id != "" {
		return id, nil
	}
	if id, ok := m.FindExistingNewChat(); ok {
		m.activate(id, model)
		return id, nil
	}
	return m.CreateConversation(ctx, model)
}

// Open selects an existing conversation and loads its messages into the
// live session.
func (m *Manager) Open(id string) error {
	c, ok := m.store.Get(id)
	if !ok {
		return platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"conversation not found", nil, "8b4f2c6d-0a9e-4f1b-b3c7-5d2e8f0a6c94")
	}
	m.store.Select(id)
	m.session.Bind(id, c.Model)
	m.session.SetMessages(c.Messages)
	return nil
}

// DeleteConversation removes a conversation from the backend and the store,
// then moves the selection to the next conversation in display order.
// Aborted requests leave everything untouched.
func (m *Manager) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.deleting[id] {
		m.mu.Unlock()
		return nil
	}
	m.deleting[id] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.deleting, id)
		m.mu.Unlock()
	}()

	if _, ok := m.store.Get(id); !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"conversation not found", nil, "1f7d3a9c-6e2b-4c8f-a0d5-9b4e7c1f3a62")
	}

	// Local conversations never reached the backend; skip the round-trip.
	if !idgen.IsLocalID(id) {
		delCtx, cancel := context.WithTimeout(ctx, m.cfg.DeleteTimeout)
		defer cancel()
		if err := m.gateway.DeleteChat(delCtx, id); err != nil {
			if platformerrors.IsAborted(err) {
				return nil
			}
			m.log.Error().Err(err).Str("conversation_id", id).Msg("backend delete failed")
			return err
		}
	}

	wasSelected := m.store.SelectedID() == id
	m.store.Remove(id)

	if wasSelected {
		if order := m.store.Order(); len(order) > 0 {
			if err := m.Open(order[0]); err != nil {
				m.log.Warn().Err(err).Msg("unable to open next conversation after delete")
			}
		} else {
			m.session.Bind("", m.cfg.DefaultModel)
		}
	}
	return nil
}

// activate selects a conversation and rebinds the live session, loading the
// stored messages (empty for a fresh conversation).
func (m *Manager) activate(id, model string) {
	m.store.Select(id)
	m.session.Bind(id, model)
	if c, ok := m.store.Get(id); ok {
		m.session.SetMessages(c.Messages)
	}
}
