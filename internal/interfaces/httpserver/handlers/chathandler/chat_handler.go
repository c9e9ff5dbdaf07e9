package chathandler

import (
	"context"

	"github.com/rs/zerolog"

	"chat-client/internal/domain/chat"
	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/lifecycle"
	"chat-client/internal/domain/model"
	"chat-client/internal/domain/session"
	"chat-client/internal/utils/platformerrors"
)

// ChatHandler mediates between the HTTP routes and the conversation core.
type ChatHandler struct {
	store   *conversation.Store
	manager *lifecycle.Manager
	actions *chat.MessageActions
	session *session.StreamSession
	catalog *model.Catalog
	log     zerolog.Logger
}

func NewChatHandler(
	store *conversation.Store,
	manager *lifecycle.Manager,
	actions *chat.MessageActions,
	sess *session.StreamSession,
	catalog *model.Catalog,
	log zerolog.Logger,
) *ChatHandler {
	return &ChatHandler{
		store:   store,
		manager: manager,
		actions: actions,
		session: sess,
		catalog: catalog,
		log:     log.With().Str("handler", "chat").Logger(),
	}
}

// ListChats returns every conversation in display order plus the selection.
func (h *ChatHandler) ListChats() ([]conversation.Conversation, string) {
	return h.store.List(), h.store.SelectedID()
}

// GetChat returns one conversation.
func (h *ChatHandler) GetChat(ctx context.Context, id string) (conversation.Conversation, error) {
	c, ok := h.store.Get(id)
	if !ok {
		return conversation.Conversation{}, platformerrors.NewError(ctx, platformerrors.LayerHandler,
			platformerrors.ErrorTypeNotFound, "conversation not found", nil, "4a8d2c6e-0b3f-4e7a-9d1c-5f8b2e4a6c90")
	}
	return c, nil
}

// StatusOf returns the activity indicator for a conversation.
func (h *ChatHandler) StatusOf(id string) conversation.Status {
	return h.store.GetStatus(id)
}

// CreateChat starts a new conversation, reusing an empty placeholder when
// one exists.
func (h *ChatHandler) CreateChat(ctx context.Context, modelID string) (conversation.Conversation, error) {
	modelID = h.catalog.Resolve(modelID)
	id, err := h.manager.EnsureConversation(ctx, modelID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	return h.GetChat(ctx, id)
}

// SelectChat makes a conversation active and loads it into the session.
func (h *ChatHandler) SelectChat(id string) error {
	return h.manager.Open(id)
}

// DeleteChat removes a conversation everywhere.
func (h *ChatHandler) DeleteChat(ctx context.Context, id string) error {
	return h.manager.DeleteConversation(ctx, id)
}

// UpdateChat applies a partial update (title, pin, model).
func (h *ChatHandler) UpdateChat(ctx context.Context, id string, title, modelID *string, pinned *bool) (conversation.Conversation, error) {
	if _, ok := h.store.Get(id); !ok {
		return conversation.Conversation{}, platformerrors.NewError(ctx, platformerrors.LayerHandler,
			platformerrors.ErrorTypeNotFound, "conversation not found", nil, "6c2e8a4d-1f9b-4d3c-b7e5-0a4f6c8d2e13")
	}
	if title != nil {
		h.store.UpdateTitle(id, *title)
	}
	if pinned != nil {
		h.store.SetPinned(id, *pinned)
	}
	if modelID != nil {
		resolved := h.catalog.Resolve(*modelID)
		h.store.Apply(conversation.Upsert{ID: id, Model: &resolved})
	}
	return h.GetChat(ctx, id)
}

// SendMessage routes a user turn into the right conversation, creating one
// when nothing is selected, and starts a generation.
func (h *ChatHandler) SendMessage(ctx context.Context, chatID, text, modelID string) (string, error) {
	modelID = h.catalog.Resolve(modelID)

	if chatID != "" {
		if h.session.ConversationID() != chatID {
			if err := h.manager.Open(chatID); err != nil {
				return "", err
			}
		}
	} else {
		id, err := h.manager.EnsureConversation(ctx, modelID)
		if err != nil {
			return "", err
		}
		chatID = id
	}

	if err := h.session.SendMessage(ctx, text); err != nil {
		return "", err
	}
	h.store.TouchLastUserMessage(chatID)
	return chatID, nil
}

// StopGeneration aborts the in-flight generation, if any.
func (h *ChatHandler) StopGeneration() {
	h.session.Stop()
}

// EditMessage rewrites history at a user message and resends.
func (h *ChatHandler) EditMessage(ctx context.Context, chatID, messageID, text string) error {
	return h.actions.EditMessage(ctx, chatID, messageID, text)
}

// DeleteMessage removes a message and its cascade.
func (h *ChatHandler) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return h.actions.DeleteMessage(ctx, chatID, messageID)
}

// RegenerateMessage re-runs generation for an assistant message.
func (h *ChatHandler) RegenerateMessage(ctx context.Context, chatID, messageID string) error {
	return h.actions.RegenerateMessage(ctx, chatID, messageID)
}

// AddCheckpoint records a manual restore point.
func (h *ChatHandler) AddCheckpoint(ctx context.Context, chatID string, messageIndex int) (conversation.Checkpoint, error) {
	return h.actions.AddCheckpoint(ctx, chatID, messageIndex)
}

// RestoreCheckpoint rolls a conversation back.
func (h *ChatHandler) RestoreCheckpoint(ctx context.Context, chatID, checkpointID string) (conversation.Conversation, error) {
	if err := h.actions.RestoreCheckpoint(ctx, chatID, checkpointID); err != nil {
		return conversation.Conversation{}, err
	}
	return h.GetChat(ctx, chatID)
}

// ListModels returns the cached catalog, refreshing it on first use.
func (h *ChatHandler) ListModels(ctx context.Context) ([]model.Info, error) {
	if !h.catalog.Fetched() {
		if err := h.catalog.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return h.catalog.Models(), nil
}
