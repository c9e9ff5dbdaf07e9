package backend

import (
	"context"
	"time"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/lifecycle"
	"chat-client/internal/domain/message"
	"chat-client/internal/domain/model"
	"chat-client/internal/utils/functional"
)

// Gateway adapts Client to the interfaces the domain layer consumes:
// lifecycle.Gateway, chat.Persister, chat.Suggester, and model.Lister.
type Gateway struct {
	client *Client
}

func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

var _ lifecycle.Gateway = (*Gateway)(nil)
var _ model.Lister = (*Gateway)(nil)

func (g *Gateway) CreateChat(ctx context.Context, modelID string) (lifecycle.RemoteChat, error) {
	chat, err := g.client.CreateChat(ctx, modelID)
	if err != nil {
		return lifecycle.RemoteChat{}, err
	}
	return lifecycle.RemoteChat{ID: chat.ID, Title: chat.Title, Model: chat.Model}, nil
}

func (g *Gateway) DeleteChat(ctx context.Context, chatID string) error {
	return g.client.DeleteChat(ctx, chatID)
}

// PersistChat pushes the full authoritative record for one conversation.
func (g *Gateway) PersistChat(ctx context.Context, conv conversation.Conversation) error {
	return g.client.UpdateChat(ctx, conv.ID, UpdateChatRequest{
		Title:       &conv.Title,
		Pinned:      &conv.Pinned,
		Model:       &conv.Model,
		Messages:    message.ToPersistedList(conv.Messages, time.Now().UTC()),
		Checkpoints: conv.Checkpoints,
	})
}

func (g *Gateway) GenerateSuggestions(ctx context.Context, conv conversation.Conversation) ([]string, error) {
	return g.client.GenerateSuggestions(ctx, conv.ID, message.ToPersistedList(conv.Messages, time.Now().UTC()))
}

func (g *Gateway) ListModels(ctx context.Context) ([]model.Info, error) {
	models, err := g.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return functional.Map(models, func(m ModelInfo) model.Info {
		return model.Info{ID: m.ID, DisplayName: m.DisplayName, OwnedBy: m.OwnedBy}
	}), nil
}
