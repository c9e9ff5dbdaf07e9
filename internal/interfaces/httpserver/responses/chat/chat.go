package chat

import (
	"time"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/message"
	"chat-client/internal/domain/model"
	"chat-client/internal/utils/functional"
)

// ChatSummary is the listing row for one conversation.
type ChatSummary struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Pinned            bool      `json:"pinned"`
	Model             string    `json:"model,omitempty"`
	Status            string    `json:"status"`
	UpdatedAt         time.Time `json:"updated_at"`
	LastUserMessageAt time.Time `json:"last_user_message_at,omitempty"`
	MessageCount      int       `json:"message_count"`
}

// ChatDetail is the full conversation payload.
type ChatDetail struct {
	ChatSummary
	Messages    []message.Message         `json:"messages"`
	Suggestions []string                  `json:"suggestions,omitempty"`
	Checkpoints []conversation.Checkpoint `json:"checkpoints,omitempty"`
}

// ChatListResponse wraps the ordered listing.
type ChatListResponse struct {
	Object     string        `json:"object"`
	Data       []ChatSummary `json:"data"`
	SelectedID string        `json:"selected_id,omitempty"`
}

// CheckpointResponse wraps a single checkpoint.
type CheckpointResponse struct {
	Checkpoint conversation.Checkpoint `json:"checkpoint"`
}

// ModelListResponse wraps the model catalog.
type ModelListResponse struct {
	Object string       `json:"object"`
	Data   []model.Info `json:"data"`
}

// SendMessageResponse acknowledges an accepted generation.
type SendMessageResponse struct {
	ChatID string `json:"chat_id"`
	Status string `json:"status"`
}

func NewChatSummary(c conversation.Conversation, status conversation.Status) ChatSummary {
	return ChatSummary{
		ID:                c.ID,
		Title:             c.Title,
		Pinned:            c.Pinned,
		Model:             c.Model,
		Status:            string(status),
		UpdatedAt:         c.UpdatedAt,
		LastUserMessageAt: c.LastUserMessageAt,
		MessageCount:      len(c.Messages),
	}
}

func NewChatDetail(c conversation.Conversation, status conversation.Status) ChatDetail {
	return ChatDetail{
		ChatSummary: NewChatSummary(c, status),
		Messages:    c.Messages,
		Suggestions: c.Suggestions,
		Checkpoints: c.Checkpoints,
	}
}

func NewChatListResponse(chats []conversation.Conversation, statusOf func(string) conversation.Status, selectedID string) ChatListResponse {
	return ChatListResponse{
		Object: "list",
		Data: functional.Map(chats, func(c conversation.Conversation) ChatSummary {
			return NewChatSummary(c, statusOf(c.ID))
		}),
		SelectedID: selectedID,
	}
}
