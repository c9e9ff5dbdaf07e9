package conversation

import (
	"time"

	"chat-client/internal/domain/message"
	"chat-client/internal/domain/session"
	"chat-client/internal/utils/functional"
)

// DefaultTitle is the placeholder given to a conversation before its first
// user turn produces a real one.
const DefaultTitle = "New chat"

// Checkpoint marks a restorable point in a conversation's history. Restoring
// keeps messages strictly before MessageIndex.
type Checkpoint struct {
	ID           string    `json:"id"`
	MessageIndex int       `json:"messageIndex"`
	Timestamp    time.Time `json:"timestamp"`
}

// Conversation is the authoritative record for one chat thread.
type Conversation struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Pinned            bool              `json:"pinned"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	LastUserMessageAt time.Time         `json:"lastUserMessageAt,omitempty"`
	Model             string            `json:"model,omitempty"`
	Suggestions       []string          `json:"suggestions,omitempty"`
	Messages          []message.Message `json:"messages"`
	Checkpoints       []Checkpoint      `json:"checkpoints,omitempty"`
}

// HasUserMessages reports whether the thread contains at least one user turn.
func (c *Conversation) HasUserMessages() bool {
	return functional.Any(c.Messages, func(m message.Message) bool {
		return m.Role == message.RoleUser
	})
}

// IsUnusedNewChat reports whether the conversation is an empty placeholder
// that can be reused instead of creating another one.
func (c *Conversation) IsUnusedNewChat() bool {
	if c.Title != "" && c.Title != DefaultTitle {
		return false
	}
	return !c.HasUserMessages()
}

// sortKey is the recency used for ordering. Conversations that never saw a
// user turn fall back to their update time.
func (c *Conversation) sortKey() time.Time {
	if !c.LastUserMessageAt.IsZero() {
		return c.LastUserMessageAt
	}
	return c.UpdatedAt
}

// clone returns a copy safe to hand to callers; slices are duplicated so
// store internals never leak.
func (c *Conversation) clone() Conversation {
	out := *c
	out.Suggestions = append([]string(nil), c.Suggestions...)
	out.Messages = append([]message.Message(nil), c.Messages...)
	out.Checkpoints = append([]Checkpoint(nil), c.Checkpoints...)
	return out
}

// Status is the per-conversation activity indicator shown in listings.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// StatusFromSession maps the transport status onto the listing indicator.
func StatusFromSession(st session.Status) Status {
	switch st {
	case session.StatusSubmitted:
		return StatusLoading
	case session.StatusStreaming:
		return StatusStreaming
	case session.StatusError:
		return StatusError
	default:
		return StatusIdle
	}
}
