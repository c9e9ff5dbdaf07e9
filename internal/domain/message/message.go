package message

import (
	"strings"
	"time"

	"chat-client/internal/utils/functional"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func ValidateRole(input string) bool {
	switch Role(input) {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is one turn of a conversation: an id, a role, and an ordered
// part sequence. Ids are unique within a conversation.
type Message struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserMessage builds a single-text-part user turn.
func NewUserMessage(id, text string) Message {
	return Message{ID: id, Role: RoleUser, Parts: []Part{NewTextPart(text)}}
}

// EqualTo compares by id, role, and serialized parts. This is the equality
// the store's sync short-circuit relies on.
func (m Message) EqualTo(other Message) bool {
	return m.ID == other.ID && m.Role == other.Role && PartsEqual(m.Parts, other.Parts)
}

// MessagesEqual compares two message sequences element-wise.
func MessagesEqual(a, b []Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].EqualTo(b[i]) {
			return false
		}
	}
	return true
}

// TextContent joins the message's text parts. Used for title derivation.
func (m Message) TextContent() string {
	var sb strings.Builder
	for _, p := range m.TextParts() {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// ===============================================
// Extraction helpers
// ===============================================
//
// Order-preserving filters over the part sequence, re-derived on each call.

func (m Message) TextParts() []Part {
	return functional.Filter(m.Parts, Part.IsText)
}

func (m Message) ReasoningParts() []Part {
	return functional.Filter(m.Parts, Part.IsReasoning)
}

func (m Message) ToolCallParts() []Part {
	return functional.Filter(m.Parts, Part.IsToolCall)
}

func (m Message) ImageParts() []Part {
	return functional.Filter(m.Parts, Part.IsImage)
}

func (m Message) FileParts() []Part {
	return functional.Filter(m.Parts, Part.IsFile)
}

func (m Message) SourceURLParts() []Part {
	return functional.Filter(m.Parts, Part.IsSourceURL)
}

// ===============================================
// Persisted form
// ===============================================

// PersistedMessage is the wire/storage shape of a message. Content is
// either the versioned parts envelope or plain text; DecodeContent sorts
// that out on the way back in.
type PersistedMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate rejects persisted messages missing an id or carrying an
// unrecognized role.
func (pm PersistedMessage) Validate() bool {
	return pm.ID != "" && ValidateRole(string(pm.Role))
}

// ToMessage decodes the persisted content back into a part sequence.
func (pm PersistedMessage) ToMessage() Message {
	return Message{ID: pm.ID, Role: pm.Role, Parts: DecodeContent(pm.Content)}
}

// ToPersisted encodes a message for storage. Encoding failures degrade to
// the plain-text content so a message is never lost.
func ToPersisted(m Message, createdAt time.Time) PersistedMessage {
	content, err := EncodeParts(m.Parts)
	if err != nil {
		content = m.TextContent()
	}
	return PersistedMessage{ID: m.ID, Role: m.Role, Content: content, CreatedAt: createdAt}
}

// ToPersistedList encodes a message sequence with a shared timestamp.
func ToPersistedList(msgs []Message, createdAt time.Time) []PersistedMessage {
	out := make([]PersistedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ToPersisted(m, createdAt)
	}
	return out
}

// FromPersistedList decodes a persisted sequence, dropping entries that
// fail validation rather than aborting the whole list.
func FromPersistedList(persisted []PersistedMessage) []Message {
	out := make([]Message, 0, len(persisted))
	for _, pm := range persisted {
		if !pm.Validate() {
			continue
		}
		out = append(out, pm.ToMessage())
	}
	return out
}
