package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/message"
	"chat-client/internal/domain/session"
	"chat-client/internal/utils/functional"
	"chat-client/internal/utils/platformerrors"
)

// Persister pushes a conversation's authoritative state to the backend.
type Persister interface {
	PersistChat(ctx context.Context, conv conversation.Conversation) error
}

// MessageActions implements the rewrite operations on a conversation's
// history: edit, delete, regenerate, and checkpoint restore. Every rewrite
// follows the same shape: truncate the history, push the truncation to both
// the store and the live session, then (for edit and regenerate) start a
// new generation from the cut point.
type MessageActions struct {
	store     *conversation.Store
	session   *session.StreamSession
	persister Persister
	log       zerolog.Logger
}

func NewMessageActions(store *conversation.Store, sess *session.StreamSession, persister Persister, log zerolog.Logger) *MessageActions {
	return &MessageActions{
		store:     store,
		session:   sess,
		persister: persister,
		log:       log.With().Str("component", "message_actions").Logger(),
	}
}

// EditMessage rewrites history at a user message: everything from the
// edited message onward is dropped and the new content is sent as a fresh
// user turn, which starts a new generation.
func (a *MessageActions) EditMessage(ctx context.Context, convID, messageID, newText string) error {
	if strings.TrimSpace(newText) == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"edited message must not be empty", nil, "c2a8e4f6-1d3b-4c7a-9e5f-0b8d2f4a6c19")
	}

	conv, idx, err := a.locate(ctx, convID, messageID)
	if err != nil {
		return err
	}
	if conv.Messages[idx].Role != message.RoleUser {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"only user messages can be edited", nil, "7e1c5a3f-9b0d-4e2c-8f6a-4d7b1c9e3a50")
	}

	a.ensureLive(convID, conv.Model)
	kept := conv.Messages[:idx]
	a.applyTruncation(convID, kept)
	return a.session.SendMessage(ctx, newText)
}

// DeleteMessage removes a message and everything after it. Downstream
// messages depend on the deleted one, so the cascade is not optional.
func (a *MessageActions) DeleteMessage(ctx context.Context, convID, messageID string) error {
	conv, idx, err := a.locate(ctx, convID, messageID)
	if err != nil {
		return err
	}

	kept := conv.Messages[:idx]
	a.applyTruncation(convID, kept)
	a.persist(ctx, convID)
	return nil
}

// RegenerateMessage discards an assistant message and everything after it,
// then re-runs generation for the preceding user turn. Rejected while a
// generation is in flight.
func (a *MessageActions) RegenerateMessage(ctx context.Context, convID, messageID string) error {
	if st := a.session.Status(); st.IsActive() {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"cannot regenerate while a generation is in flight", nil, "5d9f1b7e-3a2c-4f8d-b0e6-8c4a6f2d0b37")
	}

	conv, idx, err := a.locate(ctx, convID, messageID)
	if err != nil {
		return err
	}
	if conv.Messages[idx].Role != message.RoleAssistant {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"only assistant messages can be regenerated", nil, "e8b3d6a1-0f4c-4a9e-8d2b-6c1f3e5a7d94")
	}

	a.ensureLive(convID, conv.Model)
	kept := conv.Messages[:idx]
	a.applyTruncation(convID, kept)
	return a.session.Regenerate(ctx)
}

// RestoreCheckpoint rolls the conversation back to a recorded point. The
// store truncates messages and prunes overtaken checkpoints; the live
// session is brought in line and the result persisted.
func (a *MessageActions) RestoreCheckpoint(ctx context.Context, convID, checkpointID string) error {
	restored, ok := a.store.RestoreCheckpoint(convID, checkpointID)
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"checkpoint not found", nil, "a6c2f8d4-5e0b-4d7a-9c3e-1b8f4a6d2c05")
	}

	conv, found := a.store.Get(convID)
	if !found {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"conversation not found", nil, "3b7e9c1a-8d4f-4b2e-a5c0-7f2d9e4b6a18")
	}

	a.log.Info().
		Str("conversation_id", convID).
		Str("checkpoint_id", checkpointID).
		Int("message_index", restored.MessageIndex).
		Msg("checkpoint restored")

	if a.session.ConversationID() == convID {
		a.session.Stop()
		a.session.SetMessages(conv.Messages)
	}
	a.persist(ctx, convID)
	return nil
}

// AddCheckpoint records a manual restore point at the given message index.
func (a *MessageActions) AddCheckpoint(ctx context.Context, convID string, messageIndex int) (conversation.Checkpoint, error) {
	cp, ok := a.store.AddCheckpoint(convID, messageIndex)
	if !ok {
		return conversation.Checkpoint{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"checkpoint index out of range", nil, "f4d8b2e6-7a1c-4e9f-8b5d-2c6a0f3e9d71")
	}
	a.persist(ctx, convID)
	return cp, nil
}

// EnsureCheckpoints records a restore point before every user turn past the
// first, once. Runs after each completed generation.
func (a *MessageActions) EnsureCheckpoints(convID string) {
	conv, ok := a.store.Get(convID)
	if !ok {
		return
	}
	for i, m := range conv.Messages {
		if m.Role != message.RoleUser || i == 0 {
			continue
		}
		if a.store.HasCheckpointAt(convID, i) {
			continue
		}
		if _, ok := a.store.AddCheckpoint(convID, i); !ok {
			a.log.Warn().Str("conversation_id", convID).Int("message_index", i).Msg("auto checkpoint rejected")
		}
	}
}

// locate resolves a message id to its index within a stored conversation.
func (a *MessageActions) locate(ctx context.Context, convID, messageID string) (conversation.Conversation, int, error) {
	conv, ok := a.store.Get(convID)
	if !ok {
		return conversation.Conversation{}, 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"conversation not found", nil, "0d4a8f2c-6b9e-4c1d-a7f3-5e2b8c0d4f69")
	}
	idx := functional.FindIndex(conv.Messages, func(m message.Message) bool {
		return m.ID == messageID
	})
	if idx < 0 {
		return conversation.Conversation{}, 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"message not found", nil, "9c5e3b1d-2f7a-4d8c-b4e0-6a9f1c3e5b82")
	}
	return conv, idx, nil
}

// ensureLive binds the session to the target conversation before an
// operation that starts a generation. Without this, editing a conversation
// that is not currently loaded would stream under the loaded one's id.
func (a *MessageActions) ensureLive(convID, model string) {
	if a.session.ConversationID() == convID {
		return
	}
	a.store.Select(convID)
	a.session.Bind(convID, model)
}

// applyTruncation pushes a truncated history to the store and, when the
// conversation is live, to the session. Checkpoints beyond the new end are
// pruned by the store on the next restore; suggestions are stale either way.
func (a *MessageActions) applyTruncation(convID string, kept []message.Message) {
	a.store.UpdateMessages(convID, kept)
	a.store.Touch(convID)
	a.store.ClearSuggestions(convID)
	if a.session.ConversationID() == convID {
		a.session.Stop()
		a.session.SetMessages(kept)
	}
}

// persist pushes the current record to the backend, logging failures
// without unwinding the local mutation.
func (a *MessageActions) persist(ctx context.Context, convID string) {
	conv, ok := a.store.Get(convID)
	if !ok {
		return
	}
	if err := a.persister.PersistChat(ctx, conv); err != nil {
		if platformerrors.IsAborted(err) {
			return
		}
		a.log.Error().Err(err).Str("conversation_id", convID).Msg("persist after rewrite failed")
	}
}
