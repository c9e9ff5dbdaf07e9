package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/message"
	"chat-client/internal/domain/session"
	"chat-client/internal/utils/platformerrors"
	"chat-client/internal/utils/stringutils"
)

// Suggester produces follow-up prompts for a finished conversation.
type Suggester interface {
	GenerateSuggestions(ctx context.Context, conv conversation.Conversation) ([]string, error)
}

// ReconcilerConfig tunes the sync pass.
type ReconcilerConfig struct {
	PersistTimeout time.Duration
	TitleMaxLength int
}

// Reconciler keeps the store in line with the live session. It subscribes
// to session changes, copies the live list into the store, maps the
// transport status onto the listing indicator, and on each completed
// generation derives the title, records auto checkpoints, refreshes
// suggestions, and persists to the backend. Persistence failures never
// block or unwind local state; they are logged and reported through the
// failure hook.
type Reconciler struct {
	store     *conversation.Store
	session   *session.StreamSession
	actions   *MessageActions
	persister Persister
	suggester Suggester
	cfg       ReconcilerConfig
	log       zerolog.Logger

	// onFailure is invoked (non-blocking) when a background persist fails.
	onFailure func(convID string, err error)

	mu            sync.Mutex
	lastConvID    string
	lastStatus    session.Status
	persistCancel context.CancelFunc
	suggestCancel context.CancelFunc
}

func NewReconciler(
	store *conversation.Store,
	sess *session.StreamSession,
	actions *MessageActions,
	persister Persister,
	suggester Suggester,
	cfg ReconcilerConfig,
	log zerolog.Logger,
) *Reconciler {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 15 * time.Second
	}
	if cfg.TitleMaxLength <= 0 {
		cfg.TitleMaxLength = 50
	}
	return &Reconciler{
		store:      store,
		session:    sess,
		actions:    actions,
		persister:  persister,
		suggester:  suggester,
		cfg:        cfg,
		log:        log.With().Str("component", "reconciler").Logger(),
		lastStatus: session.StatusReady,
	}
}

// SetOnPersistFailure registers the non-blocking failure notification hook.
func (r *Reconciler) SetOnPersistFailure(fn func(convID string, err error)) {
	r.mu.Lock()
	r.onFailure = fn
	r.mu.Unlock()
}

// Start subscribes the reconciler to session changes.
func (r *Reconciler) Start() {
	r.session.SetOnChange(r.Sync)
}

// Sync runs one reconciliation pass. Safe to call from any goroutine.
func (r *Reconciler) Sync() {
	convID := r.session.ConversationID()
	if convID == "" {
		return
	}
	// The live list only ever belongs to the loaded conversation; a record
	// that vanished (deleted mid-stream) must not be resurrected.
	if _, ok := r.store.Get(convID); !ok {
		return
	}

	r.store.UpdateMessages(convID, r.session.Messages())

	st := r.session.Status()
	r.store.SetStatus(convID, conversation.StatusFromSession(st))

	r.mu.Lock()
	prev := r.lastStatus
	// The active→ready transition belongs to one conversation; a rebind
	// must not replay the previous conversation's transition onto the new one.
	if r.lastConvID != convID {
		prev = session.StatusReady
		r.lastConvID = convID
	}
	r.lastStatus = st
	r.mu.Unlock()

	if st.IsActive() && !prev.IsActive() {
		r.store.ClearSuggestions(convID)
	}
	if prev.IsActive() && st == session.StatusReady {
		r.finalize(convID)
	}
	if st == session.StatusError {
		if err := r.session.Err(); err != nil {
			r.log.Warn().Err(err).Str("conversation_id", convID).Msg("generation ended in error")
		}
	}
}

// finalize runs after a generation completes: title derivation, auto
// checkpoints, background persist, and suggestion refresh.
func (r *Reconciler) finalize(convID string) {
	conv, ok := r.store.Get(convID)
	if !ok {
		return
	}

	if conv.Title == "" || conv.Title == conversation.DefaultTitle {
		if title := r.deriveTitle(conv); title != "" {
			r.store.UpdateTitle(convID, title)
		}
	}

	r.actions.EnsureCheckpoints(convID)
	r.persistAsync(convID)
	r.refreshSuggestions(convID)
}

func (r *Reconciler) deriveTitle(conv conversation.Conversation) string {
	for _, m := range conv.Messages {
		if m.Role != message.RoleUser {
			continue
		}
		if text := m.TextContent(); text != "" {
			return stringutils.GenerateTitle(text, r.cfg.TitleMaxLength)
		}
	}
	return ""
}

// persistAsync pushes the record to the backend without blocking the
// caller. A newer persist for any conversation supersedes the previous
// in-flight one; last write wins on the backend too.
func (r *Reconciler) persistAsync(convID string) {
	conv, ok := r.store.Get(convID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PersistTimeout)
	r.mu.Lock()
	if r.persistCancel != nil {
		r.persistCancel()
	}
	r.persistCancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()
		if err := r.persister.PersistChat(ctx, conv); err != nil {
			if platformerrors.IsAborted(err) {
				return
			}
			r.log.Error().Err(err).Str("conversation_id", convID).Msg("background persist failed")
			r.notifyFailure(convID, err)
			return
		}
		r.log.Debug().Str("conversation_id", convID).Msg("conversation persisted")
	}()
}

// refreshSuggestions asks the backend for follow-up prompts. Best effort:
// failures are logged and the previous suggestions stay cleared.
func (r *Reconciler) refreshSuggestions(convID string) {
	if r.suggester == nil {
		return
	}
	conv, ok := r.store.Get(convID)
	if !ok || len(conv.Messages) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PersistTimeout)
	r.mu.Lock()
	if r.suggestCancel != nil {
		r.suggestCancel()
	}
	r.suggestCancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()
		suggestions, err := r.suggester.GenerateSuggestions(ctx, conv)
		if err != nil {
			if !platformerrors.IsAborted(err) {
				r.log.Warn().Err(err).Str("conversation_id", convID).Msg("suggestion refresh failed")
			}
			return
		}
		r.store.SetSuggestions(convID, suggestions)
	}()
}

func (r *Reconciler) notifyFailure(convID string, err error) {
	r.mu.Lock()
	fn := r.onFailure
	r.mu.Unlock()
	if fn != nil {
		go fn(convID, err)
	}
}
