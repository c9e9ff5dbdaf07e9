package conversation

import (
	"errors"
	"fmt"
	"time"

	"chat-client/internal/domain/message"
)

// Snapshot is the persisted shape of the whole store, scoped to one user.
type Snapshot struct {
	UserID     string                `json:"userId"`
	Chats      map[string]ChatRecord `json:"chats"`
	Order      []string              `json:"order"`
	SelectedID string                `json:"selectedId,omitempty"`
	SavedAt    time.Time             `json:"savedAt,omitempty"`
}

// ChatRecord is the persisted shape of one conversation.
type ChatRecord struct {
	ID                string                     `json:"id"`
	Title             string                     `json:"title"`
	Pinned            bool                       `json:"pinned"`
	UpdatedAt         time.Time                  `json:"updatedAt"`
	LastUserMessageAt time.Time                  `json:"lastUserMessageAt,omitempty"`
	Model             string                     `json:"model,omitempty"`
	Suggestions       []string                   `json:"suggestions,omitempty"`
	Messages          []message.PersistedMessage `json:"messages"`
	Checkpoints       []Checkpoint               `json:"checkpoints,omitempty"`
}

var errMissingUserID = errors.New("snapshot missing user id")

// Validate rejects records that cannot be loaded at all. Individually
// malformed messages and out-of-range checkpoints are pruned later, not
// fatal here.
func (r ChatRecord) Validate() error {
	if r.ID == "" {
		return errors.New("chat record missing id")
	}
	if r.UpdatedAt.IsZero() {
		return fmt.Errorf("chat record %s missing updatedAt", r.ID)
	}
	return nil
}

// toConversation decodes the record, dropping malformed messages and any
// checkpoint whose index falls outside the surviving message list.
func (r ChatRecord) toConversation() Conversation {
	msgs := message.FromPersistedList(r.Messages)
	checkpoints := make([]Checkpoint, 0, len(r.Checkpoints))
	for _, cp := range r.Checkpoints {
		if cp.ID == "" || cp.MessageIndex < 0 || cp.MessageIndex > len(msgs) {
			continue
		}
		checkpoints = append(checkpoints, cp)
	}
	return Conversation{
		ID:                r.ID,
		Title:             r.Title,
		Pinned:            r.Pinned,
		UpdatedAt:         r.UpdatedAt,
		LastUserMessageAt: r.LastUserMessageAt,
		Model:             r.Model,
		Suggestions:       r.Suggestions,
		Messages:          msgs,
		Checkpoints:       checkpoints,
	}
}

// Hydrate loads a snapshot into the store. The rules are deliberately
// forgiving: a snapshot that fails validation entirely leaves an empty
// store, malformed entries are skipped individually, and a snapshot from a
// different user resets everything first. The hydrated flag is set no
// matter what, so callers never re-run initial load in a loop.
func (s *Store) Hydrate(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.hydrated = true }()

	if snap.UserID == "" {
		s.log.Warn().Msg("hydration snapshot rejected: no user id")
		s.resetLocked()
		return errMissingUserID
	}

	if s.currentUserID != "" && s.currentUserID != snap.UserID {
		s.log.Info().
			Str("previous_user", s.currentUserID).
			Str("user", snap.UserID).
			Msg("user changed, resetting conversation state")
		s.resetLocked()
	}
	s.currentUserID = snap.UserID

	for id, record := range snap.Chats {
		if record.ID == "" {
			record.ID = id
		}
		if record.ID != id {
			s.log.Warn().Str("key", id).Str("id", record.ID).Msg("skipping chat record: key/id mismatch")
			continue
		}
		if err := record.Validate(); err != nil {
			s.log.Warn().Err(err).Str("conversation_id", id).Msg("skipping malformed chat record")
			continue
		}
		c := record.toConversation()
		s.chats[id] = &c
		if _, ok := s.statuses[id]; !ok {
			s.statuses[id] = StatusIdle
		}
	}

	// Rebuild order: persisted order first, then any chats it missed.
	inOrder := make(map[string]struct{}, len(snap.Order))
	order := make([]string, 0, len(s.chats))
	for _, id := range snap.Order {
		if _, ok := s.chats[id]; !ok {
			continue
		}
		if _, dup := inOrder[id]; dup {
			continue
		}
		inOrder[id] = struct{}{}
		order = append(order, id)
	}
	for id := range s.chats {
		if _, ok := inOrder[id]; !ok {
			order = append(order, id)
		}
	}
	s.order = order
	s.resortLocked()

	if _, ok := s.chats[snap.SelectedID]; ok {
		s.selectedID = snap.SelectedID
	}
	return nil
}

// Export builds a snapshot of the current state for persistence.
func (s *Store) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := make(map[string]ChatRecord, len(s.chats))
	for id, c := range s.chats {
		chats[id] = ChatRecord{
			ID:                c.ID,
			Title:             c.Title,
			Pinned:            c.Pinned,
			UpdatedAt:         c.UpdatedAt,
			LastUserMessageAt: c.LastUserMessageAt,
			Model:             c.Model,
			Suggestions:       append([]string(nil), c.Suggestions...),
			Messages:          message.ToPersistedList(c.Messages, c.UpdatedAt),
			Checkpoints:       append([]Checkpoint(nil), c.Checkpoints...),
		}
	}
	return Snapshot{
		UserID:     s.currentUserID,
		Chats:      chats,
		Order:      append([]string(nil), s.order...),
		SelectedID: s.selectedID,
		SavedAt:    s.now(),
	}
}

// SetUser records the owning user without loading data. Used when a fresh
// account has no snapshot yet.
func (s *Store) SetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentUserID != "" && s.currentUserID != userID {
		s.resetLocked()
	}
	s.currentUserID = userID
	s.hydrated = true
}

// UserID returns the user the store currently belongs to.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUserID
}
