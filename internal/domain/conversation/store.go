package conversation

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chat-client/internal/domain/message"
)

// StoreConfig tunes store behavior. Now is injectable so tests control the
// clock.
type StoreConfig struct {
	MaxCheckpoints int
	Now            func() time.Time
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{MaxCheckpoints: 10}
}

// Store is the single source of truth for conversation records, display
// order, selection, and per-conversation status. Every method takes the
// store lock; snapshots returned to callers are copies.
type Store struct {
	mu  sync.Mutex
	log zerolog.Logger

	maxCheckpoints int
	now            func() time.Time

	chats         map[string]*Conversation
	order         []string
	statuses      map[string]Status
	selectedID    string
	currentUserID string
	hydrated      bool
}

func NewStore(cfg StoreConfig, log zerolog.Logger) *Store {
	if cfg.MaxCheckpoints < 1 {
		cfg.MaxCheckpoints = DefaultStoreConfig().MaxCheckpoints
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		log:            log.With().Str("component", "conversation_store").Logger(),
		maxCheckpoints: cfg.MaxCheckpoints,
		now:            cfg.Now,
		chats:          make(map[string]*Conversation),
		statuses:       make(map[string]Status),
	}
}

// Hydrated reports whether initial load has run, successfully or not.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Get returns a copy of the conversation, if present.
func (s *Store) Get(id string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return Conversation{}, false
	}
	return c.clone(), true
}

// List returns copies of all conversations in display order.
func (s *Store) List() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, 0, len(s.order))
	for _, id := range s.order {
		if c, ok := s.chats[id]; ok {
			out = append(out, c.clone())
		}
	}
	return out
}

// Order returns the display order of conversation ids.
func (s *Store) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Select sets the active conversation. Empty id clears the selection;
// selecting an unknown id is ignored.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.selectedID = ""
		return
	}
	if _, ok := s.chats[id]; !ok {
		s.log.Warn().Str("conversation_id", id).Msg("select ignored: unknown conversation")
		return
	}
	s.selectedID = id
}

// SelectedID returns the active conversation id, or empty if none.
func (s *Store) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Selected returns the active conversation record, if any.
func (s *Store) Selected() (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == "" {
		return Conversation{}, false
	}
	c, ok := s.chats[s.selectedID]
	if !ok {
		return Conversation{}, false
	}
	return c.clone(), true
}

// Upsert is a partial update: nil pointer fields keep their previous value.
type Upsert struct {
	ID                string
	Title             *string
	Pinned            *bool
	Model             *string
	Suggestions       []string
	Messages          []message.Message
	Checkpoints       []Checkpoint
	UpdatedAt         *time.Time
	LastUserMessageAt *time.Time
}

// Apply merges the update over any existing record and re-sorts the display
// order. Timestamps fall back to the previous values when not supplied, and
// to now for a brand new record.
func (s *Store) Apply(u Upsert) {
	if u.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.chats[u.ID]
	if !exists {
		c = &Conversation{ID: u.ID, Title: DefaultTitle, UpdatedAt: s.now()}
		s.chats[u.ID] = c
		s.order = append(s.order, u.ID)
		if _, ok := s.statuses[u.ID]; !ok {
			s.statuses[u.ID] = StatusIdle
		}
	}

	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Pinned != nil {
		c.Pinned = *u.Pinned
	}
	if u.Model != nil {
		c.Model = *u.Model
	}
	if u.Suggestions != nil {
		c.Suggestions = append([]string(nil), u.Suggestions...)
	}
	if u.Messages != nil {
		c.Messages = append([]message.Message(nil), u.Messages...)
	}
	if u.Checkpoints != nil {
		c.Checkpoints = append([]Checkpoint(nil), u.Checkpoints...)
	}
	if u.UpdatedAt != nil {
		c.UpdatedAt = *u.UpdatedAt
	}
	if u.LastUserMessageAt != nil {
		c.LastUserMessageAt = *u.LastUserMessageAt
	}

	s.resortLocked()
}

// UpdateMessages replaces a conversation's message list. Returns false and
// leaves the record untouched when the new list is deep-equal to the old
// one, so churn from repeated sync passes is free. UpdatedAt stays put:
// explicit actions own that timestamp, and bumping it here would reorder
// the listing on every streamed delta.
func (s *Store) UpdateMessages(id string, msgs []message.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return false
	}
	if message.MessagesEqual(c.Messages, msgs) {
		return false
	}
	newUserTurn := lastUserID(msgs) != lastUserID(c.Messages) && lastUserID(msgs) != ""
	c.Messages = append([]message.Message(nil), msgs...)
	if newUserTurn {
		c.LastUserMessageAt = s.now()
		s.resortLocked()
	}
	return true
}

// Touch bumps UpdatedAt after an explicit edit. Message sync never calls
// this; the rewrite operations do.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return
	}
	c.UpdatedAt = s.now()
}

// TouchLastUserMessage bumps the recency key after a new user turn.
func (s *Store) TouchLastUserMessage(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return
	}
	now := s.now()
	c.LastUserMessageAt = now
	c.UpdatedAt = now
	s.resortLocked()
}

// UpdateTitle renames a conversation. A rename bumps UpdatedAt but not the
// recency key, so editing a title does not reshuffle the listing.
func (s *Store) UpdateTitle(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return
	}
	c.Title = title
	c.UpdatedAt = s.now()
	s.resortLocked()
}

// SetPinned toggles the pin flag.
func (s *Store) SetPinned(id string, pinned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return
	}
	c.Pinned = pinned
	c.UpdatedAt = s.now()
}

// SetStatus records the activity indicator for a conversation.
func (s *Store) SetStatus(id string, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return
	}
	s.statuses[id] = st
}

// GetStatus returns the activity indicator, defaulting to idle.
func (s *Store) GetStatus(id string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.statuses[id]; ok {
		return st
	}
	return StatusIdle
}

// SetSuggestions stores follow-up prompts for a conversation.
func (s *Store) SetSuggestions(id string, suggestions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return
	}
	c.Suggestions = append([]string(nil), suggestions...)
}

// ClearSuggestions drops stale follow-up prompts, typically when a new
// generation starts.
func (s *Store) ClearSuggestions(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return
	}
	c.Suggestions = nil
}

// AddCheckpoint records a restore point at messageIndex. Indices outside
// [0, len(messages)] are rejected. When the cap is exceeded the oldest
// checkpoint by timestamp is evicted.
func (s *Store) AddCheckpoint(id string, messageIndex int) (Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return Checkpoint{}, false
	}
	if messageIndex < 0 || messageIndex > len(c.Messages) {
		s.log.Warn().
			Str("conversation_id", id).
			Int("message_index", messageIndex).
			Int("message_count", len(c.Messages)).
			Msg("checkpoint index out of range")
		return Checkpoint{}, false
	}

	cp := Checkpoint{
		ID:           uuid.NewString(),
		MessageIndex: messageIndex,
		Timestamp:    s.now(),
	}
	c.Checkpoints = append(c.Checkpoints, cp)

	for len(c.Checkpoints) > s.maxCheckpoints {
		oldest := 0
		for i := 1; i < len(c.Checkpoints); i++ {
			if c.Checkpoints[i].Timestamp.Before(c.Checkpoints[oldest].Timestamp) {
				oldest = i
			}
		}
		c.Checkpoints = append(c.Checkpoints[:oldest], c.Checkpoints[oldest+1:]...)
	}
	return cp, true
}

// HasCheckpointAt reports whether a checkpoint already exists for the index.
func (s *Store) HasCheckpointAt(id string, messageIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return false
	}
	for _, cp := range c.Checkpoints {
		if cp.MessageIndex == messageIndex {
			return true
		}
	}
	return false
}

// RestoreCheckpoint truncates the conversation to messages strictly before
// the checkpoint's index and prunes every checkpoint at or beyond it,
// including the restored one. Returns the restored checkpoint.
func (s *Store) RestoreCheckpoint(id, checkpointID string) (Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return Checkpoint{}, false
	}

	var target *Checkpoint
	for i := range c.Checkpoints {
		if c.Checkpoints[i].ID == checkpointID {
			target = &c.Checkpoints[i]
			break
		}
	}
	if target == nil {
		return Checkpoint{}, false
	}

	restored := *target
	// A checkpoint past the current end is stale; restoring it must not
	// mutate anything.
	if restored.MessageIndex > len(c.Messages) {
		return Checkpoint{}, false
	}
	c.Messages = c.Messages[:restored.MessageIndex]

	kept := c.Checkpoints[:0]
	for _, cp := range c.Checkpoints {
		if cp.MessageIndex < restored.MessageIndex {
			kept = append(kept, cp)
		}
	}
	c.Checkpoints = kept
	c.UpdatedAt = s.now()
	return restored, true
}

// RemoveCheckpoint deletes a single checkpoint without touching messages.
func (s *Store) RemoveCheckpoint(id, checkpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return
	}
	kept := c.Checkpoints[:0]
	for _, cp := range c.Checkpoints {
		if cp.ID != checkpointID {
			kept = append(kept, cp)
		}
	}
	c.Checkpoints = kept
}

// Remove deletes a conversation. Clearing the selection is the caller's
// concern only when it pointed elsewhere; a selection on the removed record
// is dropped here.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, id)
	delete(s.statuses, id)
	kept := s.order[:0]
	for _, oid := range s.order {
		if oid != id {
			kept = append(kept, oid)
		}
	}
	s.order = kept
	if s.selectedID == id {
		s.selectedID = ""
	}
}

// Reset drops all state, including the current user and the hydrated flag.
// Used on logout; the next Hydrate starts from scratch.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.hydrated = false
}

func (s *Store) resetLocked() {
	s.chats = make(map[string]*Conversation)
	s.statuses = make(map[string]Status)
	s.order = nil
	s.selectedID = ""
	s.currentUserID = ""
}

// resortLocked deduplicates the order (first occurrence wins) and sorts by
// recency, newest first. The sort is stable so equal keys keep their
// relative positions.
func (s *Store) resortLocked() {
	seen := make(map[string]struct{}, len(s.order))
	deduped := s.order[:0]
	for _, id := range s.order {
		if _, dup := seen[id]; dup {
			continue
		}
		if _, ok := s.chats[id]; !ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	s.order = deduped

	sort.SliceStable(s.order, func(i, j int) bool {
		a := s.chats[s.order[i]]
		b := s.chats[s.order[j]]
		return a.sortKey().After(b.sortKey())
	})
}

func lastUserID(msgs []message.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == message.RoleUser {
			return msgs[i].ID
		}
	}
	return ""
}
