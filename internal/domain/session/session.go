package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"chat-client/internal/domain/message"
	"chat-client/internal/utils/idgen"
)

// Status is the streaming transport's lifecycle enum.
type Status string

const (
	StatusReady     Status = "ready"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// IsActive reports whether a generation is in flight.
func (s Status) IsActive() bool {
	return s == StatusSubmitted || s == StatusStreaming
}

// EventType tags a transport event.
type EventType string

const (
	EventTypeDelta  EventType = "delta"
	EventTypeFinish EventType = "finish"
	EventTypeError  EventType = "error"
)

// Event is one unit emitted by the streaming transport: a part delta for a
// message, a finish marker, or a terminal error.
type Event struct {
	Type      EventType
	MessageID string
	Role      message.Role
	Part      message.Part
	Err       error
}

// Request carries everything the transport needs to produce the next
// assistant turn.
type Request struct {
	ConversationID string
	Model          string
	Messages       []message.Message
}

// Streamer is the black-box event source. Implementations stream deltas
// until a finish or error event; closing the channel without either is
// treated as a finish.
type Streamer interface {
	Stream(ctx context.Context, req Request) (<-chan Event, error)
}

// Client is the session contract the core consumes: the live message list,
// a status enum, the last error, and imperative controls.
type Client interface {
	Messages() []message.Message
	Status() Status
	Err() error
	SendMessage(ctx context.Context, text string) error
	Stop()
	Regenerate(ctx context.Context) error
	SetMessages(msgs []message.Message)
}

// StreamSession adapts a Streamer into the Client contract. It owns the
// live message list for exactly one conversation at a time; the list is a
// working copy, never authoritative.
type StreamSession struct {
	mu       sync.Mutex
	streamer Streamer
	log      zerolog.Logger

	conversationID string
	model          string
	messages       []message.Message
	status         Status
	err            error
	cancel         context.CancelFunc
	gen            uint64
	onChange       func()
}

var _ Client = (*StreamSession)(nil)

// New builds an idle session over the given transport.
func New(streamer Streamer, log zerolog.Logger) *StreamSession {
	return &StreamSession{
		streamer: streamer,
		log:      log.With().Str("component", "session").Logger(),
		status:   StatusReady,
	}
}

// Bind points the session at a conversation. The live list is cleared; the
// caller loads the stored messages afterwards via SetMessages.
func (s *StreamSession) Bind(conversationID, model string) {
	s.mu.Lock()
	s.stopLocked()
	s.conversationID = conversationID
	s.model = model
	s.messages = nil
	s.err = nil
	s.status = StatusReady
	s.mu.Unlock()
	s.notify()
}

// ConversationID returns the conversation the live list belongs to.
func (s *StreamSession) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// SetOnChange registers the hook invoked after every state change. The
// reconciler subscribes here.
func (s *StreamSession) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Messages returns a copy of the live message list.
func (s *StreamSession) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Status returns the transport status.
func (s *StreamSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the last terminal stream error, if any.
func (s *StreamSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SetMessages replaces the live list without touching status. Used when
// loading a stored conversation and by the rewrite operations.
func (s *StreamSession) SetMessages(msgs []message.Message) {
	s.mu.Lock()
	s.messages = make([]message.Message, len(msgs))
	copy(s.messages, msgs)
	s.mu.Unlock()
	s.notify()
}

// SendMessage appends a user turn and starts a generation. A previous
// in-flight generation for this session is aborted first, so at most one
// stream is ever active.
func (s *StreamSession) SendMessage(ctx context.Context, text string) error {
	id, err := idgen.GenerateSecureID("msg", 16)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.stopLocked()
	s.messages = append(s.messages, message.NewUserMessage(id, text))
	if err := s.startLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Regenerate re-produces the trailing assistant turn from the current
// list. A trailing assistant message is dropped so the transport answers
// the last user turn again.
func (s *StreamSession) Regenerate(ctx context.Context) error {
	s.mu.Lock()
	s.stopLocked()
	if n := len(s.messages); n > 0 && s.messages[n-1].Role == message.RoleAssistant {
		s.messages = s.messages[:n-1]
	}
	if err := s.startLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Stop aborts the in-flight generation. Aborts are silent: status returns
// to ready and no error is recorded.
func (s *StreamSession) Stop() {
	s.mu.Lock()
	s.stopLocked()
	if s.status.IsActive() {
		s.status = StatusReady
	}
	s.mu.Unlock()
	s.notify()
}

// startLocked launches the stream consumer. Caller holds the lock.
func (s *StreamSession) startLocked(ctx context.Context) error {
	req := Request{
		ConversationID: s.conversationID,
		Model:          s.model,
		Messages:       append([]message.Message(nil), s.messages...),
	}

	streamCtx, cancel := context.WithCancel(ctx)
	events, err := s.streamer.Stream(streamCtx, req)
	if err != nil {
		cancel()
		s.status = StatusError
		s.err = err
		return err
	}

	s.cancel = cancel
	s.gen++
	s.status = StatusSubmitted
	s.err = nil

	go s.consume(streamCtx, cancel, s.gen, events)
	return nil
}

func (s *StreamSession) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *StreamSession) consume(ctx context.Context, cancel context.CancelFunc, gen uint64, events <-chan Event) {
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			s.finish(StatusReady, nil, gen)
			return
		case ev, ok := <-events:
			if !ok {
				s.finish(StatusReady, nil, gen)
				return
			}
			switch ev.Type {
			case EventTypeDelta:
				s.applyDelta(ev, gen)
			case EventTypeFinish:
				s.finish(StatusReady, nil, gen)
				return
			case EventTypeError:
				s.finish(StatusError, ev.Err, gen)
				return
			}
		}
	}
}

// applyDelta merges a part delta into the live list. Consecutive text and
// reasoning deltas for the same message concatenate into the trailing part
// of the same type; everything else appends.
func (s *StreamSession) applyDelta(ev Event, gen uint64) {
	s.mu.Lock()
	if !s.owns(gen) {
		s.mu.Unlock()
		return
	}

	if s.status == StatusSubmitted {
		s.status = StatusStreaming
	}

	idx := -1
	for i := range s.messages {
		if s.messages[i].ID == ev.MessageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		role := ev.Role
		if role == "" {
			role = message.RoleAssistant
		}
		s.messages = append(s.messages, message.Message{ID: ev.MessageID, Role: role})
		idx = len(s.messages) - 1
	}

	// Snapshots handed out by Messages share the Parts backing array with
	// the live list, so merging must never write into an existing element.
	msg := &s.messages[idx]
	n := len(msg.Parts)
	mergeable := ev.Part.Type == message.PartTypeText || ev.Part.Type == message.PartTypeReasoning
	if mergeable && n > 0 && msg.Parts[n-1].Type == ev.Part.Type {
		parts := make([]message.Part, n)
		copy(parts, msg.Parts)
		parts[n-1].Text += ev.Part.Text
		msg.Parts = parts
	} else {
		parts := make([]message.Part, n, n+1)
		copy(parts, msg.Parts)
		msg.Parts = append(parts, ev.Part)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *StreamSession) finish(status Status, err error, gen uint64) {
	s.mu.Lock()
	if !s.owns(gen) {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.err = err
	s.cancel = nil
	s.mu.Unlock()

	if status == StatusError && err != nil {
		s.log.Warn().Err(err).Msg("stream ended in error")
	}
	s.notify()
}

// owns reports whether the calling consumer is still the active stream.
// A superseded consumer must not write into the list the successor owns.
func (s *StreamSession) owns(gen uint64) bool {
	return s.cancel != nil && s.gen == gen
}

func (s *StreamSession) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
