package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"resty.dev/v3"

	"chat-client/internal/domain/message"
	"chat-client/internal/domain/session"
	"chat-client/internal/infrastructure/logger"
	"chat-client/internal/utils/httpclients"
	"chat-client/internal/utils/platformerrors"
)

const (
	eventBufferSize      = 100
	dataPrefix           = "data: "
	doneMarker           = "[DONE]"
	scannerInitialBuffer = 12 * 1024        // 12KB
	scannerMaxBuffer     = 10 * 1024 * 1024 // 10MB
)

// streamChunk is one SSE payload from the generation endpoint.
type streamChunk struct {
	Type      string          `json:"type"`
	MessageID string          `json:"message_id,omitempty"`
	Role      string          `json:"role,omitempty"`
	Part      json.RawMessage `json:"part,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// SSEStreamer implements session.Streamer over the backend's server-sent
// events generation endpoint.
type SSEStreamer struct {
	client *resty.Client
}

var _ session.Streamer = (*SSEStreamer)(nil)

// NewSSEStreamer builds a streamer for the generation endpoint. Streaming
// responses are unbounded in duration, so no client timeout is set; the
// caller's context is the only deadline.
func NewSSEStreamer(baseURL, apiKey string) *SSEStreamer {
	rc := httpclients.NewClient("StreamClient")
	rc.SetBaseURL(strings.TrimRight(baseURL, "/"))
	if strings.TrimSpace(apiKey) != "" {
		rc.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &SSEStreamer{client: rc}
}

type streamRequest struct {
	ChatID   string                     `json:"chat_id"`
	Model    string                     `json:"model,omitempty"`
	Messages []message.PersistedMessage `json:"messages"`
}

// Stream starts a generation and returns the event channel. The channel is
// closed when the stream finishes, errors, or the context is cancelled.
func (s *SSEStreamer) Stream(ctx context.Context, req session.Request) (<-chan session.Event, error) {
	body := streamRequest{
		ChatID:   req.ConversationID,
		Model:    req.Model,
		Messages: message.ToPersistedList(req.Messages, time.Now().UTC()),
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Accept-Encoding", "identity").
		Post("/v1/stream")
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "stream request failed")
	}
	if resp.IsError() {
		defer resp.RawResponse.Body.Close()
		errType := platformerrors.FromHTTPStatus(resp.StatusCode())
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, errType,
			"stream request rejected", nil, "3c8e1f6a-9b2d-4e7c-8a5f-0d3b6c9e2a71")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"stream request returned empty body", nil, "a1d4f7b0-3e6c-49a2-b5d8-7f0c3e6a9b24")
	}

	events := make(chan session.Event, eventBufferSize)
	go s.consume(ctx, resp, events)
	return events, nil
}

func (s *SSEStreamer) consume(ctx context.Context, resp *resty.Response, events chan<- session.Event) {
	log := logger.GetLogger()
	defer close(events)
	defer func() {
		if err := resp.RawResponse.Body.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close stream body")
		}
	}()

	scanner := bufio.NewScanner(resp.RawResponse.Body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		data := strings.TrimPrefix(line, dataPrefix)
		if data == doneMarker {
			s.emit(ctx, events, session.Event{Type: session.EventTypeFinish})
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Warn().Err(err).Msg("skipping malformed stream chunk")
			continue
		}

		switch chunk.Type {
		case "delta":
			var part message.Part
			if err := json.Unmarshal(chunk.Part, &part); err != nil {
				log.Warn().Err(err).Str("message_id", chunk.MessageID).Msg("skipping malformed stream part")
				continue
			}
			if !s.emit(ctx, events, session.Event{
				Type:      session.EventTypeDelta,
				MessageID: chunk.MessageID,
				Role:      message.Role(chunk.Role),
				Part:      part,
			}) {
				return
			}
		case "finish":
			s.emit(ctx, events, session.Event{Type: session.EventTypeFinish})
			return
		case "error":
			s.emit(ctx, events, session.Event{
				Type: session.EventTypeError,
				Err:  errors.New(chunk.Message),
			})
			return
		default:
			log.Debug().Str("chunk_type", chunk.Type).Msg("ignoring unknown stream chunk type")
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		s.emit(ctx, events, session.Event{Type: session.EventTypeError, Err: err})
		return
	}
	s.emit(ctx, events, session.Event{Type: session.EventTypeFinish})
}

func (s *SSEStreamer) emit(ctx context.Context, events chan<- session.Event, ev session.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
