package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/message"
	"chat-client/internal/utils/httpclients"
	"chat-client/internal/utils/platformerrors"
)

// Client talks to the hosted persistence backend: chat CRUD, the model
// catalog, and follow-up suggestion generation. Streaming lives in
// SSEStreamer, which shares the same resty client.
type Client struct {
	client  *resty.Client
	baseURL string
}

// ChatPayload is the backend's chat resource.
type ChatPayload struct {
	ID                string                     `json:"id"`
	Title             string                     `json:"title"`
	Pinned            bool                       `json:"pinned,omitempty"`
	Model             string                     `json:"model,omitempty"`
	UpdatedAt         time.Time                  `json:"updated_at,omitempty"`
	LastUserMessageAt time.Time                  `json:"last_user_message_at,omitempty"`
	Messages          []message.PersistedMessage `json:"messages,omitempty"`
	Checkpoints       []conversation.Checkpoint  `json:"checkpoints,omitempty"`
}

// UpdateChatRequest is a partial update; nil fields are omitted.
type UpdateChatRequest struct {
	Title       *string                    `json:"title,omitempty"`
	Pinned      *bool                      `json:"pinned,omitempty"`
	Model       *string                    `json:"model,omitempty"`
	Messages    []message.PersistedMessage `json:"messages,omitempty"`
	Checkpoints []conversation.Checkpoint  `json:"checkpoints,omitempty"`
}

type createChatRequest struct {
	Model string `json:"model,omitempty"`
	Title string `json:"title,omitempty"`
}

type chatResponse struct {
	Chat ChatPayload `json:"chat"`
}

// ModelInfo is one catalog entry.
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	OwnedBy     string `json:"owned_by"`
}

type modelsResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

type suggestionsRequest struct {
	ChatID   string                     `json:"chat_id"`
	Messages []message.PersistedMessage `json:"messages"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// NewClient builds a backend client. apiKey may be empty for anonymous
// deployments.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	rc := httpclients.NewClient("BackendClient")
	rc.SetBaseURL(strings.TrimRight(baseURL, "/"))
	rc.SetTimeout(timeout)
	if strings.TrimSpace(apiKey) != "" {
		rc.SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}
	return &Client{client: rc, baseURL: strings.TrimRight(baseURL, "/")}
}

// CreateChat registers a new conversation with the backend and returns the
// authoritative record, including the backend-assigned id.
func (c *Client) CreateChat(ctx context.Context, model string) (*ChatPayload, error) {
	var respBody chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(createChatRequest{Model: model, Title: conversation.DefaultTitle}).
		SetResult(&respBody).
		Post("/v1/chats")
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "create chat request failed")
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "create chat failed", "2e0e0f94-8f54-4f2b-95cd-57f7c2f0b9d1")
	}
	if respBody.Chat.ID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"create chat returned no id", nil, "9a7ad0a3-6a6f-4d0a-a7e8-3a2f59f2a611")
	}
	return &respBody.Chat, nil
}

// UpdateChat pushes a partial update for one conversation.
func (c *Client) UpdateChat(ctx context.Context, chatID string, req UpdateChatRequest) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Patch("/v1/chats/" + chatID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "update chat request failed")
	}
	if resp.IsError() {
		return c.errorFromResponse(ctx, resp, "update chat failed", "0c3f7a55-41d4-4c2c-97a2-8f0d8b8f2d44")
	}
	return nil
}

// DeleteChat removes a conversation from the backend.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Delete("/v1/chats/" + chatID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "delete chat request failed")
	}
	if resp.IsError() {
		return c.errorFromResponse(ctx, resp, "delete chat failed", "6f2b10af-8c2e-4f3a-a7d4-4f6c0d5e9b23")
	}
	return nil
}

// GetChat fetches the authoritative record for one conversation.
func (c *Client) GetChat(ctx context.Context, chatID string) (*ChatPayload, error) {
	var respBody chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&respBody).
		Get("/v1/chats/" + chatID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "get chat request failed")
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "get chat failed", "b8e54c1f-2d6a-4b2e-9f7c-1a3d5e7f9b0c")
	}
	return &respBody.Chat, nil
}

// ListChats fetches all conversations for the authenticated user.
func (c *Client) ListChats(ctx context.Context) ([]ChatPayload, error) {
	var respBody struct {
		Chats []ChatPayload `json:"chats"`
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&respBody).
		Get("/v1/chats")
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "list chats request failed")
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "list chats failed", "7d1a9e3b-5c4f-4a8d-b2e6-0f9c8a7b6d5e")
	}
	return respBody.Chats, nil
}

// ListModels fetches the model catalog.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var respBody modelsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&respBody).
		Get("/v1/models")
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "list models request failed")
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "list models failed", "e4b2c8d0-6f1a-4e3c-9d7b-2a5f8c0e1b46")
	}
	return respBody.Data, nil
}

// GenerateSuggestions asks the backend for follow-up prompts based on the
// finished conversation.
func (c *Client) GenerateSuggestions(ctx context.Context, chatID string, msgs []message.PersistedMessage) ([]string, error) {
	var respBody suggestionsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(suggestionsRequest{ChatID: chatID, Messages: msgs}).
		SetResult(&respBody).
		Post("/v1/suggestions")
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "suggestions request failed")
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "suggestions request failed", "f0a3d6c9-1b8e-4f2a-8c5d-7e4b2a9f0c13")
	}
	return respBody.Suggestions, nil
}

// errorFromResponse classifies a non-2xx reply by status code so callers
// can tell auth failures from transient outages.
func (c *Client) errorFromResponse(ctx context.Context, resp *resty.Response, msg, code string) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	errType := platformerrors.FromHTTPStatus(status)
	body := strings.TrimSpace(resp.String())
	full := fmt.Sprintf("%s with status %d", msg, status)
	if body != "" {
		full = fmt.Sprintf("%s: %s", full, body)
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, errType, full, nil, code)
}
