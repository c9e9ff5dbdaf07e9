package chat

// CreateChatRequest starts a new conversation.
type CreateChatRequest struct {
	Model string `json:"model"`
}

// UpdateChatRequest is a partial conversation update.
type UpdateChatRequest struct {
	Title  *string `json:"title"`
	Pinned *bool   `json:"pinned"`
	Model  *string `json:"model"`
}

// SendMessageRequest submits a user turn.
type SendMessageRequest struct {
	Text  string `json:"text" binding:"required"`
	Model string `json:"model"`
}

// EditMessageRequest rewrites a user message.
type EditMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddCheckpointRequest records a restore point.
type AddCheckpointRequest struct {
	MessageIndex int `json:"message_index"`
}
