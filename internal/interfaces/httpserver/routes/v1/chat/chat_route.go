package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/interfaces/httpserver/handlers/chathandler"
	chatrequests "chat-client/internal/interfaces/httpserver/requests/chat"
	"chat-client/internal/interfaces/httpserver/responses"
	chatresponses "chat-client/internal/interfaces/httpserver/responses/chat"
	"chat-client/internal/utils/platformerrors"
)

type ChatRoute struct {
	handler *chathandler.ChatHandler
}

func NewChatRoute(handler *chathandler.ChatHandler) *ChatRoute {
	return &ChatRoute{handler: handler}
}

func (route *ChatRoute) RegisterRouter(router gin.IRouter) {
	chats := router.Group("/chats")
	chats.GET("", route.listChats)
	chats.POST("", route.createChat)
	chats.GET("/:chat_id", route.getChat)
	chats.PATCH("/:chat_id", route.updateChat)
	chats.DELETE("/:chat_id", route.deleteChat)
	chats.POST("/:chat_id/select", route.selectChat)
	chats.POST("/:chat_id/messages", route.sendMessage)
	chats.POST("/:chat_id/messages/:message_id/edit", route.editMessage)
	chats.DELETE("/:chat_id/messages/:message_id", route.deleteMessage)
	chats.POST("/:chat_id/messages/:message_id/regenerate", route.regenerateMessage)
	chats.POST("/:chat_id/checkpoints", route.addCheckpoint)
	chats.POST("/:chat_id/checkpoints/:checkpoint_id/restore", route.restoreCheckpoint)
	chats.POST("/:chat_id/stop", route.stopGeneration)
}

// listChats godoc
// @Summary List chats
// @Description List all conversations in display order with the current selection.
// @Tags Chats API
// @Produce json
// @Success 200 {object} chatresponses.ChatListResponse "Successfully retrieved chats"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /v1/chats [get]
func (route *ChatRoute) listChats(reqCtx *gin.Context) {
	chats, selectedID := route.handler.ListChats()
	reqCtx.JSON(http.StatusOK, chatresponses.NewChatListResponse(chats, route.handler.StatusOf, selectedID))
}

// createChat godoc
// @Summary Create chat
// @Description Create a new conversation, reusing an empty placeholder when one exists.
// @Tags Chats API
// @Accept json
// @Produce json
// @Param request body chatrequests.CreateChatRequest false "Creation options"
// @Success 201 {object} chatresponses.ChatDetail "Successfully created chat"
// @Failure 502 {object} responses.ErrorResponse "Backend unavailable"
// @Router /v1/chats [post]
func (route *ChatRoute) createChat(reqCtx *gin.Context) {
	var req chatrequests.CreateChatRequest
	_ = reqCtx.ShouldBindJSON(&req) // body is optional

	c, err := route.handler.CreateChat(reqCtx.Request.Context(), req.Model)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to create chat")
		return
	}
	reqCtx.JSON(http.StatusCreated, chatresponses.NewChatDetail(c, route.handler.StatusOf(c.ID)))
}

// getChat godoc
// @Summary Get chat
// @Description Fetch one conversation with messages, suggestions, and checkpoints.
// @Tags Chats API
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Success 200 {object} chatresponses.ChatDetail "Successfully retrieved chat"
// @Failure 404 {object} responses.ErrorResponse "Chat not found"
// @Router /v1/chats/{chat_id} [get]
func (route *ChatRoute) getChat(reqCtx *gin.Context) {
	c, err := route.handler.GetChat(reqCtx.Request.Context(), reqCtx.Param("chat_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "chat not found")
		return
	}
	reqCtx.JSON(http.StatusOK, chatresponses.NewChatDetail(c, route.handler.StatusOf(c.ID)))
}

// updateChat godoc
// @Summary Update chat
// @Description Apply a partial update: title, pin flag, or model.
// @Tags Chats API
// @Accept json
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Param request body chatrequests.UpdateChatRequest true "Fields to update"
// @Success 200 {object} chatresponses.ChatDetail "Successfully updated chat"
// @Failure 400 {object} responses.ErrorResponse "Invalid request body"
// @Failure 404 {object} responses.ErrorResponse "Chat not found"
// @Router /v1/chats/{chat_id} [patch]
func (route *ChatRoute) updateChat(reqCtx *gin.Context) {
	var req chatrequests.UpdateChatRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "2d6f0a8c-4b1e-4c9d-8e3a-7f5b9d1c3e60")
		return
	}

	c, err := route.handler.UpdateChat(reqCtx.Request.Context(), reqCtx.Param("chat_id"), req.Title, req.Model, req.Pinned)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to update chat")
		return
	}
	reqCtx.JSON(http.StatusOK, chatresponses.NewChatDetail(c, route.handler.StatusOf(c.ID)))
}

// deleteChat godoc
// @Summary Delete chat
// @Description Delete a conversation from the backend and local state; selection moves to the next chat.
// @Tags Chats API
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Success 204 "Successfully deleted chat"
// @Failure 404 {object} responses.ErrorResponse "Chat not found"
// @Failure 502 {object} responses.ErrorResponse "Backend unavailable"
// @Router /v1/chats/{chat_id} [delete]
func (route *ChatRoute) deleteChat(reqCtx *gin.Context) {
	if err := route.handler.DeleteChat(reqCtx.Request.Context(), reqCtx.Param("chat_id")); err != nil {
		responses.HandleError(reqCtx, err, "failed to delete chat")
		return
	}
	reqCtx.Status(http.StatusNoContent)
}

// selectChat godoc
// @Summary Select chat
// @Description Make a conversation active and load its history into the live session.
// @Tags Chats API
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Success 200 {object} chatresponses.ChatDetail "Successfully selected chat"
// @Failure 404 {object} responses.ErrorResponse "Chat not found"
// @Router /v1/chats/{chat_id}/select [post]
func (route *ChatRoute) selectChat(reqCtx *gin.Context) {
	chatID := reqCtx.Param("chat_id")
	if err := route.handler.SelectChat(chatID); err != nil {
		responses.HandleError(reqCtx, err, "failed to select chat")
		return
	}
	c, err := route.handler.GetChat(reqCtx.Request.Context(), chatID)
	if err != nil {
		responses.HandleError(reqCtx, err, "chat not found")
		return
	}
	reqCtx.JSON(http.StatusOK, chatresponses.NewChatDetail(c, route.handler.StatusOf(c.ID)))
}

// sendMessage godoc
// @Summary Send message
// @Description Submit a user turn and start a generation. Use "new" as chat_id to route into the selection or a fresh chat.
// @Tags Chats API
// @Accept json
// @Produce json
// @Param chat_id path string true "Chat ID, or 'new'"
// @Param request body chatrequests.SendMessageRequest true "Message content"
// @Success 202 {object} chatresponses.SendMessageResponse "Generation started"
// @Failure 400 {object} responses.ErrorResponse "Invalid request body"
// @Failure 404 {object} responses.ErrorResponse "Chat not found"
// @Router /v1/chats/{chat_id}/messages [post]
func (route *ChatRoute) sendMessage(reqCtx *gin.Context) {
	var req chatrequests.SendMessageRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "text is required", "9e3b7d1f-5a2c-4f8e-b6d0-1c4a8e2f6b35")
		return
	}

	chatID := reqCtx.Param("chat_id")
	if chatID == "new" {
		chatID = ""
	}

	id, err := route.handler.SendMessage(reqCtx.Request.Context(), chatID, req.Text, req.Model)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to send message")
		return
	}
	reqCtx.JSON(http.StatusAccepted, chatresponses.SendMessageResponse{ChatID: id, Status: "submitted"})
}

// editMessage godoc
// @Summary Edit message
// @Description Rewrite history at a user message: later messages are dropped and the new content is resent.
// @Tags Chats API
// @Accept json
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Param message_id path string true "Message ID"
// @Param request body chatrequests.EditMessageRequest true "Replacement content"
// @Success 202 {object} chatresponses.SendMessageResponse "Generation started"
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 404 {object} responses.ErrorResponse "Chat or message not found"
// @Router /v1/chats/{chat_id}/messages/{message_id}/edit [post]
func (route *ChatRoute) editMessage(reqCtx *gin.Context) {
	var req chatrequests.EditMessageRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "text is required", "0b8e2a6c-3d9f-4c1b-a5e7-8f2d4b6c0e91")
		return
	}

	chatID := reqCtx.Param("chat_id")
	if err := route.handler.EditMessage(reqCtx.Request.Context(), chatID, reqCtx.Param("message_id"), req.Text); err != nil {
		responses.HandleError(reqCtx, err, "failed to edit message")
		return
	}
	reqCtx.JSON(http.StatusAccepted, chatresponses.SendMessageResponse{ChatID: chatID, Status: "submitted"})
}

// deleteMessage godoc
// @Summary Delete message
// @Description Remove a message and every message after it.
// @Tags Chats API
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Param message_id path string true "Message ID"
// @Success 200 {object} chatresponses.ChatDetail "Truncated chat"
// @Failure 404 {object} responses.ErrorResponse "Chat or message not found"
// @Router /v1/chats/{chat_id}/messages/{message_id} [delete]
func (route *ChatRoute) deleteMessage(reqCtx *gin.Context) {
	chatID := reqCtx.Param("chat_id")
	if err := route.handler.DeleteMessage(reqCtx.Request.Context(), chatID, reqCtx.Param("message_id")); err != nil {
		responses.HandleError(reqCtx, err, "failed to delete message")
		return
	}
	c, err := route.handler.GetChat(reqCtx.Request.Context(), chatID)
	if err != nil {
		responses.HandleError(reqCtx, err, "chat not found")
		return
	}
	reqCtx.JSON(http.StatusOK, chatresponses.NewChatDetail(c, route.handler.StatusOf(c.ID)))
}

// regenerateMessage godoc
// @Summary Regenerate message
// @Description Discard an assistant message and everything after it, then re-run generation.
// @Tags Chats API
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Param message_id path string true "Message ID"
// @Success 202 {object} chatresponses.SendMessageResponse "Generation started"
// @Failure 404 {object} responses.ErrorResponse "Chat or message not found"
// @Failure 409 {object} responses.ErrorResponse "Generation already in flight"
// @Router /v1/chats/{chat_id}/messages/{message_id}/regenerate [post]
func (route *ChatRoute) regenerateMessage(reqCtx *gin.Context) {
	chatID := reqCtx.Param("chat_id")
	if err := route.handler.RegenerateMessage(reqCtx.Request.Context(), chatID, reqCtx.Param("message_id")); err != nil {
		responses.HandleError(reqCtx, err, "failed to regenerate message")
		return
	}
	reqCtx.JSON(http.StatusAccepted, chatresponses.SendMessageResponse{ChatID: chatID, Status: "submitted"})
}

// addCheckpoint godoc
// @Summary Add checkpoint
// @Description Record a restore point at a message index.
// @Tags Chats API
// @Accept json
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Param request body chatrequests.AddCheckpointRequest true "Checkpoint position"
// @Success 201 {object} chatresponses.CheckpointResponse "Checkpoint recorded"
// @Failure 400 {object} responses.ErrorResponse "Index out of range"
// @Router /v1/chats/{chat_id}/checkpoints [post]
func (route *ChatRoute) addCheckpoint(reqCtx *gin.Context) {
	var req chatrequests.AddCheckpointRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "5f1d9b3e-7c0a-4e6d-92f8-4b6e0c2a8d57")
		return
	}

	cp, err := route.handler.AddCheckpoint(reqCtx.Request.Context(), reqCtx.Param("chat_id"), req.MessageIndex)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to add checkpoint")
		return
	}
	reqCtx.JSON(http.StatusCreated, chatresponses.CheckpointResponse{Checkpoint: cp})
}

// restoreCheckpoint godoc
// @Summary Restore checkpoint
// @Description Roll the conversation back to a recorded point; later messages and checkpoints are dropped.
// @Tags Chats API
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Param checkpoint_id path string true "Checkpoint ID"
// @Success 200 {object} chatresponses.ChatDetail "Restored chat"
// @Failure 404 {object} responses.ErrorResponse "Chat or checkpoint not found"
// @Router /v1/chats/{chat_id}/checkpoints/{checkpoint_id}/restore [post]
func (route *ChatRoute) restoreCheckpoint(reqCtx *gin.Context) {
	c, err := route.handler.RestoreCheckpoint(reqCtx.Request.Context(), reqCtx.Param("chat_id"), reqCtx.Param("checkpoint_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to restore checkpoint")
		return
	}
	reqCtx.JSON(http.StatusOK, chatresponses.NewChatDetail(c, route.handler.StatusOf(c.ID)))
}

// stopGeneration godoc
// @Summary Stop generation
// @Description Abort the in-flight generation. Aborts are silent; partial output stays.
// @Tags Chats API
// @Produce json
// @Param chat_id path string true "Chat ID"
// @Success 200 {object} chatresponses.SendMessageResponse "Generation stopped"
// @Router /v1/chats/{chat_id}/stop [post]
func (route *ChatRoute) stopGeneration(reqCtx *gin.Context) {
	route.handler.StopGeneration()
	reqCtx.JSON(http.StatusOK, chatresponses.SendMessageResponse{ChatID: reqCtx.Param("chat_id"), Status: "ready"})
}
