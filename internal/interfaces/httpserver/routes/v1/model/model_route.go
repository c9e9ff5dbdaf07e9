package model

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/interfaces/httpserver/handlers/chathandler"
	"chat-client/internal/interfaces/httpserver/responses"
	chatresponses "chat-client/internal/interfaces/httpserver/responses/chat"
)

type ModelRoute struct {
	handler *chathandler.ChatHandler
}

func NewModelRoute(handler *chathandler.ChatHandler) *ModelRoute {
	return &ModelRoute{handler: handler}
}

func (route *ModelRoute) RegisterRouter(router gin.IRouter) {
	models := router.Group("/models")
	models.GET("", route.listModels)
}

// listModels godoc
// @Summary List models
// @Description List the available models from the backend catalog.
// @Tags Models API
// @Produce json
// @Success 200 {object} chatresponses.ModelListResponse "Successfully retrieved models"
// @Failure 502 {object} responses.ErrorResponse "Backend unavailable"
// @Router /v1/models [get]
func (route *ModelRoute) listModels(reqCtx *gin.Context) {
	models, err := route.handler.ListModels(reqCtx.Request.Context())
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to list models")
		return
	}
	reqCtx.JSON(http.StatusOK, chatresponses.ModelListResponse{Object: "list", Data: models})
}
