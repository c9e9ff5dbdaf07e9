package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/interfaces/httpserver/routes/v1/chat"
	"chat-client/internal/interfaces/httpserver/routes/v1/model"
)

type V1Route struct {
	chat  *chat.ChatRoute
	model *model.ModelRoute
}

func NewV1Route(chatRoute *chat.ChatRoute, modelRoute *model.ModelRoute) *V1Route {
	return &V1Route{
		chat:  chatRoute,
		model: modelRoute,
	}
}

func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Router.GET("/healthz", GetHealthz)
	v1Router.GET("/readyz", GetReadyz)

	v1Route.chat.RegisterRouter(v1Router)
	v1Route.model.RegisterRouter(v1Router)
}

func GetHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func GetReadyz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
