package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/shopfloor-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		OperatorHandler: handlers.Operator,
		RoutingHandler:  handlers.Routing,
		JobHandler:      handlers.Job,
		SSEHandler:      handlers.SSE,
		AllowOrigins:    cfg.AllowOrigins,
	})
}
