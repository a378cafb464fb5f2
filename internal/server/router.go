package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/shopfloor-backend/internal/handlers"
	"github.com/yungbote/shopfloor-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	OperatorHandler *handlers.OperatorHandler
	RoutingHandler  *handlers.RoutingHandler
	JobHandler      *handlers.JobHandler
	SSEHandler      *handlers.SSEHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/logout", cfg.AuthHandler.Logout)
	protected.POST("/operators/hash-pin", cfg.AuthHandler.HashPIN)
	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.Stream)
	protected.POST("/sse/subscribe", cfg.SSEHandler.Subscribe)
	protected.POST("/sse/unsubscribe", cfg.SSEHandler.Unsubscribe)
	// Operator station
	protected.GET("/jobs", cfg.OperatorHandler.ListJobs)
	protected.GET("/jobs/:id", cfg.OperatorHandler.GetJob)
	protected.POST("/operations/:id/start", cfg.OperatorHandler.StartOperation)
	protected.POST("/operations/:id/stop", cfg.OperatorHandler.StopOperation)
	protected.POST("/operations/:id/complete", cfg.OperatorHandler.CompleteOperation)
	protected.GET("/sessions/active", cfg.OperatorHandler.ActiveSession)
	protected.GET("/sessions/history", cfg.OperatorHandler.SessionHistory)
	// Supervisor
	protected.POST("/jobs", cfg.JobHandler.Create)
	protected.POST("/jobs/:id/status", cfg.JobHandler.SetStatus)
	protected.POST("/jobs/:id/release", cfg.JobHandler.ReleaseStatus)
	protected.POST("/operations/:id/skip", cfg.JobHandler.SkipOperation)
	protected.POST("/operations/:id/undo", cfg.JobHandler.UndoOperation)
	// Routing editor
	protected.POST("/routings", cfg.RoutingHandler.Create)
	protected.GET("/routings/:id/graph", cfg.RoutingHandler.GetGraph)
	protected.POST("/routings/:id/graph", cfg.RoutingHandler.SaveGraph)
	protected.POST("/routings/:id/edges", cfg.RoutingHandler.AddEdge)
	protected.DELETE("/routing-nodes/:nodeID", cfg.RoutingHandler.RemoveNode)
	protected.POST("/routings/:id/default", cfg.RoutingHandler.SetDefault)
	protected.POST("/routings/:id/clone", cfg.RoutingHandler.Clone)

	return router
}
