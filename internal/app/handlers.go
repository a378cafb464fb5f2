package app

import (
	"github.com/yungbote/shopfloor-backend/internal/handlers"
	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/sse"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Operator *handlers.OperatorHandler
	Routing  *handlers.RoutingHandler
	Job      *handlers.JobHandler
	SSE      *handlers.SSEHandler
}

func wireHandlers(log *logger.Logger, services Services, sseHub *sse.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:     handlers.NewAuthHandler(services.Auth),
		Operator: handlers.NewOperatorHandler(services.Job, services.Session),
		Routing:  handlers.NewRoutingHandler(services.Routing),
		Job:      handlers.NewJobHandler(services.Job, services.Operation),
		SSE:      handlers.NewSSEHandler(log, sseHub),
	}
}
