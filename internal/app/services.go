package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/ratelimit"
	"github.com/yungbote/shopfloor-backend/internal/services"
	"github.com/yungbote/shopfloor-backend/internal/sse"
)

type Services struct {
	Auth      services.AuthService
	Routing   services.RoutingService
	Operation services.OperationService
	Session   services.SessionService
	Job       services.JobService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, hub *sse.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	var limiter ratelimit.Limiter = ratelimit.NoopLimiter{}
	if cfg.RedisAddrPresent {
		redisLimiter, err := ratelimit.NewRedisLimiter(log, cfg.LoginRateLimit, cfg.LoginRateWindow)
		if err != nil {
			return Services{}, err
		}
		limiter = redisLimiter
	}

	notifier := services.NewFloorNotifier(hub)
	routingService := services.NewRoutingService(db, log, r.Routing, r.RoutingNode, r.RoutingEdge)
	operationService := services.NewOperationService(db, log, r.JobOperation, r.Job, notifier)
	sessionService := services.NewSessionService(db, log, r.OperatorSession, operationService, notifier)
	jobService := services.NewJobService(db, log, r.Job, r.JobOperation, r.OperatorSession, routingService, notifier)
	authService := services.NewAuthService(db, log, r.Operator, limiter, cfg.JWTSecretKey, cfg.AccessTokenTTL)

	return Services{
		Auth:      authService,
		Routing:   routingService,
		Operation: operationService,
		Session:   sessionService,
		Job:       jobService,
	}, nil
}
