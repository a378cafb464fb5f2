package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/repos"
)

type Repos struct {
	Operator        repos.OperatorRepo
	Routing         repos.RoutingRepo
	RoutingNode     repos.RoutingNodeRepo
	RoutingEdge     repos.RoutingEdgeRepo
	Job             repos.JobRepo
	JobOperation    repos.JobOperationRepo
	OperatorSession repos.OperatorSessionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Operator:        repos.NewOperatorRepo(db, log),
		Routing:         repos.NewRoutingRepo(db, log),
		RoutingNode:     repos.NewRoutingNodeRepo(db, log),
		RoutingEdge:     repos.NewRoutingEdgeRepo(db, log),
		Job:             repos.NewJobRepo(db, log),
		JobOperation:    repos.NewJobOperationRepo(db, log),
		OperatorSession: repos.NewOperatorSessionRepo(db, log),
	}
}
