package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/repos"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

type testEnv struct {
	db        *gorm.DB
	log       *logger.Logger
	operators repos.OperatorRepo
	routings  repos.RoutingRepo
	nodes     repos.RoutingNodeRepo
	edges     repos.RoutingEdgeRepo
	jobs      repos.JobRepo
	ops       repos.JobOperationRepo
	sessions  repos.OperatorSessionRepo
	routing   RoutingService
	operation OperationService
	session   SessionService
	job       JobService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.Operator{},
		&types.Customer{},
		&types.Part{},
		&types.OperationType{},
		&types.Routing{},
		&types.RoutingNode{},
		&types.RoutingEdge{},
		&types.Job{},
		&types.JobOperation{},
		&types.OperatorSession{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}

	env := &testEnv{
		db:        db,
		log:       log,
		operators: repos.NewOperatorRepo(db, log),
		routings:  repos.NewRoutingRepo(db, log),
		nodes:     repos.NewRoutingNodeRepo(db, log),
		edges:     repos.NewRoutingEdgeRepo(db, log),
		jobs:      repos.NewJobRepo(db, log),
		ops:       repos.NewJobOperationRepo(db, log),
		sessions:  repos.NewOperatorSessionRepo(db, log),
	}
	env.routing = NewRoutingService(db, log, env.routings, env.nodes, env.edges)
	env.operation = NewOperationService(db, log, env.ops, env.jobs, nil)
	env.session = NewSessionService(db, log, env.sessions, env.operation, nil)
	env.job = NewJobService(db, log, env.jobs, env.ops, env.sessions, env.routing, nil)
	return env
}

func (env *testEnv) seedJob(t *testing.T, companyID uuid.UUID, opNames ...string) (*types.Job, []*types.JobOperation) {
	t.Helper()
	now := time.Now().UTC()
	job := &types.Job{
		ID:              uuid.New(),
		CompanyID:       companyID,
		JobNumber:       "J-" + uuid.NewString()[:8],
		QuantityOrdered: 10,
		Status:          types.JobStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := env.jobs.Create(context.Background(), nil, []*types.Job{job}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	operations := make([]*types.JobOperation, 0, len(opNames))
	for i, name := range opNames {
		operations = append(operations, &types.JobOperation{
			ID:            uuid.New(),
			JobID:         job.ID,
			OperationName: name,
			Sequence:      i + 1,
			Status:        types.OperationStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	if _, err := env.ops.Create(context.Background(), nil, operations); err != nil {
		t.Fatalf("seed operations: %v", err)
	}
	return job, operations
}

func (env *testEnv) seedOperator(t *testing.T, companyID uuid.UUID, name string) *types.Operator {
	t.Helper()
	now := time.Now().UTC()
	operator := &types.Operator{
		ID:        uuid.New(),
		CompanyID: companyID,
		Name:      name,
		PinHash:   "x",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := env.operators.Create(context.Background(), nil, []*types.Operator{operator}); err != nil {
		t.Fatalf("seed operator: %v", err)
	}
	return operator
}

func (env *testEnv) jobStatus(t *testing.T, jobID uuid.UUID) string {
	t.Helper()
	rows, err := env.jobs.GetByIDs(context.Background(), nil, []uuid.UUID{jobID})
	if err != nil || len(rows) == 0 {
		t.Fatalf("reload job: %v", err)
	}
	return rows[0].Status
}

func (env *testEnv) jobQuantityCompleted(t *testing.T, jobID uuid.UUID) int {
	t.Helper()
	rows, err := env.jobs.GetByIDs(context.Background(), nil, []uuid.UUID{jobID})
	if err != nil || len(rows) == 0 {
		t.Fatalf("reload job: %v", err)
	}
	return rows[0].QuantityCompleted
}

func (env *testEnv) opStatus(t *testing.T, opID uuid.UUID) string {
	t.Helper()
	rows, err := env.ops.GetByIDs(context.Background(), nil, []uuid.UUID{opID})
	if err != nil || len(rows) == 0 {
		t.Fatalf("reload operation: %v", err)
	}
	return rows[0].Status
}
