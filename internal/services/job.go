package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/apierr"
	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/repos"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

// CreateJobInput carries everything needed to open a job. RoutingID may
// be nil for ad hoc jobs, which start with no operations.
type CreateJobInput struct {
	CompanyID       uuid.UUID  `json:"company_id"`
	JobNumber       string     `json:"job_number"`
	CustomerID      *uuid.UUID `json:"customer_id,omitempty"`
	PartID          *uuid.UUID `json:"part_id,omitempty"`
	RoutingID       *uuid.UUID `json:"routing_id,omitempty"`
	QuantityOrdered int        `json:"quantity_ordered"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	// Passed through to the job's custom_fields column untouched.
	CustomFields datatypes.JSON `json:"custom_fields,omitempty"`
}

// JobView is the operator-facing list row: the job plus where it stands
// right now.
type JobView struct {
	Job                 *types.Job          `json:"job"`
	CurrentOperation    *types.JobOperation `json:"current_operation,omitempty"`
	CurrentOperatorName string              `json:"current_operator_name,omitempty"`
	TotalOperations     int                 `json:"total_operations"`
	CompletedOperations int                 `json:"completed_operations"`
	EstimatedHours      float64             `json:"estimated_hours"`
}

// JobDetail is the drill-down view with the full operation list.
type JobDetail struct {
	Job        *types.Job            `json:"job"`
	Operations []*types.JobOperation `json:"operations"`
}

type JobService interface {
	Create(ctx context.Context, tx *gorm.DB, input CreateJobInput) (*JobDetail, error)
	GetWithOperations(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*JobDetail, error)
	ListWorkable(ctx context.Context, companyID uuid.UUID) ([]*JobView, error)
	SetAdministrativeStatus(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, status string) (*types.Job, error)
	ReleaseAdministrativeStatus(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.Job, error)
}

type jobService struct {
	db       *gorm.DB
	log      *logger.Logger
	jobs     repos.JobRepo
	ops      repos.JobOperationRepo
	sessions repos.OperatorSessionRepo
	routings RoutingService
	notify   FloorNotifier
}

func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobs repos.JobRepo,
	ops repos.JobOperationRepo,
	sessions repos.OperatorSessionRepo,
	routings RoutingService,
	notify FloorNotifier,
) JobService {
	return &jobService{
		db:       db,
		log:      baseLog.With("service", "JobService"),
		jobs:     jobs,
		ops:      ops,
		sessions: sessions,
		routings: routings,
		notify:   notify,
	}
}

// Create opens the job and spawns one operation per routing node, in
// the routing's materialized order. Sequence starts at 1 and estimates
// and instructions are copied off the node so later routing edits never
// rewrite history on live jobs.
func (s *jobService) Create(ctx context.Context, tx *gorm.DB, input CreateJobInput) (*JobDetail, error) {
	if input.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("missing company id")
	}
	if input.JobNumber == "" {
		return nil, fmt.Errorf("missing job number")
	}
	qty := input.QuantityOrdered
	if qty <= 0 {
		qty = 1
	}

	var detail *JobDetail
	run := func(txx *gorm.DB) error {
		now := time.Now().UTC()
		job := &types.Job{
			ID:              uuid.New(),
			CompanyID:       input.CompanyID,
			JobNumber:       input.JobNumber,
			CustomerID:      input.CustomerID,
			PartID:          input.PartID,
			RoutingID:       input.RoutingID,
			QuantityOrdered: qty,
			Status:          types.JobStatusPending,
			DueDate:         input.DueDate,
			CustomFields:    input.CustomFields,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, err := s.jobs.Create(ctx, txx, []*types.Job{job}); err != nil {
			return err
		}

		var operations []*types.JobOperation
		if input.RoutingID != nil {
			nodes, err := s.routings.MaterializeOrder(ctx, txx, *input.RoutingID)
			if err != nil {
				return err
			}
			for i, node := range nodes {
				nodeID := node.ID
				operations = append(operations, &types.JobOperation{
					ID:                       uuid.New(),
					JobID:                    job.ID,
					RoutingNodeID:            &nodeID,
					OperationTypeID:          node.OperationTypeID,
					OperationName:            node.Name,
					Sequence:                 i + 1,
					Status:                   types.OperationStatusPending,
					EstimatedSetupHours:      node.EstimatedSetupHours,
					EstimatedRunHoursPerUnit: node.EstimatedRunHoursPerUnit,
					Instructions:             node.Instructions,
					CreatedAt:                now,
					UpdatedAt:                now,
				})
			}
			if _, err := s.ops.Create(ctx, txx, operations); err != nil {
				return err
			}
		}

		detail = &JobDetail{Job: job, Operations: operations}
		return nil
	}

	var err error
	if tx != nil {
		err = run(tx)
	} else {
		err = s.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return nil, err
	}
	if detail.Operations == nil {
		detail.Operations = []*types.JobOperation{}
	}
	return detail, nil
}

func (s *jobService) GetWithOperations(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*JobDetail, error) {
	jobs, err := s.jobs.GetByIDs(ctx, tx, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, apierr.NotFound(fmt.Errorf("job %s not found", jobID))
	}
	operations, err := s.ops.GetByJobID(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	return &JobDetail{Job: jobs[0], Operations: operations}, nil
}

// ListWorkable returns pending and in_progress jobs with their current
// operation and, when someone is on it, the operator's name. The
// current operation is the in_progress one if any, otherwise the first
// pending one by sequence.
func (s *jobService) ListWorkable(ctx context.Context, companyID uuid.UUID) ([]*JobView, error) {
	jobs, err := s.jobs.GetWorkableByCompany(ctx, nil, companyID)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return []*JobView{}, nil
	}

	jobIDs := make([]uuid.UUID, 0, len(jobs))
	for _, job := range jobs {
		jobIDs = append(jobIDs, job.ID)
	}
	operations, err := s.ops.GetByJobIDs(ctx, nil, jobIDs)
	if err != nil {
		return nil, err
	}
	byJob := make(map[uuid.UUID][]*types.JobOperation, len(jobs))
	for _, op := range operations {
		byJob[op.JobID] = append(byJob[op.JobID], op)
	}

	views := make([]*JobView, 0, len(jobs))
	for _, job := range jobs {
		view := &JobView{Job: job}
		var firstPending *types.JobOperation
		for _, op := range byJob[job.ID] {
			view.TotalOperations++
			view.EstimatedHours += op.EstimatedSetupHours + op.EstimatedRunHoursPerUnit*float64(job.QuantityOrdered)
			switch {
			case types.IsResolvedOperationStatus(op.Status):
				view.CompletedOperations++
			case op.Status == types.OperationStatusInProgress:
				view.CurrentOperation = op
			case firstPending == nil:
				firstPending = op
			}
		}
		if view.CurrentOperation == nil {
			view.CurrentOperation = firstPending
		}
		if view.CurrentOperation != nil && view.CurrentOperation.Status == types.OperationStatusInProgress {
			session, err := s.sessions.GetActiveByOperationID(ctx, nil, view.CurrentOperation.ID)
			if err != nil {
				return nil, err
			}
			if session != nil && session.Operator != nil {
				view.CurrentOperatorName = session.Operator.Name
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// SetAdministrativeStatus pins the job to on_hold, shipped or
// cancelled. Administrative statuses stick until released; operation
// transitions underneath never overwrite them.
func (s *jobService) SetAdministrativeStatus(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, status string) (*types.Job, error) {
	if !types.IsAdministrativeJobStatus(status) {
		return nil, apierr.InvalidTransition(fmt.Errorf("status %q is not administrative", status))
	}

	var job *types.Job
	run := func(txx *gorm.DB) error {
		jobs, err := s.jobs.GetByIDs(ctx, txx, []uuid.UUID{jobID})
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return apierr.NotFound(fmt.Errorf("job %s not found", jobID))
		}
		job = jobs[0]
		if job.Status == status {
			return nil
		}
		if err := s.jobs.UpdateFields(ctx, txx, jobID, map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}); err != nil {
			return err
		}
		job.Status = status
		return nil
	}

	var err error
	if tx != nil {
		err = run(tx)
	} else {
		err = s.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return nil, err
	}
	if tx == nil && s.notify != nil {
		s.notify.JobStatusChanged(jobID, job.Status)
	}
	return job, nil
}

// ReleaseAdministrativeStatus drops the pin and re-derives the job
// status from its operations, so a hold released after the last
// completion lands directly on completed.
func (s *jobService) ReleaseAdministrativeStatus(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.Job, error) {
	var job *types.Job
	run := func(txx *gorm.DB) error {
		jobs, err := s.jobs.GetByIDs(ctx, txx, []uuid.UUID{jobID})
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return apierr.NotFound(fmt.Errorf("job %s not found", jobID))
		}
		job = jobs[0]
		if !types.IsAdministrativeJobStatus(job.Status) {
			return nil
		}

		operations, err := s.ops.GetByJobID(ctx, txx, jobID)
		if err != nil {
			return err
		}
		next := DeriveJobStatus(types.JobStatusPending, operations)
		fields := map[string]interface{}{
			"status":     next,
			"updated_at": time.Now().UTC(),
		}
		// Operations resolved under the hold never rolled up; land the
		// quantity together with the released status.
		if next == types.JobStatusCompleted {
			qty := DeriveCompletedQuantity(job.QuantityOrdered, operations)
			fields["quantity_completed"] = qty
			job.QuantityCompleted = qty
		}
		if err := s.jobs.UpdateFields(ctx, txx, jobID, fields); err != nil {
			return err
		}
		job.Status = next
		return nil
	}

	var err error
	if tx != nil {
		err = run(tx)
	} else {
		err = s.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return nil, err
	}
	if tx == nil && s.notify != nil {
		s.notify.JobStatusChanged(jobID, job.Status)
	}
	return job, nil
}
