package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/apierr"
	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/repos"
	"github.com/yungbote/shopfloor-backend/internal/sse"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

// TransitionResult reports one committed operation transition together
// with its effect on the owning job, so callers can surface a one-time
// status notification without polling.
type TransitionResult struct {
	Operation        *types.JobOperation `json:"operation"`
	JobStatusChanged bool                `json:"job_status_changed"`
	NewJobStatus     string              `json:"new_job_status,omitempty"`
}

// CompleteInput carries the actuals recorded when an operation is
// completed. Absent actuals stay null; estimates are never copied down.
type CompleteInput struct {
	ActualSetupHours  *float64 `json:"actual_setup_hours,omitempty"`
	ActualRunHours    *float64 `json:"actual_run_hours,omitempty"`
	QuantityCompleted *int     `json:"quantity_completed,omitempty"`
	QuantityScrapped  *int     `json:"quantity_scrapped,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

// OperationService is the per-operation state machine. Legal
// transitions: pending -> in_progress (Start), in_progress -> completed
// (Complete), pending -> skipped (Skip), completed/skipped -> pending
// (Undo). Every transition and the resulting job status write commit in
// one transaction; a failed call leaves the operation exactly as it
// was.
type OperationService interface {
	Start(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (*TransitionResult, error)
	Complete(ctx context.Context, tx *gorm.DB, operationID uuid.UUID, input CompleteInput) (*TransitionResult, error)
	Skip(ctx context.Context, tx *gorm.DB, operationID uuid.UUID, reason string) (*TransitionResult, error)
	Undo(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (*TransitionResult, error)
	GetByID(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (*types.JobOperation, error)
}

type operationService struct {
	db     *gorm.DB
	log    *logger.Logger
	ops    repos.JobOperationRepo
	jobs   repos.JobRepo
	notify FloorNotifier
}

func NewOperationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	ops repos.JobOperationRepo,
	jobs repos.JobRepo,
	notify FloorNotifier,
) OperationService {
	return &operationService{
		db:     db,
		log:    baseLog.With("service", "OperationService"),
		ops:    ops,
		jobs:   jobs,
		notify: notify,
	}
}

func (s *operationService) GetByID(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (*types.JobOperation, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}
	rows, err := s.ops.GetByIDs(ctx, transaction, []uuid.UUID{operationID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, apierr.NotFound(fmt.Errorf("operation %s not found", operationID))
	}
	return rows[0], nil
}

// rederiveJobStatus recomputes and persists the owning job's derived
// status inside the caller's transaction. The guarded write only lands
// while the job is still in a derived status, so an administrative
// hold/ship/cancel racing in is never clobbered.
func (s *operationService) rederiveJobStatus(ctx context.Context, txx *gorm.DB, jobID uuid.UUID) (bool, string, error) {
	jobs, err := s.jobs.GetByIDs(ctx, txx, []uuid.UUID{jobID})
	if err != nil {
		return false, "", err
	}
	if len(jobs) == 0 || jobs[0] == nil {
		return false, "", apierr.NotFound(fmt.Errorf("job %s not found", jobID))
	}
	job := jobs[0]

	operations, err := s.ops.GetByJobID(ctx, txx, jobID)
	if err != nil {
		return false, "", err
	}
	derived := DeriveJobStatus(job.Status, operations)
	if derived == job.Status {
		return false, job.Status, nil
	}
	fields := map[string]interface{}{
		"status":     derived,
		"updated_at": time.Now().UTC(),
	}
	// The job-level completed quantity tracks the completed status:
	// rolled up when the job finishes, cleared when an undo reopens it.
	if derived == types.JobStatusCompleted {
		fields["quantity_completed"] = DeriveCompletedQuantity(job.QuantityOrdered, operations)
	} else if job.Status == types.JobStatusCompleted {
		fields["quantity_completed"] = 0
	}
	derivable := []string{types.JobStatusPending, types.JobStatusInProgress, types.JobStatusCompleted}
	rows, err := s.jobs.UpdateFieldsWhereStatus(ctx, txx, jobID, derivable, fields)
	if err != nil {
		return false, "", err
	}
	if rows == 0 {
		return false, job.Status, nil
	}
	return true, derived, nil
}

// Start moves one pending operation to in_progress. Only one operation
// per job may be in progress at a time, across parallel routing
// branches too; the claim is a single guarded statement so racing
// stations cannot both win.
func (s *operationService) Start(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (*TransitionResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	var result *TransitionResult
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		op, err := s.GetByID(ctx, txx, operationID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		rows, err := s.ops.ClaimStart(ctx, txx, op.ID, op.JobID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return s.classifyStartConflict(ctx, txx, op.ID, op.JobID)
		}

		changed, newStatus, err := s.rederiveJobStatus(ctx, txx, op.JobID)
		if err != nil {
			return err
		}
		op.Status = types.OperationStatusInProgress
		op.StartedAt = &now
		op.UpdatedAt = now
		result = &TransitionResult{Operation: op, JobStatusChanged: changed, NewJobStatus: newStatus}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyTransition(tx, sse.SSEEventOperationStarted, result)
	return result, nil
}

// classifyStartConflict re-reads after a failed claim to report why the
// precondition did not hold.
func (s *operationService) classifyStartConflict(ctx context.Context, txx *gorm.DB, operationID, jobID uuid.UUID) error {
	op, err := s.GetByID(ctx, txx, operationID)
	if err != nil {
		return err
	}
	if op.Status == types.OperationStatusInProgress {
		return apierr.AlreadyInProgress(fmt.Errorf("operation %s is already in progress", operationID))
	}
	operations, err := s.ops.GetByJobID(ctx, txx, jobID)
	if err != nil {
		return err
	}
	for _, other := range operations {
		if other.ID != operationID && other.Status == types.OperationStatusInProgress {
			return apierr.AlreadyInProgress(fmt.Errorf("operation %q (seq %d) of this job is already in progress; jobs run one operation at a time", other.OperationName, other.Sequence))
		}
	}
	return apierr.InvalidTransition(fmt.Errorf("operation %s cannot start from status %q", operationID, op.Status))
}

// Complete closes out an in-progress operation, recording any provided
// actuals and notes.
func (s *operationService) Complete(ctx context.Context, tx *gorm.DB, operationID uuid.UUID, input CompleteInput) (*TransitionResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	var result *TransitionResult
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		op, err := s.GetByID(ctx, txx, operationID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		fields := map[string]interface{}{
			"status":       types.OperationStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}
		if input.ActualSetupHours != nil {
			fields["actual_setup_hours"] = *input.ActualSetupHours
		}
		if input.ActualRunHours != nil {
			fields["actual_run_hours"] = *input.ActualRunHours
		}
		if input.QuantityCompleted != nil {
			fields["quantity_completed"] = *input.QuantityCompleted
		}
		if input.QuantityScrapped != nil {
			fields["quantity_scrapped"] = *input.QuantityScrapped
		}
		if input.Notes != "" {
			fields["notes"] = input.Notes
		}
		rows, err := s.ops.UpdateStatusIf(ctx, txx, op.ID, []string{types.OperationStatusInProgress}, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			fresh, err := s.GetByID(ctx, txx, operationID)
			if err != nil {
				return err
			}
			return apierr.InvalidTransition(fmt.Errorf("operation %s cannot complete from status %q", operationID, fresh.Status))
		}

		changed, newStatus, err := s.rederiveJobStatus(ctx, txx, op.JobID)
		if err != nil {
			return err
		}
		op.Status = types.OperationStatusCompleted
		op.CompletedAt = &now
		op.UpdatedAt = now
		op.ActualSetupHours = input.ActualSetupHours
		op.ActualRunHours = input.ActualRunHours
		op.QuantityCompleted = input.QuantityCompleted
		op.QuantityScrapped = input.QuantityScrapped
		if input.Notes != "" {
			op.Notes = input.Notes
		}
		result = &TransitionResult{Operation: op, JobStatusChanged: changed, NewJobStatus: newStatus}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyTransition(tx, sse.SSEEventOperationCompleted, result)
	return result, nil
}

// Skip resolves a pending operation without work. Skipped counts the
// same as completed for job completion.
func (s *operationService) Skip(ctx context.Context, tx *gorm.DB, operationID uuid.UUID, reason string) (*TransitionResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	var result *TransitionResult
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		op, err := s.GetByID(ctx, txx, operationID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		fields := map[string]interface{}{
			"status":     types.OperationStatusSkipped,
			"updated_at": now,
		}
		if reason != "" {
			fields["notes"] = "Skipped: " + reason
		}
		rows, err := s.ops.UpdateStatusIf(ctx, txx, op.ID, []string{types.OperationStatusPending}, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			fresh, err := s.GetByID(ctx, txx, operationID)
			if err != nil {
				return err
			}
			return apierr.InvalidTransition(fmt.Errorf("operation %s cannot be skipped from status %q", operationID, fresh.Status))
		}

		changed, newStatus, err := s.rederiveJobStatus(ctx, txx, op.JobID)
		if err != nil {
			return err
		}
		op.Status = types.OperationStatusSkipped
		op.UpdatedAt = now
		if reason != "" {
			op.Notes = "Skipped: " + reason
		}
		result = &TransitionResult{Operation: op, JobStatusChanged: changed, NewJobStatus: newStatus}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyTransition(tx, sse.SSEEventOperationSkipped, result)
	return result, nil
}

// Undo returns a completed or skipped operation to pending, clearing
// timestamps and actuals. This can retroactively pull a completed job
// back to in_progress or pending.
func (s *operationService) Undo(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (*TransitionResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	var result *TransitionResult
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		op, err := s.GetByID(ctx, txx, operationID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		fields := map[string]interface{}{
			"status":             types.OperationStatusPending,
			"started_at":         nil,
			"completed_at":       nil,
			"actual_setup_hours": nil,
			"actual_run_hours":   nil,
			"quantity_completed": nil,
			"quantity_scrapped":  nil,
			"updated_at":         now,
		}
		rows, err := s.ops.UpdateStatusIf(ctx, txx, op.ID, []string{types.OperationStatusCompleted, types.OperationStatusSkipped}, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			fresh, err := s.GetByID(ctx, txx, operationID)
			if err != nil {
				return err
			}
			return apierr.InvalidTransition(fmt.Errorf("operation %s cannot be undone from status %q", operationID, fresh.Status))
		}

		changed, newStatus, err := s.rederiveJobStatus(ctx, txx, op.JobID)
		if err != nil {
			return err
		}
		op.Status = types.OperationStatusPending
		op.StartedAt = nil
		op.CompletedAt = nil
		op.ActualSetupHours = nil
		op.ActualRunHours = nil
		op.QuantityCompleted = nil
		op.QuantityScrapped = nil
		op.UpdatedAt = now
		result = &TransitionResult{Operation: op, JobStatusChanged: changed, NewJobStatus: newStatus}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyTransition(tx, sse.SSEEventOperationUndone, result)
	return result, nil
}

// notifyTransition broadcasts after commit. When the caller supplied an
// outer transaction the commit is theirs, so notification is theirs
// too.
func (s *operationService) notifyTransition(outerTx *gorm.DB, event sse.SSEEvent, result *TransitionResult) {
	if outerTx != nil || s.notify == nil || result == nil {
		return
	}
	s.notify.OperationTransitioned(event, result.Operation)
	if result.JobStatusChanged {
		s.notify.JobStatusChanged(result.Operation.JobID, result.NewJobStatus)
	}
}
