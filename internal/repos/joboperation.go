package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

type JobOperationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.JobOperation) ([]*types.JobOperation, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.JobOperation, error)
	GetByJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.JobOperation, error)
	GetByJobIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) ([]*types.JobOperation, error)
	ClaimStart(ctx context.Context, tx *gorm.DB, id uuid.UUID, jobID uuid.UUID, startedAt time.Time) (int64, error)
	UpdateStatusIf(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromStatuses []string, fields map[string]interface{}) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByJobIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) error
}

type jobOperationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobOperationRepo(db *gorm.DB, baseLog *logger.Logger) JobOperationRepo {
	repoLog := baseLog.With("repo", "JobOperationRepo")
	return &jobOperationRepo{db: db, log: repoLog}
}

func (r *jobOperationRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.JobOperation) ([]*types.JobOperation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.JobOperation{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *jobOperationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.JobOperation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.JobOperation
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *jobOperationRepo) GetByJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.JobOperation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.JobOperation
	if jobID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("sequence ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *jobOperationRepo) GetByJobIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) ([]*types.JobOperation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.JobOperation
	if len(jobIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("job_id IN ?", jobIDs).
		Order("job_id, sequence ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ClaimStart flips one pending operation to in_progress in a single
// guarded statement. The NOT EXISTS clause enforces the
// one-active-operation-per-job rule at the store, so two stations
// racing to start operations of the same job cannot both win; the
// loser sees zero rows affected and re-reads to classify the conflict.
func (r *jobOperationRepo) ClaimStart(ctx context.Context, tx *gorm.DB, id uuid.UUID, jobID uuid.UUID, startedAt time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || jobID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.JobOperation{}).
		Where("id = ? AND status = ?", id, types.OperationStatusPending).
		Where("NOT EXISTS (SELECT 1 FROM job_operations busy WHERE busy.job_id = ? AND busy.status = ? AND busy.id <> ?)",
			jobID, types.OperationStatusInProgress, id).
		Updates(map[string]interface{}{
			"status":     types.OperationStatusInProgress,
			"started_at": startedAt,
			"updated_at": startedAt,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// UpdateStatusIf writes fields only while the operation is still in one
// of fromStatuses. Zero rows affected means the precondition no longer
// holds; nothing is written.
func (r *jobOperationRepo) UpdateStatusIf(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromStatuses []string, fields map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(fields) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.JobOperation{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *jobOperationRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.JobOperation{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *jobOperationRepo) FullDeleteByJobIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("job_id IN ?", jobIDs).
		Delete(&types.JobOperation{}).Error
}
