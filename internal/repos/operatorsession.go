package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

type OperatorSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.OperatorSession) ([]*types.OperatorSession, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.OperatorSession, error)
	GetActiveByOperationID(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (*types.OperatorSession, error)
	GetActiveByOperatorID(ctx context.Context, tx *gorm.DB, operatorID uuid.UUID) (*types.OperatorSession, error)
	GetHistoryByOperatorID(ctx context.Context, tx *gorm.DB, operatorID uuid.UUID, limit int) ([]*types.OperatorSession, error)
	CountActiveByOperationID(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (int64, error)
	CloseIfActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, endedAt time.Time, reason string, notes string) (int64, error)
}

type operatorSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOperatorSessionRepo(db *gorm.DB, baseLog *logger.Logger) OperatorSessionRepo {
	repoLog := baseLog.With("repo", "OperatorSessionRepo")
	return &operatorSessionRepo{db: db, log: repoLog}
}

func (r *operatorSessionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.OperatorSession) ([]*types.OperatorSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.OperatorSession{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *operatorSessionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.OperatorSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.OperatorSession
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

func (r *operatorSessionRepo) GetActiveByOperationID(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (*types.OperatorSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if operationID == uuid.Nil {
		return nil, nil
	}
	var results []*types.OperatorSession
	if err := transaction.WithContext(ctx).
		Preload("Operator").
		Where("job_operation_id = ? AND ended_at IS NULL", operationID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *operatorSessionRepo) GetActiveByOperatorID(ctx context.Context, tx *gorm.DB, operatorID uuid.UUID) (*types.OperatorSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if operatorID == uuid.Nil {
		return nil, nil
	}
	var results []*types.OperatorSession
	if err := transaction.WithContext(ctx).
		Where("operator_id = ? AND ended_at IS NULL", operatorID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *operatorSessionRepo) GetHistoryByOperatorID(ctx context.Context, tx *gorm.DB, operatorID uuid.UUID, limit int) ([]*types.OperatorSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.OperatorSession
	if operatorID == uuid.Nil {
		return results, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if err := transaction.WithContext(ctx).
		Where("operator_id = ?", operatorID).
		Order("started_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *operatorSessionRepo) CountActiveByOperationID(ctx context.Context, tx *gorm.DB, operationID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if operationID == uuid.Nil {
		return 0, nil
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.OperatorSession{}).
		Where("job_operation_id = ? AND ended_at IS NULL", operationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CloseIfActive sets ended_at only while the session is still open, so
// a session cannot be closed twice and a raced close reports zero rows.
func (r *operatorSessionRepo) CloseIfActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, endedAt time.Time, reason string, notes string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return 0, nil
	}
	fields := map[string]interface{}{
		"ended_at":   endedAt,
		"end_reason": reason,
		"updated_at": endedAt,
	}
	if notes != "" {
		fields["notes"] = notes
	}
	res := transaction.WithContext(ctx).
		Model(&types.OperatorSession{}).
		Where("id = ? AND ended_at IS NULL", id).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
