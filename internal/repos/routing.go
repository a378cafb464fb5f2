package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

type RoutingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Routing) ([]*types.Routing, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Routing, error)
	GetByPartID(ctx context.Context, tx *gorm.DB, partID uuid.UUID) ([]*types.Routing, error)
	GetDefaultByPartID(ctx context.Context, tx *gorm.DB, partID uuid.UUID) (*types.Routing, error)
	ClearDefaultForPart(ctx context.Context, tx *gorm.DB, partID uuid.UUID, exceptID uuid.UUID) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type routingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoutingRepo(db *gorm.DB, baseLog *logger.Logger) RoutingRepo {
	repoLog := baseLog.With("repo", "RoutingRepo")
	return &routingRepo{db: db, log: repoLog}
}

func (r *routingRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Routing) ([]*types.Routing, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Routing{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *routingRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Routing, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Routing
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

func (r *routingRepo) GetByPartID(ctx context.Context, tx *gorm.DB, partID uuid.UUID) ([]*types.Routing, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Routing
	if partID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *routingRepo) GetDefaultByPartID(ctx context.Context, tx *gorm.DB, partID uuid.UUID) (*types.Routing, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if partID == uuid.Nil {
		return nil, nil
	}
	var results []*types.Routing
	if err := transaction.WithContext(ctx).
		Where("part_id = ? AND is_default = ?", partID, true).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// ClearDefaultForPart drops the default flag on every routing of the
// part except exceptID. Runs inside the caller's transaction when the
// default is being moved, so the one-default-per-part invariant holds
// atomically.
func (r *routingRepo) ClearDefaultForPart(ctx context.Context, tx *gorm.DB, partID uuid.UUID, exceptID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if partID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Routing{}).
		Where("part_id = ? AND id <> ? AND is_default = ?", partID, exceptID, true).
		Update("is_default", false).Error
}

func (r *routingRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Routing{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *routingRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.Routing{}).Error
}
