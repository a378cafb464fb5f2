package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

type RoutingNodeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.RoutingNode) ([]*types.RoutingNode, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.RoutingNode, error)
	GetByRoutingID(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) ([]*types.RoutingNode, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type routingNodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoutingNodeRepo(db *gorm.DB, baseLog *logger.Logger) RoutingNodeRepo {
	repoLog := baseLog.With("repo", "RoutingNodeRepo")
	return &routingNodeRepo{db: db, log: repoLog}
}

func (r *routingNodeRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.RoutingNode) ([]*types.RoutingNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.RoutingNode{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *routingNodeRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.RoutingNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RoutingNode
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

// GetByRoutingID returns nodes in creation order, which is the
// tie-break order for topological materialization.
func (r *routingNodeRepo) GetByRoutingID(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) ([]*types.RoutingNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RoutingNode
	if routingID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("routing_id = ?", routingID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *routingNodeRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.RoutingNode{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *routingNodeRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.RoutingNode{}).Error
}
