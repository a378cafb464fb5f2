package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

type RoutingEdgeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.RoutingEdge) ([]*types.RoutingEdge, error)
	GetByRoutingID(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) ([]*types.RoutingEdge, error)
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	FullDeleteByNodeIDs(ctx context.Context, tx *gorm.DB, nodeIDs []uuid.UUID) error
}

type routingEdgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoutingEdgeRepo(db *gorm.DB, baseLog *logger.Logger) RoutingEdgeRepo {
	repoLog := baseLog.With("repo", "RoutingEdgeRepo")
	return &routingEdgeRepo{db: db, log: repoLog}
}

func (r *routingEdgeRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.RoutingEdge) ([]*types.RoutingEdge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.RoutingEdge{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *routingEdgeRepo) GetByRoutingID(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) ([]*types.RoutingEdge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RoutingEdge
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

func (r *routingEdgeRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.RoutingEdge{}).Error
}

// FullDeleteByNodeIDs cascades node removal to every edge touching the
// nodes, on either end.
func (r *routingEdgeRepo) FullDeleteByNodeIDs(ctx context.Context, tx *gorm.DB, nodeIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(nodeIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("source_node_id IN ? OR target_node_id IN ?", nodeIDs, nodeIDs).
		Delete(&types.RoutingEdge{}).Error
}
