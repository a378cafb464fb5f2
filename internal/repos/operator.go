package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

type OperatorRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Operator) ([]*types.Operator, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Operator, error)
	GetActiveByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) ([]*types.Operator, error)
	GetActiveByQRCode(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, qrCodeID string) (*types.Operator, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
}

type operatorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOperatorRepo(db *gorm.DB, baseLog *logger.Logger) OperatorRepo {
	repoLog := baseLog.With("repo", "OperatorRepo")
	return &operatorRepo{db: db, log: repoLog}
}

func (r *operatorRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Operator) ([]*types.Operator, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Operator{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *operatorRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Operator, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Operator
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

func (r *operatorRepo) GetActiveByCompany(ctx context.Context, tx *gorm.DB, companyID uuid.UUID) ([]*types.Operator, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Operator
	if companyID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *operatorRepo) GetActiveByQRCode(ctx context.Context, tx *gorm.DB, companyID uuid.UUID, qrCodeID string) (*types.Operator, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if companyID == uuid.Nil || qrCodeID == "" {
		return nil, nil
	}
	var results []*types.Operator
	if err := transaction.WithContext(ctx).
		Where("company_id = ? AND qr_code_id = ? AND is_active = ?", companyID, qrCodeID, true).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *operatorRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Operator{}).
		Where("id = ?", id).
		Updates(fields).Error
}
