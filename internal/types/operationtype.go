package types

import (
	"time"

	"github.com/google/uuid"
)

// OperationType is a station / process step kind (mill, turn, deburr,
// inspect...). Station QR codes resolve to an operation type.
type OperationType struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (OperationType) TableName() string { return "operation_types" }
