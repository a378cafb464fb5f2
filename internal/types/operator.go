package types

import (
	"time"

	"github.com/google/uuid"
)

type Operator struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	Name        string     `gorm:"not null" json:"name"`
	PinHash     string     `gorm:"column:pin_hash;not null" json:"-"`
	QRCodeID    *string    `gorm:"column:qr_code_id;index" json:"qr_code_id,omitempty"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Operator) TableName() string { return "operators" }
