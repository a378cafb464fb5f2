package types

import (
	"time"

	"github.com/google/uuid"
)

type Part struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	Name       string    `gorm:"not null" json:"name"`
	PartNumber string    `gorm:"column:part_number" json:"part_number"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Part) TableName() string { return "parts" }
