package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Job statuses. Pending, in_progress and completed are derived from the
// job's operations and written only by the status derivation; on_hold,
// shipped and cancelled are administrative and never overwritten by it.
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusOnHold     = "on_hold"
	JobStatusCompleted  = "completed"
	JobStatusShipped    = "shipped"
	JobStatusCancelled  = "cancelled"
)

// IsAdministrativeJobStatus reports whether a status is set by admins
// rather than derived from operation state.
func IsAdministrativeJobStatus(status string) bool {
	switch status {
	case JobStatusOnHold, JobStatusShipped, JobStatusCancelled:
		return true
	}
	return false
}

type Job struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	JobNumber         string     `gorm:"column:job_number;not null;index" json:"job_number"`
	CustomerID        *uuid.UUID `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Customer          *Customer  `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	PartID            *uuid.UUID `gorm:"type:uuid;index" json:"part_id,omitempty"`
	Part              *Part      `gorm:"foreignKey:PartID;references:ID" json:"part,omitempty"`
	RoutingID         *uuid.UUID `gorm:"type:uuid" json:"routing_id,omitempty"`
	QuantityOrdered   int        `gorm:"column:quantity_ordered;not null;default:1" json:"quantity_ordered"`
	QuantityCompleted int        `gorm:"column:quantity_completed;not null;default:0" json:"quantity_completed"`
	Status            string     `gorm:"not null;default:'pending';index" json:"status"`
	DueDate           *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	// Free-form shop fields (PO number, priority, coating spec) that
	// differ per installation.
	CustomFields datatypes.JSON `gorm:"column:custom_fields" json:"custom_fields,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }
