package types

import (
	"time"

	"github.com/google/uuid"
)

// Operation statuses. Legal transitions: pending -> in_progress ->
// completed, pending -> skipped, and completed/skipped -> pending via
// undo. Everything else is rejected.
const (
	OperationStatusPending    = "pending"
	OperationStatusInProgress = "in_progress"
	OperationStatusCompleted  = "completed"
	OperationStatusSkipped    = "skipped"
)

// IsResolvedOperationStatus reports whether an operation counts toward
// job completion (skipped operations resolve a job same as completed).
func IsResolvedOperationStatus(status string) bool {
	return status == OperationStatusCompleted || status == OperationStatusSkipped
}

// JobOperation is one concrete, stateful instance of a routing node
// within a job, spawned at job creation and owned by the job. Sequence
// is the node's topological rank at creation time, starting at 1.
type JobOperation struct {
	ID                       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	JobID                    uuid.UUID  `gorm:"type:uuid;not null;index" json:"job_id"`
	Job                      *Job       `gorm:"constraint:OnDelete:CASCADE;foreignKey:JobID;references:ID" json:"job,omitempty"`
	RoutingNodeID            *uuid.UUID `gorm:"type:uuid" json:"routing_node_id,omitempty"`
	OperationTypeID          *uuid.UUID `gorm:"type:uuid;index" json:"operation_type_id,omitempty"`
	OperationName            string     `gorm:"column:operation_name;not null" json:"operation_name"`
	Sequence                 int        `gorm:"not null" json:"sequence"`
	Status                   string     `gorm:"not null;default:'pending';index" json:"status"`
	EstimatedSetupHours      float64    `gorm:"column:estimated_setup_hours;not null;default:0" json:"estimated_setup_hours"`
	EstimatedRunHoursPerUnit float64    `gorm:"column:estimated_run_hours_per_unit;not null;default:0" json:"estimated_run_hours_per_unit"`
	ActualSetupHours         *float64   `gorm:"column:actual_setup_hours" json:"actual_setup_hours,omitempty"`
	ActualRunHours           *float64   `gorm:"column:actual_run_hours" json:"actual_run_hours,omitempty"`
	QuantityCompleted        *int       `gorm:"column:quantity_completed" json:"quantity_completed,omitempty"`
	QuantityScrapped         *int       `gorm:"column:quantity_scrapped" json:"quantity_scrapped,omitempty"`
	Instructions             string     `json:"instructions"`
	Notes                    string     `json:"notes"`
	StartedAt                *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt              *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt                time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt                time.Time  `gorm:"not null" json:"updated_at"`
}

func (JobOperation) TableName() string { return "job_operations" }
