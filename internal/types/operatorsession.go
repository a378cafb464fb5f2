package types

import (
	"time"

	"github.com/google/uuid"
)

// Session end reasons, recorded when ended_at is set.
const (
	SessionEndStopped    = "stopped"
	SessionEndCompleted  = "completed"
	SessionEndSuperseded = "superseded"
	SessionEndSwitched   = "switched"
)

// OperatorSession binds one operator to one in-progress operation.
// While EndedAt is nil the session is active; at most one active
// session may reference a given operation. Elapsed time is always
// now - started_at at read time, never stored while active.
type OperatorSession struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"company_id"`
	OperatorID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"operator_id"`
	Operator        *Operator     `gorm:"constraint:OnDelete:CASCADE;foreignKey:OperatorID;references:ID" json:"operator,omitempty"`
	JobID           uuid.UUID     `gorm:"type:uuid;not null;index" json:"job_id"`
	JobOperationID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"job_operation_id"`
	JobOperation    *JobOperation `gorm:"constraint:OnDelete:CASCADE;foreignKey:JobOperationID;references:ID" json:"job_operation,omitempty"`
	OperationTypeID *uuid.UUID    `gorm:"type:uuid" json:"operation_type_id,omitempty"`
	StartedAt       time.Time     `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt         *time.Time    `gorm:"column:ended_at" json:"ended_at,omitempty"`
	EndReason       string        `gorm:"column:end_reason" json:"end_reason,omitempty"`
	Notes           string        `json:"notes"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`
}

func (OperatorSession) TableName() string { return "operator_sessions" }

// Active reports whether the session is still open.
func (s *OperatorSession) Active() bool { return s != nil && s.EndedAt == nil }

// Elapsed returns the session duration as of now (or as of EndedAt once
// closed).
func (s *OperatorSession) Elapsed(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(s.StartedAt)
}
