package services

import (
	"github.com/google/uuid"

	"github.com/yungbote/shopfloor-backend/internal/sse"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

// FloorNotifier pushes shop-floor events to stations after a mutation
// commits. Delivering the notification is best effort; the
// jobStatusChanged flag in every mutating response is the durable
// signal.
type FloorNotifier interface {
	JobStatusChanged(jobID uuid.UUID, newStatus string)
	OperationTransitioned(event sse.SSEEvent, op *types.JobOperation)
	SessionSuperseded(session *types.OperatorSession, byOperatorID uuid.UUID)
}

type floorNotifier struct {
	hub *sse.SSEHub
}

func NewFloorNotifier(hub *sse.SSEHub) FloorNotifier {
	return &floorNotifier{hub: hub}
}

func (n *floorNotifier) broadcast(jobID uuid.UUID, event sse.SSEEvent, data any) {
	if n.hub == nil {
		return
	}
	n.hub.Broadcast(sse.SSEMessage{Channel: sse.JobChannel(jobID), Event: event, Data: data})
	n.hub.Broadcast(sse.SSEMessage{Channel: sse.FloorChannel, Event: event, Data: data})
}

func (n *floorNotifier) JobStatusChanged(jobID uuid.UUID, newStatus string) {
	n.broadcast(jobID, sse.SSEEventJobStatusChanged, map[string]any{
		"job_id": jobID,
		"status": newStatus,
	})
}

func (n *floorNotifier) OperationTransitioned(event sse.SSEEvent, op *types.JobOperation) {
	if op == nil {
		return
	}
	n.broadcast(op.JobID, event, map[string]any{
		"job_id":       op.JobID,
		"operation_id": op.ID,
		"status":       op.Status,
	})
}

func (n *floorNotifier) SessionSuperseded(session *types.OperatorSession, byOperatorID uuid.UUID) {
	if session == nil {
		return
	}
	n.broadcast(session.JobID, sse.SSEEventSessionSuperseded, map[string]any{
		"job_id":           session.JobID,
		"operation_id":     session.JobOperationID,
		"session_id":       session.ID,
		"operator_id":      session.OperatorID,
		"taken_over_by_id": byOperatorID,
	})
}
