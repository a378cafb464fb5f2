package services

import (
	"github.com/yungbote/shopfloor-backend/internal/types"
)

// DeriveJobStatus maps a job's operation states to the job's overall
// status. Pure function: same snapshot in, same status out, no side
// effects. The result is persisted inside the same transaction as the
// operation transition that triggered it, so readers never see an
// operation update paired with a stale job status.
//
// Rules, in order:
//   - administrative statuses (on_hold, shipped, cancelled) are never
//     overwritten here
//   - a job with no operations keeps whatever status it has
//     (administrative control only)
//   - every operation completed or skipped -> completed
//   - any operation in progress -> in_progress
//   - some but not all resolved -> in_progress (partial progress counts
//     as started)
//   - otherwise -> pending
func DeriveJobStatus(current string, operations []*types.JobOperation) string {
	if types.IsAdministrativeJobStatus(current) {
		return current
	}
	if len(operations) == 0 {
		return current
	}

	resolved := 0
	anyInProgress := false
	for _, op := range operations {
		if op == nil {
			continue
		}
		if op.Status == types.OperationStatusInProgress {
			anyInProgress = true
		}
		if types.IsResolvedOperationStatus(op.Status) {
			resolved++
		}
	}

	switch {
	case resolved == len(operations):
		return types.JobStatusCompleted
	case anyInProgress:
		return types.JobStatusInProgress
	case resolved > 0:
		return types.JobStatusInProgress
	default:
		return types.JobStatusPending
	}
}

// DeriveCompletedQuantity rolls operation actuals up to the job once
// every operation is resolved. Every unit must pass every completed
// step, so the job-level quantity is the smallest one reported by a
// completed operation. Skipped operations report nothing; with no
// reported quantities at all the full ordered quantity is assumed good.
func DeriveCompletedQuantity(quantityOrdered int, operations []*types.JobOperation) int {
	lowest := -1
	for _, op := range operations {
		if op == nil || op.Status != types.OperationStatusCompleted || op.QuantityCompleted == nil {
			continue
		}
		if lowest < 0 || *op.QuantityCompleted < lowest {
			lowest = *op.QuantityCompleted
		}
	}
	if lowest < 0 {
		return quantityOrdered
	}
	return lowest
}
