package services

import (
	"testing"

	"github.com/yungbote/shopfloor-backend/internal/types"
)

func opsWithStatuses(statuses ...string) []*types.JobOperation {
	out := make([]*types.JobOperation, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, &types.JobOperation{Status: s})
	}
	return out
}

func TestDeriveJobStatus(t *testing.T) {
	cases := []struct {
		name     string
		current  string
		statuses []string
		want     string
	}{
		{"all pending", types.JobStatusPending, []string{"pending", "pending"}, types.JobStatusPending},
		{"one in progress", types.JobStatusPending, []string{"in_progress", "pending"}, types.JobStatusInProgress},
		{"partial resolved no active", types.JobStatusInProgress, []string{"completed", "pending"}, types.JobStatusInProgress},
		{"partial via skip", types.JobStatusPending, []string{"skipped", "pending"}, types.JobStatusInProgress},
		{"all completed", types.JobStatusInProgress, []string{"completed", "completed"}, types.JobStatusCompleted},
		{"skips count as resolved", types.JobStatusInProgress, []string{"completed", "skipped"}, types.JobStatusCompleted},
		{"undo pulls completed back", types.JobStatusCompleted, []string{"completed", "pending"}, types.JobStatusInProgress},
		{"undo everything", types.JobStatusCompleted, []string{"pending", "pending"}, types.JobStatusPending},
		{"on hold untouched", types.JobStatusOnHold, []string{"completed", "completed"}, types.JobStatusOnHold},
		{"shipped untouched", types.JobStatusShipped, []string{"pending"}, types.JobStatusShipped},
		{"cancelled untouched", types.JobStatusCancelled, []string{"in_progress"}, types.JobStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveJobStatus(tc.current, opsWithStatuses(tc.statuses...))
			if got != tc.want {
				t.Fatalf("DeriveJobStatus(%q, %v) = %q, want %q", tc.current, tc.statuses, got, tc.want)
			}
		})
	}
}

func TestDeriveJobStatusNoOperations(t *testing.T) {
	for _, current := range []string{types.JobStatusPending, types.JobStatusOnHold, types.JobStatusCompleted} {
		if got := DeriveJobStatus(current, nil); got != current {
			t.Fatalf("job with no operations moved from %q to %q", current, got)
		}
	}
}

func TestDeriveCompletedQuantity(t *testing.T) {
	qty := func(n int) *int { return &n }
	cases := []struct {
		name string
		ops  []*types.JobOperation
		want int
	}{
		{"smallest reported wins", []*types.JobOperation{
			{Status: types.OperationStatusCompleted, QuantityCompleted: qty(9)},
			{Status: types.OperationStatusCompleted, QuantityCompleted: qty(7)},
		}, 7},
		{"skipped operations ignored", []*types.JobOperation{
			{Status: types.OperationStatusCompleted, QuantityCompleted: qty(6)},
			{Status: types.OperationStatusSkipped},
		}, 6},
		{"unreported completions ignored", []*types.JobOperation{
			{Status: types.OperationStatusCompleted, QuantityCompleted: qty(5)},
			{Status: types.OperationStatusCompleted},
		}, 5},
		{"nothing reported falls back to ordered", []*types.JobOperation{
			{Status: types.OperationStatusCompleted},
			{Status: types.OperationStatusSkipped},
		}, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveCompletedQuantity(10, tc.ops); got != tc.want {
				t.Fatalf("DeriveCompletedQuantity = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDeriveJobStatusIdempotent(t *testing.T) {
	statuses := []string{"completed", "in_progress", "pending"}
	first := DeriveJobStatus(types.JobStatusPending, opsWithStatuses(statuses...))
	second := DeriveJobStatus(first, opsWithStatuses(statuses...))
	if first != second {
		t.Fatalf("derivation not idempotent: %q then %q", first, second)
	}
}
