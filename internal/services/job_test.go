package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/shopfloor-backend/internal/apierr"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

func TestCreateJobSpawnsOperationsInRoutingOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	companyID := uuid.New()
	routing, nodes := env.seedRouting(t, companyID, nil, "Saw", "Mill", "Drill", "Inspect")
	// Diamond: Saw fans out, Inspect joins.
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[1])
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[2])
	env.mustAddEdge(t, routing.ID, nodes[1], nodes[3])
	env.mustAddEdge(t, routing.ID, nodes[2], nodes[3])
	nodes[1].EstimatedSetupHours = 1.5
	nodes[1].EstimatedRunHoursPerUnit = 0.25
	nodes[1].Instructions = "use fixture 7"
	if err := env.db.Save(nodes[1]).Error; err != nil {
		t.Fatalf("update node: %v", err)
	}

	routingID := routing.ID
	detail, err := env.job.Create(ctx, nil, CreateJobInput{
		CompanyID:       companyID,
		JobNumber:       "J-1001",
		RoutingID:       &routingID,
		QuantityOrdered: 4,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if len(detail.Operations) != 4 {
		t.Fatalf("spawned %d operations, want 4", len(detail.Operations))
	}
	for i, op := range detail.Operations {
		if op.Sequence != i+1 {
			t.Fatalf("operation %d has sequence %d", i, op.Sequence)
		}
		if op.Status != types.OperationStatusPending {
			t.Fatalf("operation %q spawned as %q", op.OperationName, op.Status)
		}
	}
	if detail.Operations[0].OperationName != "Saw" || detail.Operations[3].OperationName != "Inspect" {
		t.Fatalf("operation order wrong: first %q last %q", detail.Operations[0].OperationName, detail.Operations[3].OperationName)
	}

	var mill *types.JobOperation
	for _, op := range detail.Operations {
		if op.OperationName == "Mill" {
			mill = op
		}
	}
	if mill == nil {
		t.Fatal("mill operation missing")
	}
	if mill.EstimatedSetupHours != 1.5 || mill.EstimatedRunHoursPerUnit != 0.25 {
		t.Fatalf("estimates not copied: setup=%v run=%v", mill.EstimatedSetupHours, mill.EstimatedRunHoursPerUnit)
	}
	if mill.Instructions != "use fixture 7" {
		t.Fatalf("instructions not copied: %q", mill.Instructions)
	}
	if mill.RoutingNodeID == nil || *mill.RoutingNodeID != nodes[1].ID {
		t.Fatal("operation not linked to its routing node")
	}
}

func TestCreateAdHocJobHasNoOperations(t *testing.T) {
	env := newTestEnv(t)
	detail, err := env.job.Create(context.Background(), nil, CreateJobInput{
		CompanyID: uuid.New(),
		JobNumber: "J-2001",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(detail.Operations) != 0 {
		t.Fatalf("ad hoc job spawned %d operations", len(detail.Operations))
	}
	if detail.Job.Status != types.JobStatusPending {
		t.Fatalf("ad hoc job status = %q", detail.Job.Status)
	}
}

func TestCreateJobFromEmptyRouting(t *testing.T) {
	env := newTestEnv(t)
	companyID := uuid.New()
	routing, _ := env.seedRouting(t, companyID, nil)
	routingID := routing.ID
	detail, err := env.job.Create(context.Background(), nil, CreateJobInput{
		CompanyID: companyID,
		JobNumber: "J-2002",
		RoutingID: &routingID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(detail.Operations) != 0 {
		t.Fatalf("empty routing spawned %d operations", len(detail.Operations))
	}
}

func TestListWorkableShowsCurrentOperationAndOperator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	companyID := uuid.New()
	job, ops := env.seedJob(t, companyID, "Saw", "Mill")
	operator := env.seedOperator(t, companyID, "Dana")

	if _, err := env.session.StartOperation(ctx, ops[0].ID, operator.ID, companyID, nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	views, err := env.job.ListWorkable(ctx, companyID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("listed %d jobs, want 1", len(views))
	}
	view := views[0]
	if view.Job.ID != job.ID {
		t.Fatal("listed wrong job")
	}
	if view.CurrentOperation == nil || view.CurrentOperation.ID != ops[0].ID {
		t.Fatal("current operation should be the in-progress one")
	}
	if view.CurrentOperatorName != "Dana" {
		t.Fatalf("current operator name = %q", view.CurrentOperatorName)
	}
	if view.TotalOperations != 2 || view.CompletedOperations != 0 {
		t.Fatalf("counts = %d/%d", view.CompletedOperations, view.TotalOperations)
	}
}

func TestListWorkableExcludesResolvedJobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	companyID := uuid.New()
	_, ops := env.seedJob(t, companyID, "Saw")
	held, _ := env.seedJob(t, companyID, "Mill")

	if _, err := env.operation.Skip(ctx, nil, ops[0].ID, "done elsewhere"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if _, err := env.job.SetAdministrativeStatus(ctx, nil, held.ID, types.JobStatusOnHold); err != nil {
		t.Fatalf("hold: %v", err)
	}

	views, err := env.job.ListWorkable(ctx, companyID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("completed and held jobs should not be workable, got %d", len(views))
	}
}

func TestSetAdministrativeStatusValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	job, _ := env.seedJob(t, uuid.New(), "Saw")
	_, err := env.job.SetAdministrativeStatus(context.Background(), nil, job.ID, types.JobStatusInProgress)
	if !apierr.HasCode(err, apierr.CodeInvalidTransition) {
		t.Fatalf("derived status must be rejected as administrative, got %v", err)
	}
}

func TestReleaseDerivesDirectlyToCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job, ops := env.seedJob(t, uuid.New(), "Saw")

	if _, err := env.operation.Start(ctx, nil, ops[0].ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.job.SetAdministrativeStatus(ctx, nil, job.ID, types.JobStatusOnHold); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if _, err := env.operation.Complete(ctx, nil, ops[0].ID, CompleteInput{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := env.jobStatus(t, job.ID); got != types.JobStatusOnHold {
		t.Fatalf("completion under hold moved job to %q", got)
	}

	released, err := env.job.ReleaseAdministrativeStatus(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != types.JobStatusCompleted {
		t.Fatalf("release should land on completed, got %q", released.Status)
	}
	// No operation reported a quantity, so the ordered quantity counts
	// as fully good.
	if got := env.jobQuantityCompleted(t, job.ID); got != 10 {
		t.Fatalf("release rolled up quantity %d, want 10", got)
	}
}

func TestCompletionRollsUpJobQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job, ops := env.seedJob(t, uuid.New(), "Saw", "Mill")

	nine, eight := 9, 8
	if _, err := env.operation.Start(ctx, nil, ops[0].ID); err != nil {
		t.Fatalf("start saw: %v", err)
	}
	if _, err := env.operation.Complete(ctx, nil, ops[0].ID, CompleteInput{QuantityCompleted: &nine}); err != nil {
		t.Fatalf("complete saw: %v", err)
	}
	if got := env.jobQuantityCompleted(t, job.ID); got != 0 {
		t.Fatalf("quantity rolled up before the job finished: %d", got)
	}

	if _, err := env.operation.Start(ctx, nil, ops[1].ID); err != nil {
		t.Fatalf("start mill: %v", err)
	}
	if _, err := env.operation.Complete(ctx, nil, ops[1].ID, CompleteInput{QuantityCompleted: &eight}); err != nil {
		t.Fatalf("complete mill: %v", err)
	}
	if got := env.jobStatus(t, job.ID); got != types.JobStatusCompleted {
		t.Fatalf("job status = %q, want completed", got)
	}
	// The smallest reported quantity is what made it through every step.
	if got := env.jobQuantityCompleted(t, job.ID); got != 8 {
		t.Fatalf("job quantity completed = %d, want 8", got)
	}

	// Undo reopens the job and the roll-up goes with it.
	if _, err := env.operation.Undo(ctx, nil, ops[1].ID); err != nil {
		t.Fatalf("undo mill: %v", err)
	}
	if got := env.jobQuantityCompleted(t, job.ID); got != 0 {
		t.Fatalf("reopened job kept quantity %d", got)
	}
}
