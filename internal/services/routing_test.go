package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/shopfloor-backend/internal/apierr"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

func (env *testEnv) seedRouting(t *testing.T, companyID uuid.UUID, partID *uuid.UUID, nodeNames ...string) (*types.Routing, []*types.RoutingNode) {
	t.Helper()
	ctx := context.Background()
	routing, err := env.routing.Create(ctx, nil, &types.Routing{
		CompanyID: companyID,
		PartID:    partID,
		Name:      "Routing " + uuid.NewString()[:8],
		Revision:  "A",
	})
	if err != nil {
		t.Fatalf("seed routing: %v", err)
	}
	nodes := make([]*types.RoutingNode, 0, len(nodeNames))
	base := time.Now().UTC()
	for i, name := range nodeNames {
		// Staggered timestamps keep creation order deterministic.
		created := base.Add(time.Duration(i) * time.Millisecond)
		nodes = append(nodes, &types.RoutingNode{
			ID:        uuid.New(),
			RoutingID: routing.ID,
			Name:      name,
			CreatedAt: created,
			UpdatedAt: created,
		})
	}
	if _, err := env.nodes.Create(ctx, nil, nodes); err != nil {
		t.Fatalf("seed nodes: %v", err)
	}
	return routing, nodes
}

func (env *testEnv) mustAddEdge(t *testing.T, routingID uuid.UUID, source, target *types.RoutingNode) {
	t.Helper()
	if _, err := env.routing.AddEdge(context.Background(), nil, routingID, source.ID, target.ID); err != nil {
		t.Fatalf("add edge %s -> %s: %v", source.Name, target.Name, err)
	}
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	routing, nodes := env.seedRouting(t, uuid.New(), nil, "Saw", "Mill", "Inspect")

	env.mustAddEdge(t, routing.ID, nodes[0], nodes[1])
	env.mustAddEdge(t, routing.ID, nodes[1], nodes[2])

	_, err := env.routing.AddEdge(ctx, nil, routing.ID, nodes[2].ID, nodes[0].ID)
	if !apierr.HasCode(err, apierr.CodeCycleDetected) {
		t.Fatalf("closing edge should report cycle_detected, got %v", err)
	}
	edges, err := env.edges.GetByRoutingID(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("load edges: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("rejected edge was persisted: %d edges", len(edges))
	}
}

func TestAddEdgeRejectsDuplicateAndSelfAndOrphan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	routing, nodes := env.seedRouting(t, uuid.New(), nil, "Saw", "Mill")

	env.mustAddEdge(t, routing.ID, nodes[0], nodes[1])
	if _, err := env.routing.AddEdge(ctx, nil, routing.ID, nodes[0].ID, nodes[1].ID); !apierr.HasCode(err, apierr.CodeDuplicateEdge) {
		t.Fatalf("duplicate edge should report duplicate_edge, got %v", err)
	}
	if _, err := env.routing.AddEdge(ctx, nil, routing.ID, nodes[0].ID, nodes[0].ID); !apierr.HasCode(err, apierr.CodeCycleDetected) {
		t.Fatalf("self edge should report cycle_detected, got %v", err)
	}
	if _, err := env.routing.AddEdge(ctx, nil, routing.ID, nodes[0].ID, uuid.New()); !apierr.HasCode(err, apierr.CodeOrphanReference) {
		t.Fatalf("unknown endpoint should report orphan_reference, got %v", err)
	}
}

func TestMaterializeOrderDiamond(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	routing, nodes := env.seedRouting(t, uuid.New(), nil, "Saw", "Mill", "Drill", "Inspect")

	// Saw fans out to Mill and Drill, both feed Inspect.
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[1])
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[2])
	env.mustAddEdge(t, routing.ID, nodes[1], nodes[3])
	env.mustAddEdge(t, routing.ID, nodes[2], nodes[3])

	ordered, err := env.routing.MaterializeOrder(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(ordered) != 4 {
		t.Fatalf("ordered %d nodes, want 4", len(ordered))
	}
	pos := make(map[string]int, len(ordered))
	for i, n := range ordered {
		pos[n.Name] = i
	}
	if pos["Saw"] != 0 || pos["Inspect"] != 3 {
		t.Fatalf("diamond order wrong: %v", pos)
	}
	// Parallel branches fall back to creation order.
	if pos["Mill"] > pos["Drill"] {
		t.Fatalf("tie-break should follow creation order: %v", pos)
	}

	again, err := env.routing.MaterializeOrder(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("materialize again: %v", err)
	}
	for i := range ordered {
		if ordered[i].ID != again[i].ID {
			t.Fatal("materialized order is not deterministic")
		}
	}
}

func TestSaveGraphNewNodesKeepPayloadOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	routing, err := env.routing.Create(ctx, nil, &types.Routing{
		CompanyID: uuid.New(),
		Name:      "Bulk",
		Revision:  "A",
	})
	if err != nil {
		t.Fatalf("create routing: %v", err)
	}

	names := []string{"Saw", "Mill", "Drill", "Deburr", "Wash", "Inspect", "Pack"}
	save := GraphSave{}
	for _, name := range names {
		save.Nodes = append(save.Nodes, &types.RoutingNode{Name: name})
	}
	if err := env.routing.SaveGraph(ctx, nil, routing.ID, save); err != nil {
		t.Fatalf("save: %v", err)
	}

	ordered, err := env.routing.MaterializeOrder(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(ordered) != len(names) {
		t.Fatalf("materialized %d nodes, want %d", len(ordered), len(names))
	}
	// Nodes created together in one save still tie-break by creation
	// order, which for a bulk save is payload order.
	for i, n := range ordered {
		if n.Name != names[i] {
			t.Fatalf("order diverged at %d: got %q, want %q", i, n.Name, names[i])
		}
	}
}

func TestSaveGraphRejectsBeforeAnyWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	routing, nodes := env.seedRouting(t, uuid.New(), nil, "Saw", "Mill")
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[1])

	extra := &types.RoutingNode{ID: uuid.New(), Name: "Deburr"}
	save := GraphSave{
		Nodes: []*types.RoutingNode{extra},
		Edges: []*types.RoutingEdge{
			{SourceNodeID: nodes[1].ID, TargetNodeID: extra.ID},
			{SourceNodeID: nodes[1].ID, TargetNodeID: nodes[0].ID}, // closes a cycle
		},
	}
	err := env.routing.SaveGraph(ctx, nil, routing.ID, save)
	if !apierr.HasCode(err, apierr.CodeCycleDetected) {
		t.Fatalf("cyclic save should report cycle_detected, got %v", err)
	}

	// Nothing from the rejected payload landed.
	storedNodes, err := env.nodes.GetByRoutingID(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("load nodes: %v", err)
	}
	if len(storedNodes) != 2 {
		t.Fatalf("rejected save persisted nodes: %d", len(storedNodes))
	}
	storedEdges, err := env.edges.GetByRoutingID(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("load edges: %v", err)
	}
	if len(storedEdges) != 1 {
		t.Fatalf("rejected save persisted edges: %d", len(storedEdges))
	}
}

func TestSaveGraphAppliesDeletesAndAdds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	routing, nodes := env.seedRouting(t, uuid.New(), nil, "Saw", "Mill", "Inspect")
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[1])
	env.mustAddEdge(t, routing.ID, nodes[1], nodes[2])

	deburr := &types.RoutingNode{ID: uuid.New(), Name: "Deburr"}
	save := GraphSave{
		Nodes:          []*types.RoutingNode{deburr},
		Edges:          []*types.RoutingEdge{{SourceNodeID: nodes[0].ID, TargetNodeID: deburr.ID}},
		DeletedNodeIDs: []uuid.UUID{nodes[1].ID},
	}
	if err := env.routing.SaveGraph(ctx, nil, routing.ID, save); err != nil {
		t.Fatalf("save: %v", err)
	}

	storedNodes, err := env.nodes.GetByRoutingID(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("load nodes: %v", err)
	}
	names := make(map[string]bool, len(storedNodes))
	for _, n := range storedNodes {
		names[n.Name] = true
	}
	if names["Mill"] || !names["Deburr"] || len(storedNodes) != 3 {
		t.Fatalf("save applied wrong node set: %v", names)
	}
	// Edges touching the deleted node went with it.
	storedEdges, err := env.edges.GetByRoutingID(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("load edges: %v", err)
	}
	if len(storedEdges) != 1 {
		t.Fatalf("edge count after save = %d, want 1", len(storedEdges))
	}
	if storedEdges[0].TargetNodeID != deburr.ID {
		t.Fatal("surviving edge is not the new one")
	}
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	routing, nodes := env.seedRouting(t, uuid.New(), nil, "Saw", "Mill", "Inspect")
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[1])
	env.mustAddEdge(t, routing.ID, nodes[1], nodes[2])

	if err := env.routing.RemoveNode(ctx, nil, nodes[1].ID); err != nil {
		t.Fatalf("remove node: %v", err)
	}
	storedEdges, err := env.edges.GetByRoutingID(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("load edges: %v", err)
	}
	if len(storedEdges) != 0 {
		t.Fatalf("edges touching removed node survived: %d", len(storedEdges))
	}
}

func TestSetDefaultIsExclusivePerPart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	companyID := uuid.New()
	partID := uuid.New()
	first, _ := env.seedRouting(t, companyID, &partID, "Saw")
	second, _ := env.seedRouting(t, companyID, &partID, "Mill")

	if err := env.routing.SetDefault(ctx, nil, first.ID); err != nil {
		t.Fatalf("set default first: %v", err)
	}
	if err := env.routing.SetDefault(ctx, nil, second.ID); err != nil {
		t.Fatalf("set default second: %v", err)
	}

	def, err := env.routings.GetDefaultByPartID(ctx, nil, partID)
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if def == nil || def.ID != second.ID {
		t.Fatal("default did not move to the second routing")
	}
	reloaded, err := env.routings.GetByIDs(ctx, nil, []uuid.UUID{first.ID})
	if err != nil || len(reloaded) == 0 {
		t.Fatalf("reload first: %v", err)
	}
	if reloaded[0].IsDefault {
		t.Fatal("previous default flag was not cleared")
	}
}

func TestSetDefaultRequiresPart(t *testing.T) {
	env := newTestEnv(t)
	routing, _ := env.seedRouting(t, uuid.New(), nil, "Saw")
	if err := env.routing.SetDefault(context.Background(), nil, routing.ID); err == nil {
		t.Fatal("routing without a part must not become a part default")
	}
}

func TestCloneCopiesGraphWithFreshIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	routing, nodes := env.seedRouting(t, uuid.New(), nil, "Saw", "Mill", "Inspect")
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[1])
	env.mustAddEdge(t, routing.ID, nodes[1], nodes[2])

	clone, err := env.routing.Clone(ctx, nil, routing.ID, "Rev B", "B")
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if clone.ID == routing.ID {
		t.Fatal("clone reused the source id")
	}
	if clone.IsDefault {
		t.Fatal("clone must not inherit the default flag")
	}

	_, cloneNodes, cloneEdges, err := env.routing.GetGraph(ctx, nil, clone.ID)
	if err != nil {
		t.Fatalf("load clone graph: %v", err)
	}
	if len(cloneNodes) != 3 || len(cloneEdges) != 2 {
		t.Fatalf("clone shape = %d nodes / %d edges, want 3/2", len(cloneNodes), len(cloneEdges))
	}
	sourceIDs := make(map[uuid.UUID]bool, len(nodes))
	for _, n := range nodes {
		sourceIDs[n.ID] = true
	}
	cloneByID := make(map[uuid.UUID]bool, len(cloneNodes))
	for _, n := range cloneNodes {
		if sourceIDs[n.ID] {
			t.Fatal("clone node reused a source node id")
		}
		cloneByID[n.ID] = true
	}
	for _, e := range cloneEdges {
		if !cloneByID[e.SourceNodeID] || !cloneByID[e.TargetNodeID] {
			t.Fatal("clone edge references a node outside the clone")
		}
	}

	// The clone orders the same as the source, node for node by name.
	sourceOrder, err := env.routing.MaterializeOrder(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("materialize source: %v", err)
	}
	cloneOrder, err := env.routing.MaterializeOrder(ctx, nil, clone.ID)
	if err != nil {
		t.Fatalf("materialize clone: %v", err)
	}
	for i := range sourceOrder {
		if sourceOrder[i].Name != cloneOrder[i].Name {
			t.Fatalf("clone order diverged at %d: %q vs %q", i, sourceOrder[i].Name, cloneOrder[i].Name)
		}
	}
}

func TestClonePreservesParallelBranchOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	routing, nodes := env.seedRouting(t, uuid.New(), nil, "Saw", "Mill", "Drill", "Tap", "Inspect")

	// Saw fans out to three parallel branches that all feed Inspect, so
	// Mill, Drill and Tap order purely by tie-break.
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[1])
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[2])
	env.mustAddEdge(t, routing.ID, nodes[0], nodes[3])
	env.mustAddEdge(t, routing.ID, nodes[1], nodes[4])
	env.mustAddEdge(t, routing.ID, nodes[2], nodes[4])
	env.mustAddEdge(t, routing.ID, nodes[3], nodes[4])

	clone, err := env.routing.Clone(ctx, nil, routing.ID, "Rev B", "B")
	if err != nil {
		t.Fatalf("clone: %v", err)
	}

	sourceOrder, err := env.routing.MaterializeOrder(ctx, nil, routing.ID)
	if err != nil {
		t.Fatalf("materialize source: %v", err)
	}
	cloneOrder, err := env.routing.MaterializeOrder(ctx, nil, clone.ID)
	if err != nil {
		t.Fatalf("materialize clone: %v", err)
	}
	for i := range sourceOrder {
		if sourceOrder[i].Name != cloneOrder[i].Name {
			t.Fatalf("parallel branches resequenced at %d: %q vs %q", i, sourceOrder[i].Name, cloneOrder[i].Name)
		}
	}
}
