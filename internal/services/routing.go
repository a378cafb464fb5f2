package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/shopfloor-backend/internal/apierr"
	"github.com/yungbote/shopfloor-backend/internal/graph"
	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/repos"
	"github.com/yungbote/shopfloor-backend/internal/types"
)

// GraphSave is the bulk edit payload for one routing: upserted nodes
// and edges plus deletions, applied as a single validated unit.
type GraphSave struct {
	Nodes          []*types.RoutingNode
	Edges          []*types.RoutingEdge
	DeletedNodeIDs []uuid.UUID
	DeletedEdgeIDs []uuid.UUID
}

type RoutingService interface {
	Create(ctx context.Context, tx *gorm.DB, routing *types.Routing) (*types.Routing, error)
	GetGraph(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) (*types.Routing, []*types.RoutingNode, []*types.RoutingEdge, error)
	AddEdge(ctx context.Context, tx *gorm.DB, routingID, sourceNodeID, targetNodeID uuid.UUID) (*types.RoutingEdge, error)
	RemoveNode(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) error
	SetDefault(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) error
	SaveGraph(ctx context.Context, tx *gorm.DB, routingID uuid.UUID, save GraphSave) error
	Clone(ctx context.Context, tx *gorm.DB, routingID uuid.UUID, name, revision string) (*types.Routing, error)
	MaterializeOrder(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) ([]*types.RoutingNode, error)
}

type routingService struct {
	db       *gorm.DB
	log      *logger.Logger
	routings repos.RoutingRepo
	nodes    repos.RoutingNodeRepo
	edges    repos.RoutingEdgeRepo
}

func NewRoutingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	routings repos.RoutingRepo,
	nodes repos.RoutingNodeRepo,
	edges repos.RoutingEdgeRepo,
) RoutingService {
	return &routingService{
		db:       db,
		log:      baseLog.With("service", "RoutingService"),
		routings: routings,
		nodes:    nodes,
		edges:    edges,
	}
}

func (s *routingService) Create(ctx context.Context, tx *gorm.DB, routing *types.Routing) (*types.Routing, error) {
	if routing == nil {
		return nil, fmt.Errorf("missing routing")
	}
	if routing.ID == uuid.Nil {
		routing.ID = uuid.New()
	}
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}
	rows, err := s.routings.Create(ctx, transaction, []*types.Routing{routing})
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (s *routingService) GetGraph(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) (*types.Routing, []*types.RoutingNode, []*types.RoutingEdge, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}
	routings, err := s.routings.GetByIDs(ctx, transaction, []uuid.UUID{routingID})
	if err != nil {
		return nil, nil, nil, err
	}
	if len(routings) == 0 {
		return nil, nil, nil, apierr.NotFound(fmt.Errorf("routing %s not found", routingID))
	}
	nodes, err := s.nodes.GetByRoutingID(ctx, transaction, routingID)
	if err != nil {
		return nil, nil, nil, err
	}
	edges, err := s.edges.GetByRoutingID(ctx, transaction, routingID)
	if err != nil {
		return nil, nil, nil, err
	}
	return routings[0], nodes, edges, nil
}

// buildGraph assembles the in-memory DAG for a node/edge snapshot,
// adding nodes in creation order so downstream topological sorts break
// ties deterministically.
func buildGraph(nodes []*types.RoutingNode, edges []*types.RoutingEdge) (*graph.Graph, error) {
	g := graph.New()
	for _, n := range nodes {
		g.AddNode(n.ID)
	}
	for _, e := range edges {
		if err := g.AddEdge(e.SourceNodeID, e.TargetNodeID); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func mapGraphErr(err error) error {
	switch {
	case errors.Is(err, graph.ErrCycle), errors.Is(err, graph.ErrSelfEdge):
		return apierr.CycleDetected(err)
	case errors.Is(err, graph.ErrDuplicateEdge):
		return apierr.DuplicateEdge(err)
	case errors.Is(err, graph.ErrUnknownNode):
		return apierr.OrphanReference(err)
	default:
		return err
	}
}

// AddEdge inserts a single directed edge after checking, in order: both
// endpoints belong to the routing, the edge is not a duplicate, and the
// edge does not close a cycle. All checks run against the current
// committed state inside one transaction; a rejection writes nothing.
func (s *routingService) AddEdge(ctx context.Context, tx *gorm.DB, routingID, sourceNodeID, targetNodeID uuid.UUID) (*types.RoutingEdge, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	var created *types.RoutingEdge
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		nodes, err := s.nodes.GetByRoutingID(ctx, txx, routingID)
		if err != nil {
			return err
		}
		edges, err := s.edges.GetByRoutingID(ctx, txx, routingID)
		if err != nil {
			return err
		}
		g, err := buildGraph(nodes, edges)
		if err != nil {
			// Stored edges should always re-validate; surface loudly if not.
			return fmt.Errorf("stored routing graph invalid: %w", err)
		}
		if err := g.AddEdge(sourceNodeID, targetNodeID); err != nil {
			return mapGraphErr(err)
		}

		now := time.Now().UTC()
		edge := &types.RoutingEdge{
			ID:           uuid.New(),
			RoutingID:    routingID,
			SourceNodeID: sourceNodeID,
			TargetNodeID: targetNodeID,
			CreatedAt:    now,
		}
		rows, err := s.edges.Create(ctx, txx, []*types.RoutingEdge{edge})
		if err != nil {
			return err
		}
		created = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveNode deletes a node and cascades to every edge touching it.
func (s *routingService) RemoveNode(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		nodes, err := s.nodes.GetByIDs(ctx, txx, []uuid.UUID{nodeID})
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			return apierr.NotFound(fmt.Errorf("routing node %s not found", nodeID))
		}
		if err := s.edges.FullDeleteByNodeIDs(ctx, txx, []uuid.UUID{nodeID}); err != nil {
			return err
		}
		return s.nodes.FullDeleteByIDs(ctx, txx, []uuid.UUID{nodeID})
	})
}

// SetDefault makes this routing its part's default: clearing the flag
// elsewhere and setting it here commit as one unit or not at all.
func (s *routingService) SetDefault(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		routings, err := s.routings.GetByIDs(ctx, txx, []uuid.UUID{routingID})
		if err != nil {
			return err
		}
		if len(routings) == 0 {
			return apierr.NotFound(fmt.Errorf("routing %s not found", routingID))
		}
		routing := routings[0]
		if routing.PartID == nil {
			return apierr.New(400, apierr.CodeOrphanReference, fmt.Errorf("routing %s has no part; generic routings cannot be a part default", routingID))
		}
		if err := s.routings.ClearDefaultForPart(ctx, txx, *routing.PartID, routing.ID); err != nil {
			return err
		}
		return s.routings.UpdateFields(ctx, txx, routing.ID, map[string]interface{}{
			"is_default": true,
			"updated_at": time.Now().UTC(),
		})
	})
}

// SaveGraph applies a bulk edit. The resulting node and edge sets are
// assembled in memory and validated (membership, duplicates,
// acyclicity) before the first write; a structural rejection leaves the
// stored graph untouched.
func (s *routingService) SaveGraph(ctx context.Context, tx *gorm.DB, routingID uuid.UUID, save GraphSave) error {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		routings, err := s.routings.GetByIDs(ctx, txx, []uuid.UUID{routingID})
		if err != nil {
			return err
		}
		if len(routings) == 0 {
			return apierr.NotFound(fmt.Errorf("routing %s not found", routingID))
		}

		existingNodes, err := s.nodes.GetByRoutingID(ctx, txx, routingID)
		if err != nil {
			return err
		}
		existingEdges, err := s.edges.GetByRoutingID(ctx, txx, routingID)
		if err != nil {
			return err
		}

		deletedNodes := make(map[uuid.UUID]bool, len(save.DeletedNodeIDs))
		for _, id := range save.DeletedNodeIDs {
			deletedNodes[id] = true
		}
		deletedEdges := make(map[uuid.UUID]bool, len(save.DeletedEdgeIDs))
		for _, id := range save.DeletedEdgeIDs {
			deletedEdges[id] = true
		}

		now := time.Now().UTC()

		// Final node set: survivors in creation order, then new nodes in
		// payload order.
		existingByID := make(map[uuid.UUID]*types.RoutingNode, len(existingNodes))
		finalNodes := make([]*types.RoutingNode, 0, len(existingNodes)+len(save.Nodes))
		for _, n := range existingNodes {
			existingByID[n.ID] = n
			if !deletedNodes[n.ID] {
				finalNodes = append(finalNodes, n)
			}
		}
		var newNodes []*types.RoutingNode
		var updatedNodes []*types.RoutingNode
		for _, n := range save.Nodes {
			if n == nil {
				continue
			}
			n.RoutingID = routingID
			if n.ID == uuid.Nil {
				n.ID = uuid.New()
			}
			if deletedNodes[n.ID] {
				return apierr.OrphanReference(fmt.Errorf("node %s both saved and deleted", n.ID))
			}
			if _, ok := existingByID[n.ID]; ok {
				updatedNodes = append(updatedNodes, n)
				continue
			}
			// New nodes share one wall-clock instant; stagger the stamps so
			// the materialization tie-break keeps payload order.
			stamp := now.Add(time.Duration(len(newNodes)) * time.Microsecond)
			n.CreatedAt = stamp
			n.UpdatedAt = stamp
			newNodes = append(newNodes, n)
			finalNodes = append(finalNodes, n)
		}

		// Final edge set: survivors plus new pairs.
		pairSeen := make(map[[2]uuid.UUID]bool, len(existingEdges))
		finalEdges := make([]*types.RoutingEdge, 0, len(existingEdges)+len(save.Edges))
		for _, e := range existingEdges {
			if deletedEdges[e.ID] || deletedNodes[e.SourceNodeID] || deletedNodes[e.TargetNodeID] {
				deletedEdges[e.ID] = true
				continue
			}
			pairSeen[[2]uuid.UUID{e.SourceNodeID, e.TargetNodeID}] = true
			finalEdges = append(finalEdges, e)
		}
		var newEdges []*types.RoutingEdge
		for _, e := range save.Edges {
			if e == nil {
				continue
			}
			pair := [2]uuid.UUID{e.SourceNodeID, e.TargetNodeID}
			if pairSeen[pair] {
				return apierr.DuplicateEdge(fmt.Errorf("edge %s -> %s already exists", e.SourceNodeID, e.TargetNodeID))
			}
			pairSeen[pair] = true
			e.RoutingID = routingID
			if e.ID == uuid.Nil {
				e.ID = uuid.New()
			}
			e.CreatedAt = now
			newEdges = append(newEdges, e)
			finalEdges = append(finalEdges, e)
		}

		// Structural validation of the end state before any write.
		if _, err := buildGraph(finalNodes, finalEdges); err != nil {
			return mapGraphErr(err)
		}

		edgeIDsToDelete := make([]uuid.UUID, 0, len(deletedEdges))
		for id := range deletedEdges {
			edgeIDsToDelete = append(edgeIDsToDelete, id)
		}
		if err := s.edges.FullDeleteByIDs(ctx, txx, edgeIDsToDelete); err != nil {
			return err
		}
		nodeIDsToDelete := make([]uuid.UUID, 0, len(deletedNodes))
		for id := range deletedNodes {
			nodeIDsToDelete = append(nodeIDsToDelete, id)
		}
		if err := s.nodes.FullDeleteByIDs(ctx, txx, nodeIDsToDelete); err != nil {
			return err
		}
		for _, n := range updatedNodes {
			err := s.nodes.UpdateFields(ctx, txx, n.ID, map[string]interface{}{
				"operation_type_id":            n.OperationTypeID,
				"name":                         n.Name,
				"estimated_setup_hours":        n.EstimatedSetupHours,
				"estimated_run_hours_per_unit": n.EstimatedRunHoursPerUnit,
				"instructions":                 n.Instructions,
				"updated_at":                   now,
			})
			if err != nil {
				return err
			}
		}
		if _, err := s.nodes.Create(ctx, txx, newNodes); err != nil {
			return err
		}
		if _, err := s.edges.Create(ctx, txx, newEdges); err != nil {
			return err
		}
		return s.routings.UpdateFields(ctx, txx, routingID, map[string]interface{}{"updated_at": now})
	})
}

// Clone copies a routing: nodes first, building an old-to-new ID map,
// then edges re-created through the map. A failure anywhere rolls the
// whole copy back and reports CloneFailed; the edge phase never runs on
// a partial node copy.
func (s *routingService) Clone(ctx context.Context, tx *gorm.DB, routingID uuid.UUID, name, revision string) (*types.Routing, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	var cloned *types.Routing
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		source, nodes, edges, err := s.GetGraph(ctx, txx, routingID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		copyRouting := &types.Routing{
			ID:        uuid.New(),
			CompanyID: source.CompanyID,
			PartID:    source.PartID,
			Name:      name,
			Revision:  revision,
			IsDefault: false,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if copyRouting.Name == "" {
			copyRouting.Name = source.Name + " (copy)"
		}
		if _, err := s.routings.Create(ctx, txx, []*types.Routing{copyRouting}); err != nil {
			return apierr.CloneFailed(fmt.Errorf("clone routing: %w", err))
		}

		idMap := make(map[uuid.UUID]uuid.UUID, len(nodes))
		nodeCopies := make([]*types.RoutingNode, 0, len(nodes))
		for i, n := range nodes {
			// Source nodes arrive in tie-break order; staggered stamps keep
			// the copy sorting the same way, parallel branches included.
			stamp := now.Add(time.Duration(i) * time.Microsecond)
			copyNode := &types.RoutingNode{
				ID:                       uuid.New(),
				RoutingID:                copyRouting.ID,
				OperationTypeID:          n.OperationTypeID,
				Name:                     n.Name,
				EstimatedSetupHours:      n.EstimatedSetupHours,
				EstimatedRunHoursPerUnit: n.EstimatedRunHoursPerUnit,
				Instructions:             n.Instructions,
				CreatedAt:                stamp,
				UpdatedAt:                stamp,
			}
			idMap[n.ID] = copyNode.ID
			nodeCopies = append(nodeCopies, copyNode)
		}
		if _, err := s.nodes.Create(ctx, txx, nodeCopies); err != nil {
			return apierr.CloneFailed(fmt.Errorf("clone nodes: %w", err))
		}

		edgeCopies := make([]*types.RoutingEdge, 0, len(edges))
		for _, e := range edges {
			src, okSrc := idMap[e.SourceNodeID]
			dst, okDst := idMap[e.TargetNodeID]
			if !okSrc || !okDst {
				return apierr.CloneFailed(fmt.Errorf("edge %s references a node outside the routing", e.ID))
			}
			edgeCopies = append(edgeCopies, &types.RoutingEdge{
				ID:           uuid.New(),
				RoutingID:    copyRouting.ID,
				SourceNodeID: src,
				TargetNodeID: dst,
				CreatedAt:    now,
			})
		}
		if _, err := s.edges.Create(ctx, txx, edgeCopies); err != nil {
			return apierr.CloneFailed(fmt.Errorf("clone edges: %w", err))
		}

		cloned = copyRouting
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cloned, nil
}

// MaterializeOrder returns the routing's nodes in the deterministic
// topological order used to assign operation sequences at job creation.
func (s *routingService) MaterializeOrder(ctx context.Context, tx *gorm.DB, routingID uuid.UUID) ([]*types.RoutingNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}
	nodes, err := s.nodes.GetByRoutingID(ctx, transaction, routingID)
	if err != nil {
		return nil, err
	}
	edges, err := s.edges.GetByRoutingID(ctx, transaction, routingID)
	if err != nil {
		return nil, err
	}
	g, err := buildGraph(nodes, edges)
	if err != nil {
		return nil, mapGraphErr(err)
	}
	order, err := g.Sort()
	if err != nil {
		return nil, mapGraphErr(err)
	}
	byID := make(map[uuid.UUID]*types.RoutingNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	sorted := make([]*types.RoutingNode, 0, len(order))
	for _, id := range order {
		sorted = append(sorted, byID[id])
	}
	return sorted, nil
}
