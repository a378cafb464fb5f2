package graph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnknownNode   = errors.New("node not in graph")
	ErrSelfEdge      = errors.New("self-referential edge not allowed")
	ErrDuplicateEdge = errors.New("edge already exists")
	ErrCycle         = errors.New("edge would create a cycle")
)

// Graph is a directed acyclic graph over node IDs, used to validate a
// routing's structure before anything touches the store. Routings are
// small (usually well under 20 nodes), so everything is an adjacency
// set keyed by node ID.
type Graph struct {
	order      []uuid.UUID
	successors map[uuid.UUID]map[uuid.UUID]bool
	preds      map[uuid.UUID]map[uuid.UUID]bool
}

func New() *Graph {
	return &Graph{
		successors: make(map[uuid.UUID]map[uuid.UUID]bool),
		preds:      make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

// AddNode registers a node. Insertion order is remembered and used as
// the tie-break for Sort, so callers add nodes in creation order.
// Adding an existing node is a no-op.
func (g *Graph) AddNode(id uuid.UUID) {
	if _, ok := g.successors[id]; ok {
		return
	}
	g.order = append(g.order, id)
	g.successors[id] = make(map[uuid.UUID]bool)
	g.preds[id] = make(map[uuid.UUID]bool)
}

func (g *Graph) HasNode(id uuid.UUID) bool {
	_, ok := g.successors[id]
	return ok
}

func (g *Graph) HasEdge(source, target uuid.UUID) bool {
	succ, ok := g.successors[source]
	return ok && succ[target]
}

// AddEdge inserts source -> target. It fails without mutating the graph
// if either endpoint is unknown, the edge already exists, or the edge
// would close a cycle (checked by walking from target back toward
// source before the insert).
func (g *Graph) AddEdge(source, target uuid.UUID) error {
	if !g.HasNode(source) {
		return fmt.Errorf("%w: %s", ErrUnknownNode, source)
	}
	if !g.HasNode(target) {
		return fmt.Errorf("%w: %s", ErrUnknownNode, target)
	}
	if source == target {
		return fmt.Errorf("%w: %s", ErrSelfEdge, source)
	}
	if g.HasEdge(source, target) {
		return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, source, target)
	}
	if g.reachable(target, source) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, source, target)
	}
	g.successors[source][target] = true
	g.preds[target][source] = true
	return nil
}

// RemoveNode drops a node and every edge touching it.
func (g *Graph) RemoveNode(id uuid.UUID) {
	if !g.HasNode(id) {
		return
	}
	for succ := range g.successors[id] {
		delete(g.preds[succ], id)
	}
	for pred := range g.preds[id] {
		delete(g.successors[pred], id)
	}
	delete(g.successors, id)
	delete(g.preds, id)
	for i, other := range g.order {
		if other == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// reachable reports whether there is a directed path from start to goal.
func (g *Graph) reachable(start, goal uuid.UUID) bool {
	if start == goal {
		return true
	}
	seen := map[uuid.UUID]bool{start: true}
	stack := []uuid.UUID{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for succ := range g.successors[n] {
			if succ == goal {
				return true
			}
			if !seen[succ] {
				seen[succ] = true
				stack = append(stack, succ)
			}
		}
	}
	return false
}

// DetectCycle runs a depth-first search with a recursion-stack set and
// returns ErrCycle naming the first node found on a cycle. Used when a
// whole edge set is loaded at once, e.g. validating a bulk graph save.
func (g *Graph) DetectCycle() error {
	permanent := make(map[uuid.UUID]bool)
	temporary := make(map[uuid.UUID]bool)

	var visit func(id uuid.UUID) error
	visit = func(id uuid.UUID) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("%w: involving node %s", ErrCycle, id)
		}
		temporary[id] = true
		for succ := range g.successors[id] {
			if err := visit(succ); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sort returns every node in topological order. Among nodes whose
// predecessors are all emitted, the one added to the graph first goes
// first, which keeps job operation sequences deterministic. Isolated
// nodes are valid and sort by insertion order alone.
func (g *Graph) Sort() ([]uuid.UUID, error) {
	indegree := make(map[uuid.UUID]int, len(g.order))
	for _, id := range g.order {
		indegree[id] = len(g.preds[id])
	}

	sorted := make([]uuid.UUID, 0, len(g.order))
	emitted := make(map[uuid.UUID]bool, len(g.order))
	for len(sorted) < len(g.order) {
		next := uuid.Nil
		found := false
		for _, id := range g.order {
			if !emitted[id] && indegree[id] == 0 {
				next = id
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: no ready node among %d remaining", ErrCycle, len(g.order)-len(sorted))
		}
		emitted[next] = true
		sorted = append(sorted, next)
		for succ := range g.successors[next] {
			indegree[succ]--
		}
	}
	return sorted, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }
