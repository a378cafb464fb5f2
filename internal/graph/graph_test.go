package graph

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
)

func newNodes(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestAddEdgeRejectsUnknownAndSelf(t *testing.T) {
	g := New()
	ids := newNodes(2)
	g.AddNode(ids[0])

	if err := g.AddEdge(ids[0], ids[1]); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if err := g.AddEdge(ids[0], ids[0]); !errors.Is(err, ErrSelfEdge) {
		t.Fatalf("expected ErrSelfEdge, got %v", err)
	}
}

func TestAddEdgeRejectsDuplicate(t *testing.T) {
	g := New()
	ids := newNodes(2)
	g.AddNode(ids[0])
	g.AddNode(ids[1])

	if err := g.AddEdge(ids[0], ids[1]); err != nil {
		t.Fatalf("first edge: %v", err)
	}
	if err := g.AddEdge(ids[0], ids[1]); !errors.Is(err, ErrDuplicateEdge) {
		t.Fatalf("expected ErrDuplicateEdge, got %v", err)
	}
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	g := New()
	ids := newNodes(3)
	for _, id := range ids {
		g.AddNode(id)
	}
	if err := g.AddEdge(ids[0], ids[1]); err != nil {
		t.Fatalf("a->b: %v", err)
	}
	if err := g.AddEdge(ids[1], ids[2]); err != nil {
		t.Fatalf("b->c: %v", err)
	}
	if err := g.AddEdge(ids[2], ids[0]); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle for c->a, got %v", err)
	}
	// Rejected edge must not have been committed.
	if g.HasEdge(ids[2], ids[0]) {
		t.Fatal("rejected edge is present in the graph")
	}
	if err := g.DetectCycle(); err != nil {
		t.Fatalf("graph should still be acyclic: %v", err)
	}
}

// Random insertions: after every AddEdge call, accepted or rejected,
// the graph must remain acyclic.
func TestAddEdgeNeverCommitsBackEdge(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := New()
	ids := newNodes(12)
	for _, id := range ids {
		g.AddNode(id)
	}
	for i := 0; i < 400; i++ {
		src := ids[rng.Intn(len(ids))]
		dst := ids[rng.Intn(len(ids))]
		_ = g.AddEdge(src, dst)
		if err := g.DetectCycle(); err != nil {
			t.Fatalf("cycle committed after insertion %d (%s -> %s): %v", i, src, dst, err)
		}
	}
	if _, err := g.Sort(); err != nil {
		t.Fatalf("sort after random insertions: %v", err)
	}
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	g := New()
	ids := newNodes(3)
	for _, id := range ids {
		g.AddNode(id)
	}
	if err := g.AddEdge(ids[0], ids[1]); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(ids[1], ids[2]); err != nil {
		t.Fatal(err)
	}

	g.RemoveNode(ids[1])

	if g.HasNode(ids[1]) {
		t.Fatal("node still present after removal")
	}
	if g.HasEdge(ids[0], ids[1]) || g.HasEdge(ids[1], ids[2]) {
		t.Fatal("edges touching the removed node survived")
	}
	// a->c was never an edge; removal must not invent paths.
	if g.HasEdge(ids[0], ids[2]) {
		t.Fatal("unexpected edge after node removal")
	}
}

func TestSortRespectsEdgesAndCreationOrder(t *testing.T) {
	g := New()
	// Diamond: a -> b, a -> c, b -> d, c -> d. b added before c.
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{a, b, c, d} {
		g.AddNode(id)
	}
	for _, e := range [][2]uuid.UUID{{a, b}, {a, c}, {b, d}, {c, d}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}

	sorted, err := g.Sort()
	if err != nil {
		t.Fatal(err)
	}
	want := []uuid.UUID{a, b, c, d}
	for i, id := range want {
		if sorted[i] != id {
			t.Fatalf("position %d: got %s, want %s (full order %v)", i, sorted[i], id, sorted)
		}
	}
}

func TestSortIsolatedNodes(t *testing.T) {
	g := New()
	ids := newNodes(3)
	for _, id := range ids {
		g.AddNode(id)
	}
	sorted, err := g.Sort()
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range ids {
		if sorted[i] != id {
			t.Fatalf("isolated nodes must sort in creation order, got %v", sorted)
		}
	}
}

func TestSortEmptyGraph(t *testing.T) {
	g := New()
	sorted, err := g.Sort()
	if err != nil {
		t.Fatal(err)
	}
	if len(sorted) != 0 {
		t.Fatalf("expected empty order, got %v", sorted)
	}
}
