package matching

import (
	"cmp"

	"golang.org/x/exp/slices"

	"github.com/high-horse/sourceafis/templates"
)

// EdgeTable holds, for every minutia of one template, the edges to its nearest
// neighbors sorted by length. It is read-only once built and may be shared by
// concurrent comparisons.
type EdgeTable struct {
	stars [][]NeighborEdge
	// edges lists every star edge ascending by length, for root lookup.
	edges []IndexedEdge
}

// BuildEdgeTable keeps the maxNeighbors shortest edges of every minutia.
func BuildEdgeTable(t *templates.Template, maxNeighbors int) *EdgeTable {
	n := t.Len()
	table := &EdgeTable{stars: make([][]NeighborEdge, n)}
	if maxNeighbors < 1 {
		maxNeighbors = 1
	}

	star := make([]NeighborEdge, 0, n)
	for reference := 0; reference < n; reference++ {
		star = star[:0]
		for neighbor := 0; neighbor < n; neighbor++ {
			if neighbor == reference {
				continue
			}
			star = append(star, NeighborEdge{
				Edge:     NewEdgeShape(t, reference, neighbor),
				Neighbor: neighbor,
			})
		}
		slices.SortFunc(star, compareNeighborEdges)
		kept := min(len(star), maxNeighbors)
		table.stars[reference] = slices.Clone(star[:kept])
		for _, e := range table.stars[reference] {
			table.edges = append(table.edges, IndexedEdge{Edge: e.Edge, Reference: reference, Neighbor: e.Neighbor})
		}
	}
	slices.SortFunc(table.edges, func(a, b IndexedEdge) int {
		if c := cmp.Compare(a.Edge.Length, b.Edge.Length); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Reference, b.Reference); c != 0 {
			return c
		}
		return cmp.Compare(a.Neighbor, b.Neighbor)
	})
	return table
}

func compareNeighborEdges(a, b NeighborEdge) int {
	if c := cmp.Compare(a.Edge.Length, b.Edge.Length); c != 0 {
		return c
	}
	return cmp.Compare(a.Neighbor, b.Neighbor)
}

// Len is the number of minutiae indexed.
func (t *EdgeTable) Len() int { return len(t.stars) }

// Star returns the neighbor edges of one minutia, shortest first.
func (t *EdgeTable) Star(reference int) []NeighborEdge { return t.stars[reference] }

// Edges returns all indexed edges, shortest first.
func (t *EdgeTable) Edges() []IndexedEdge { return t.edges }

// edgesNear returns the edges whose length is within tolerance of length.
func (t *EdgeTable) edgesNear(length, maxDistance int) []IndexedEdge {
	begin, _ := slices.BinarySearchFunc(t.edges, length-maxDistance, func(e IndexedEdge, l int) int {
		return cmp.Compare(e.Edge.Length, l)
	})
	end, _ := slices.BinarySearchFunc(t.edges, length+maxDistance+1, func(e IndexedEdge, l int) int {
		return cmp.Compare(e.Edge.Length, l)
	})
	return t.edges[begin:end]
}
