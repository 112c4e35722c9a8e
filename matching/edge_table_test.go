package matching

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/high-horse/sourceafis/internal/geometry"
	"github.com/high-horse/sourceafis/templates"
)

func TestEdgeShape(t *testing.T) {
	tpl := (&templates.Builder{}).
		Add(templates.Minutia{Position: geometry.Point{X: 0, Y: 0}, Direction: 0}).
		Add(templates.Minutia{Position: geometry.Point{X: 10, Y: 0}, Direction: math.Pi}).
		Add(templates.Minutia{Position: geometry.Point{X: 0, Y: 20}, Direction: math.Pi / 2}).
		MustBuild()

	e := NewEdgeShape(tpl, 0, 1)
	assert.Equal(t, 10, e.Length)
	assert.InDelta(t, 0, e.ReferenceAngle, 1e-9)
	assert.InDelta(t, 0, e.NeighborAngle, 1e-9)

	e = NewEdgeShape(tpl, 0, 2)
	assert.Equal(t, 20, e.Length)
	assert.InDelta(t, 3*math.Pi/2, e.ReferenceAngle, 1e-9)
	assert.InDelta(t, math.Pi, e.NeighborAngle, 1e-9)
}

func TestEdgeShapeIgnoresPlacement(t *testing.T) {
	tpl := triangle()
	moved := rotated(tpl, 0.4, 150, 40)
	for ref := 0; ref < tpl.Len(); ref++ {
		for nb := 0; nb < tpl.Len(); nb++ {
			if ref == nb {
				continue
			}
			a := NewEdgeShape(tpl, ref, nb)
			b := NewEdgeShape(moved, ref, nb)
			assert.InDelta(t, a.Length, b.Length, 1)
			assert.InDelta(t, 0, geometry.Distance(a.ReferenceAngle, b.ReferenceAngle), 0.02)
			assert.InDelta(t, 0, geometry.Distance(a.NeighborAngle, b.NeighborAngle), 0.02)
		}
	}
}

func TestBuildEdgeTable(t *testing.T) {
	table := BuildEdgeTable(triangle(), 9)
	require.Equal(t, 3, table.Len())

	star := table.Star(0)
	require.Len(t, star, 2)
	assert.Equal(t, 1, star[0].Neighbor)
	assert.Equal(t, 85, star[0].Edge.Length)
	assert.Equal(t, 2, star[1].Neighbor)
	assert.Equal(t, 124, star[1].Edge.Length)

	edges := table.Edges()
	require.Len(t, edges, 6)
	for i := 1; i < len(edges); i++ {
		assert.LessOrEqual(t, edges[i-1].Edge.Length, edges[i].Edge.Length)
	}
	assert.Equal(t, IndexedEdge{Edge: star[1].Edge, Reference: 0, Neighbor: 2}, edges[4])
}

func TestBuildEdgeTableKeepsNearestNeighbors(t *testing.T) {
	grid := jitteredGrid(5, 5, 3)
	table := BuildEdgeTable(grid, 4)
	for i := 0; i < grid.Len(); i++ {
		star := table.Star(i)
		require.Len(t, star, 4)
		for j := 1; j < len(star); j++ {
			assert.LessOrEqual(t, star[j-1].Edge.Length, star[j].Edge.Length)
		}
		assert.Less(t, star[3].Edge.Length, 150, "grid neighbors are about 60px away")
	}
	assert.Len(t, table.Edges(), 4*grid.Len())
}

func TestBuildEdgeTableDegenerate(t *testing.T) {
	assert.Equal(t, 0, BuildEdgeTable(templates.Empty, 9).Len())

	single := (&templates.Builder{}).Add(templates.Minutia{Position: geometry.Point{X: 5, Y: 5}}).MustBuild()
	table := BuildEdgeTable(single, 9)
	assert.Empty(t, table.Star(0))
	assert.Empty(t, table.Edges())
}

func TestEdgesNear(t *testing.T) {
	table := BuildEdgeTable(triangle(), 9)
	near := table.edgesNear(90, 5)
	require.Len(t, near, 2)
	for _, e := range near {
		assert.Equal(t, 85, e.Edge.Length)
	}
	assert.Len(t, table.edgesNear(110, 13), 2)
	assert.Len(t, table.edgesNear(110, 14), 4)
	assert.Empty(t, table.edgesNear(300, 13))
}

func TestFindMatchingPairs(t *testing.T) {
	tol := tolerance{maxDistance: 13, maxAngle: geometry.FromDegrees(10)}
	probe := []NeighborEdge{
		{Edge: EdgeShape{Length: 40, ReferenceAngle: 1, NeighborAngle: 2}, Neighbor: 1},
		{Edge: EdgeShape{Length: 60, ReferenceAngle: 3, NeighborAngle: 1}, Neighbor: 2},
		{Edge: EdgeShape{Length: 95, ReferenceAngle: 1, NeighborAngle: 2}, Neighbor: 3},
	}
	candidate := []NeighborEdge{
		{Edge: EdgeShape{Length: 45, ReferenceAngle: 1.05, NeighborAngle: 1.98}, Neighbor: 7},
		{Edge: EdgeShape{Length: 62, ReferenceAngle: 1, NeighborAngle: 2}, Neighbor: 8},
		{Edge: EdgeShape{Length: 90, ReferenceAngle: 1.1, NeighborAngle: 2.1}, Neighbor: 9},
	}

	got := findMatchingPairs(nil, probe, candidate, tol)
	assert.Equal(t, []neighborMatch{
		{probe: 1, candidate: 7},
		{probe: 3, candidate: 9},
	}, got)
}
