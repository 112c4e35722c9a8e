// Package matching compares minutia templates: it indexes the probe's edges, grows a
// one-to-one minutia pairing against each candidate and scores it.
package matching

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/internal/geometry"
	"github.com/high-horse/sourceafis/templates"
)

// EdgeShape describes the line from a reference minutia to a neighbor in terms that
// do not change when the whole template is shifted or rotated.
type EdgeShape struct {
	Length int `cbor:"length"`
	// ReferenceAngle is the reference minutia's direction measured from the edge.
	ReferenceAngle float64 `cbor:"reference_angle"`
	// NeighborAngle is the neighbor's direction measured from the reversed edge.
	NeighborAngle float64 `cbor:"neighbor_angle"`
}

func NewEdgeShape(t *templates.Template, reference, neighbor int) EdgeShape {
	ref := t.At(reference)
	nb := t.At(neighbor)
	v := nb.Position.Sub(ref.Position).Vec()
	quadrant := geometry.Atan(v)
	return EdgeShape{
		Length:         int(math.Round(r2.Norm(v))),
		ReferenceAngle: geometry.Difference(ref.Direction, quadrant),
		NeighborAngle:  geometry.Difference(nb.Direction, geometry.Opposite(quadrant)),
	}
}

// NeighborEdge is an edge in a reference minutia's star.
type NeighborEdge struct {
	Edge     EdgeShape `cbor:"edge"`
	Neighbor int       `cbor:"neighbor"`
}

// IndexedEdge is an edge together with both of its endpoints.
type IndexedEdge struct {
	Edge      EdgeShape `cbor:"edge"`
	Reference int       `cbor:"reference"`
	Neighbor  int       `cbor:"neighbor"`
}

// tolerance decides whether a probe edge and a candidate edge may correspond.
type tolerance struct {
	maxDistance int
	maxAngle    float64
}

func newTolerance(p config.MatchingParameters) tolerance {
	return tolerance{maxDistance: p.MaxDistanceError, maxAngle: p.MaxAngleError()}
}

func (t tolerance) angles(probe, candidate EdgeShape) bool {
	return geometry.Distance(probe.ReferenceAngle, candidate.ReferenceAngle) <= t.maxAngle &&
		geometry.Distance(probe.NeighborAngle, candidate.NeighborAngle) <= t.maxAngle
}

func (t tolerance) matches(probe, candidate EdgeShape) bool {
	delta := probe.Length - candidate.Length
	return delta >= -t.maxDistance && delta <= t.maxDistance && t.angles(probe, candidate)
}
