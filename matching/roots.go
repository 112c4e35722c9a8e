package matching

import (
	"github.com/emirpasic/gods/queues/priorityqueue"
)

// Root is a starting edge pair for growing a pairing: the two reference minutiae are
// paired first, then the two neighbors.
type Root struct {
	Reference MinutiaPair `cbor:"reference"`
	Neighbor  MinutiaPair `cbor:"neighbor"`
	Length    int         `cbor:"length"`

	order int
}

// longestFirst orders the queue so that the longest candidate edge is dequeued first.
// Equal lengths keep discovery order.
func longestFirst(a, b interface{}) int {
	x := a.(Root)
	y := b.(Root)
	if x.Length != y.Length {
		return y.Length - x.Length
	}
	return x.order - y.order
}

// selectRoots lists compatible edge pairs of the two templates, longest first, with at
// most one root per reference pair and at most limit roots overall.
func selectRoots(probeEdges, candidateEdges *EdgeTable, tol tolerance, limit int) []Root {
	queue := priorityqueue.NewWith(longestFirst)
	order := 0
	for _, ce := range candidateEdges.Edges() {
		for _, pe := range probeEdges.edgesNear(ce.Edge.Length, tol.maxDistance) {
			if !tol.matches(pe.Edge, ce.Edge) {
				continue
			}
			queue.Enqueue(Root{
				Reference: MinutiaPair{Probe: pe.Reference, Candidate: ce.Reference},
				Neighbor:  MinutiaPair{Probe: pe.Neighbor, Candidate: ce.Neighbor},
				Length:    ce.Edge.Length,
				order:     order,
			})
			order++
		}
	}

	roots := make([]Root, 0, min(limit, queue.Size()))
	seen := make(map[MinutiaPair]struct{}, cap(roots))
	for len(roots) < limit {
		v, ok := queue.Dequeue()
		if !ok {
			break
		}
		root := v.(Root)
		if _, dup := seen[root.Reference]; dup {
			continue
		}
		seen[root.Reference] = struct{}{}
		roots = append(roots, root)
	}
	return roots
}
