package matching

import (
	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/templates"
)

// Pairer grows minutia pairings outward from root edge pairs. It keeps no state
// between calls and is safe for concurrent use.
type Pairer struct {
	tol          tolerance
	maxRoots     int
	maxNeighbors int
}

func NewPairer(params config.MatchingParameters) *Pairer {
	return &Pairer{
		tol:          newTolerance(params),
		maxRoots:     params.MaxTriedRoots,
		maxNeighbors: params.MaxNeighbors,
	}
}

// Roots returns the root edge pairs Pair would try, in trial order.
func (p *Pairer) Roots(probeEdges, candidateEdges *EdgeTable) []Root {
	return selectRoots(probeEdges, candidateEdges, p.tol, p.maxRoots)
}

// Pair tries every root and returns the largest pairing found. The first root wins
// ties. The result is empty when either template has no minutiae or no edges agree.
func (p *Pairer) Pair(probe *templates.Template, probeEdges *EdgeTable, candidate *templates.Template) *MinutiaPairing {
	candidateEdges := BuildEdgeTable(candidate, p.maxNeighbors)
	return p.PairEdges(probe, probeEdges, candidate, candidateEdges)
}

// PairEdges is Pair with a prebuilt candidate edge table.
func (p *Pairer) PairEdges(probe *templates.Template, probeEdges *EdgeTable, candidate *templates.Template, candidateEdges *EdgeTable) *MinutiaPairing {
	best := NewMinutiaPairing(probe.Len(), candidate.Len())
	if probe.Len() == 0 || candidate.Len() == 0 {
		return best
	}
	limit := min(probe.Len(), candidate.Len())

	current := NewMinutiaPairing(probe.Len(), candidate.Len())
	queue := linkedlistqueue.New()
	var matches []neighborMatch
	for _, root := range p.Roots(probeEdges, candidateEdges) {
		current.reset()
		queue.Clear()
		matches = p.grow(current, queue, matches, root, probeEdges, candidateEdges)
		if current.Count() > best.Count() {
			best, current = current, best
			if best.Count() >= limit {
				break
			}
		}
	}
	return best
}

// grow seeds pairing with the root and expands it breadth first over agreeing edges.
func (p *Pairer) grow(pairing *MinutiaPairing, queue *linkedlistqueue.Queue, scratch []neighborMatch, root Root, probeEdges, candidateEdges *EdgeTable) []neighborMatch {
	if i, err := pairing.Add(root.Reference, root.Reference); err == nil {
		queue.Enqueue(i)
	}
	if i, err := pairing.Add(root.Neighbor, root.Reference); err == nil {
		queue.Enqueue(i)
	}

	for !queue.Empty() {
		v, _ := queue.Dequeue()
		current := pairing.At(v.(int)).Pair
		scratch = findMatchingPairs(scratch[:0],
			probeEdges.Star(current.Probe), candidateEdges.Star(current.Candidate), p.tol)
		for _, m := range scratch {
			byProbe := pairing.ByProbe(m.probe)
			byCandidate := pairing.ByCandidate(m.candidate)
			switch {
			case byProbe < 0 && byCandidate < 0:
				i, _ := pairing.Add(MinutiaPair{Probe: m.probe, Candidate: m.candidate}, current)
				queue.Enqueue(i)
			case byProbe >= 0 && byProbe == byCandidate:
				// the edge that discovered a pair does not count as support
				if pairing.At(byProbe).Reference != current {
					pairing.AddSupport(byProbe)
					pairing.AddSupport(pairing.ByProbe(current.Probe))
				}
			}
		}
	}
	return scratch
}
