package matching

// neighborMatch is a probe neighbor and candidate neighbor reached over compatible edges.
type neighborMatch struct {
	probe     int
	candidate int
}

// findMatchingPairs walks two length-sorted stars in step and appends every neighbor
// combination whose edges agree within tolerance.
func findMatchingPairs(dst []neighborMatch, probeStar, candidateStar []NeighborEdge, tol tolerance) []neighborMatch {
	start := 0
	for _, ce := range candidateStar {
		minLength := ce.Edge.Length - tol.maxDistance
		maxLength := ce.Edge.Length + tol.maxDistance
		for start < len(probeStar) && probeStar[start].Edge.Length < minLength {
			start++
		}
		for i := start; i < len(probeStar) && probeStar[i].Edge.Length <= maxLength; i++ {
			pe := probeStar[i]
			if tol.angles(pe.Edge, ce.Edge) {
				dst = append(dst, neighborMatch{probe: pe.Neighbor, candidate: ce.Neighbor})
			}
		}
	}
	return dst
}
