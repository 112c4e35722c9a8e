package matching

import (
	"math"

	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/internal/geometry"
	"github.com/high-horse/sourceafis/templates"
)

// MatchAnalysis holds the statistics of one pairing that feed the score.
type MatchAnalysis struct {
	PairCount        int     `cbor:"pair_count" json:"pair_count"`
	CorrectTypeCount int     `cbor:"correct_type_count" json:"correct_type_count"`
	SupportedCount   int     `cbor:"supported_count" json:"supported_count"`
	EdgeCount        int     `cbor:"edge_count" json:"edge_count"`
	PairFraction     float64 `cbor:"pair_fraction" json:"pair_fraction"`
	DistanceErrorSum int     `cbor:"distance_error_sum" json:"distance_error_sum"`
	AngleErrorSum    float64 `cbor:"angle_error_sum" json:"angle_error_sum"`
}

// Analyze summarizes pairing. Every pair but the root contributes the length and angle
// disagreement of the edge that discovered it. Angle errors are floored at
// AngleErrorFlatness of the angular tolerance.
func Analyze(pairing *MinutiaPairing, probe, candidate *templates.Template, params config.MatchingParameters) MatchAnalysis {
	var a MatchAnalysis
	a.PairCount = pairing.Count()
	if a.PairCount == 0 || probe.Len() == 0 || candidate.Len() == 0 {
		return a
	}

	innerAngleRadius := params.AngleErrorFlatness * params.MaxAngleError()
	for i := 0; i < a.PairCount; i++ {
		info := pairing.At(i)
		if info.SupportingEdges >= params.MinSupportingEdges {
			a.SupportedCount++
		}
		a.EdgeCount += info.SupportingEdges + 1
		if probe.At(info.Pair.Probe).Type == candidate.At(info.Pair.Candidate).Type {
			a.CorrectTypeCount++
		}
		if i == 0 {
			continue
		}
		pe := NewEdgeShape(probe, info.Reference.Probe, info.Pair.Probe)
		ce := NewEdgeShape(candidate, info.Reference.Candidate, info.Pair.Candidate)
		a.DistanceErrorSum += abs(pe.Length - ce.Length)
		a.AngleErrorSum += math.Max(innerAngleRadius, geometry.Distance(pe.ReferenceAngle, ce.ReferenceAngle))
		a.AngleErrorSum += math.Max(innerAngleRadius, geometry.Distance(pe.NeighborAngle, ce.NeighborAngle))
	}

	probeFraction := float64(a.PairCount) / float64(probe.Len())
	candidateFraction := float64(a.PairCount) / float64(candidate.Len())
	a.PairFraction = (probeFraction + candidateFraction) / 2
	return a
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
