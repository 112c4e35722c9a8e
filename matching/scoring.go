package matching

import (
	"math"

	"github.com/high-horse/sourceafis/config"
)

// Score weighs an analysis into a similarity score. It is zero without pairs and never
// negative. The accuracy terms need at least two pairs.
func Score(a MatchAnalysis, params config.MatchingParameters, weights config.ScoringParameters) float64 {
	if a.PairCount == 0 {
		return 0
	}
	score := weights.PairCountFactor*float64(a.PairCount) +
		weights.CorrectTypeFactor*float64(a.CorrectTypeCount) +
		weights.SupportedCountFactor*float64(a.SupportedCount) +
		weights.PairFractionFactor*a.PairFraction +
		weights.EdgeCountFactor*float64(a.EdgeCount)

	if a.PairCount >= 2 {
		maxDistanceError := float64(params.MaxDistanceError * (a.PairCount - 1))
		score += weights.DistanceAccuracyFactor * (maxDistanceError - float64(a.DistanceErrorSum)) / maxDistanceError
		maxAngleError := params.MaxAngleError() * float64(a.PairCount-1) * 2
		score += weights.AngleAccuracyFactor * (maxAngleError - a.AngleErrorSum) / maxAngleError
	}
	return math.Max(score, 0)
}
