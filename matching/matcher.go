package matching

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/templates"
)

// Probe is a probe template with its edge table built once for many comparisons.
type Probe struct {
	Template *templates.Template
	Edges    *EdgeTable
}

// MatchResult is the outcome of one probe-candidate comparison.
type MatchResult struct {
	Score    float64
	Analysis MatchAnalysis
	Pairing  *MinutiaPairing
}

// Matcher compares a prepared probe against candidates one after another.
type Matcher struct {
	params  config.MatchingParameters
	weights config.ScoringParameters
	pairer  *Pairer
}

func NewMatcher(params config.MatchingParameters, weights config.ScoringParameters) *Matcher {
	return &Matcher{params: params, weights: weights, pairer: NewPairer(params)}
}

// Prepare indexes the probe. A nil template is treated as empty.
func (m *Matcher) Prepare(probe *templates.Template) *Probe {
	if probe == nil {
		probe = templates.Empty
	}
	return &Probe{Template: probe, Edges: BuildEdgeTable(probe, m.params.MaxNeighbors)}
}

// Roots lists the root edge pairs tried against candidate.
func (m *Matcher) Roots(probe *Probe, candidate *templates.Template) []Root {
	return m.pairer.Roots(probe.Edges, BuildEdgeTable(candidate, m.params.MaxNeighbors))
}

// MatchOne compares the probe against a single candidate. A nil candidate scores zero.
func (m *Matcher) MatchOne(ctx context.Context, probe *Probe, candidate *templates.Template) MatchResult {
	if candidate == nil {
		candidate = templates.Empty
	}
	pairing := m.pairer.Pair(probe.Template, probe.Edges, candidate)
	analysis := Analyze(pairing, probe.Template, candidate, m.params)
	score := Score(analysis, m.params, m.weights)
	zerolog.Ctx(ctx).Trace().
		Int("pairs", analysis.PairCount).
		Int("supported", analysis.SupportedCount).
		Float64("score", score).
		Msg("compared candidate")
	return MatchResult{Score: score, Analysis: analysis, Pairing: pairing}
}

// Match scores every candidate in order. When ctx is cancelled it stops before the
// next candidate and returns ctx.Err() with the remaining scores left at zero.
func (m *Matcher) Match(ctx context.Context, probe *Probe, candidates []*templates.Template) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return scores, err
		}
		scores[i] = m.MatchOne(ctx, probe, c).Score
	}
	return scores, nil
}
