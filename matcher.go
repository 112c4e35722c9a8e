package sourceafis

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/matching"
	"github.com/high-horse/sourceafis/templates"
)

// Transparency keys.
const (
	KeyEdgeTable = "edge-table"
	KeyRoots     = "roots"
	KeyPairing   = "pairing"
	KeyScore     = "score"
)

// Matcher compares one probe template against any number of candidates. It uses the
// parameters in config.Config at construction time.
type Matcher struct {
	logger  *TransparencyLogger
	matcher *matching.Matcher
	probe   *matching.Probe
}

type scoreRecord struct {
	Analysis matching.MatchAnalysis `cbor:"analysis"`
	Score    float64                `cbor:"score"`
}

// NewMatcher indexes probe. logger may be nil. Invalid parameters in config.Config
// are rejected.
func NewMatcher(logger *TransparencyLogger, probe *templates.Template) (*Matcher, error) {
	if probe == nil {
		return nil, ErrNilArgument
	}
	p := config.Config.Clone()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{
		logger:  logger,
		matcher: matching.NewMatcher(p.Matching, p.Scoring),
	}
	m.probe = m.matcher.Prepare(probe)
	if err := logger.Log(KeyEdgeTable, m.probe.Edges.Edges()); err != nil {
		return nil, err
	}
	return m, nil
}

// Match returns the similarity score of candidate. Transparency failures are logged
// and do not affect the score.
func (m *Matcher) Match(ctx context.Context, candidate *templates.Template) float64 {
	result, err := m.MatchDetailed(ctx, candidate)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("transparency logging failed")
	}
	return result.Score
}

// MatchDetailed returns the score together with the pairing and its statistics.
func (m *Matcher) MatchDetailed(ctx context.Context, candidate *templates.Template) (matching.MatchResult, error) {
	if candidate == nil {
		candidate = templates.Empty
	}
	var err error
	if m.logger.Accepts(KeyRoots) {
		err = m.logger.Log(KeyRoots, m.matcher.Roots(m.probe, candidate))
	}
	result := m.matcher.MatchOne(ctx, m.probe, candidate)
	if err == nil {
		err = m.logger.Log(KeyPairing, result.Pairing.Pairs())
	}
	if err == nil {
		err = m.logger.Log(KeyScore, scoreRecord{Analysis: result.Analysis, Score: result.Score})
	}
	return result, err
}
