package matching

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/high-horse/sourceafis/templates"
)

// ParallelMatcher spreads candidates over a bounded set of goroutines. Scores land at
// the index of their candidate, so the result is identical to Matcher.Match.
type ParallelMatcher struct {
	matcher *Matcher
	workers int
}

// NewParallelMatcher uses at most workers goroutines per Match call. Values below one
// mean one.
func NewParallelMatcher(matcher *Matcher, workers int) *ParallelMatcher {
	return &ParallelMatcher{matcher: matcher, workers: max(workers, 1)}
}

func (pm *ParallelMatcher) Prepare(probe *templates.Template) *Probe {
	return pm.matcher.Prepare(probe)
}

func (pm *ParallelMatcher) Match(ctx context.Context, probe *Probe, candidates []*templates.Template) ([]float64, error) {
	scores := make([]float64, len(candidates))
	err := pm.MatchInto(ctx, probe, candidates, scores)
	return scores, err
}

// MatchInto writes the score of candidates[i] to scores[i]. scores must be at least as
// long as candidates. Candidates not yet started when ctx is cancelled keep their
// previous value and ctx.Err() is returned.
func (pm *ParallelMatcher) MatchInto(ctx context.Context, probe *Probe, candidates []*templates.Template, scores []float64) error {
	start := time.Now()
	var err error
	if len(candidates) <= 1 || pm.workers == 1 {
		for i, c := range candidates {
			if err = ctx.Err(); err != nil {
				break
			}
			scores[i] = pm.matcher.MatchOne(ctx, probe, c).Score
		}
	} else {
		p := pool.New().WithErrors().WithFirstError().WithMaxGoroutines(min(pm.workers, len(candidates)))
		for i, c := range candidates {
			i, c := i, c
			p.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				scores[i] = pm.matcher.MatchOne(ctx, probe, c).Score
				return nil
			})
		}
		err = p.Wait()
	}
	zerolog.Ctx(ctx).Debug().
		Int("candidates", len(candidates)).
		Int("workers", pm.workers).
		Dur("elapsed", time.Since(start)).
		Bool("cancelled", err != nil).
		Msg("matched candidates")
	return err
}
