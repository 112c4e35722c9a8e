package sourceafis

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/matching"
	"github.com/high-horse/sourceafis/templates"
)

const (
	MinDpi = 100
	MaxDpi = 5000
)

// Candidate is a person returned by Identify with their skip score.
type Candidate struct {
	Person *Person
	Score  float64
}

// Engine verifies and identifies persons. One lock guards its settings and is held
// for the whole of Extract, Verify and Identify, so every call sees one consistent
// set of values. Comparisons inside a call run in parallel.
type Engine struct {
	mu        sync.Mutex
	dpi       int
	threshold float64
	skip      int

	extractor Extractor
	matcher   *matching.ParallelMatcher
	workers   int
	log       zerolog.Logger
}

type engineOptions struct {
	params    *config.Parameters
	extractor Extractor
	logger    zerolog.Logger
	workers   int
}

type Option func(*engineOptions)

// WithParameters replaces the config.Config snapshot the engine starts from.
func WithParameters(p *config.Parameters) Option {
	return func(o *engineOptions) { o.params = p }
}

func WithExtractor(x Extractor) Option {
	return func(o *engineOptions) { o.extractor = x }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithWorkers bounds the goroutines comparing candidates. It overrides Workers of the
// parameters.
func WithWorkers(n int) Option {
	return func(o *engineOptions) { o.workers = n }
}

// NewEngine builds an engine from config.Config unless WithParameters says otherwise.
// Invalid parameters are rejected.
func NewEngine(opts ...Option) (*Engine, error) {
	o := engineOptions{params: config.Config, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.params == nil {
		return nil, fmt.Errorf("%w: parameters", ErrNilArgument)
	}
	p := o.params.Clone()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	workers := o.workers
	if workers <= 0 {
		workers = p.WorkerCount()
	}
	return &Engine{
		dpi:       p.Engine.Dpi,
		threshold: p.Engine.Threshold,
		skip:      p.Engine.SkipBestMatches,
		extractor: o.extractor,
		matcher:   matching.NewParallelMatcher(matching.NewMatcher(p.Matching, p.Scoring), workers),
		workers:   workers,
		log:       o.logger,
	}, nil
}

func (e *Engine) Dpi() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dpi
}

// SetDpi sets the resolution images are assumed to be scanned at. Values outside
// [100, 5000] are rejected and the previous value kept.
func (e *Engine) SetDpi(dpi int) error {
	if dpi < MinDpi || dpi > MaxDpi {
		return fmt.Errorf("%w: dpi %d not in [%d, %d]", ErrOutOfRange, dpi, MinDpi, MaxDpi)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dpi = dpi
	return nil
}

func (e *Engine) Threshold() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// SetThreshold sets the minimum score of a match. Scores below it are reported as 0.
func (e *Engine) SetThreshold(threshold float64) error {
	if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return fmt.Errorf("%w: threshold %v must be a non-negative number", ErrOutOfRange, threshold)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.threshold = threshold
	return nil
}

func (e *Engine) SkipBestMatches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.skip
}

// SetSkipBestMatches sets how many of a person's best fingerprint scores are ignored.
func (e *Engine) SetSkipBestMatches(skip int) error {
	if skip < 0 {
		return fmt.Errorf("%w: skip best matches %d is negative", ErrOutOfRange, skip)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.skip = skip
	return nil
}

// Extract creates a template for every fingerprint of person from its image. Nothing
// is stored unless all fingerprints succeed.
func (e *Engine) Extract(ctx context.Context, person *Person) error {
	if person == nil {
		return fmt.Errorf("%w: person", ErrNilArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.extractor == nil {
		return ErrNoExtractor
	}
	for i, fp := range person.Fingerprints {
		if fp == nil {
			return fmt.Errorf("%w: person %d fingerprint %d", ErrNilArgument, person.ID, i)
		}
		if fp.Image == nil {
			return fmt.Errorf("%w: person %d fingerprint %d", ErrMissingImage, person.ID, i)
		}
	}

	start := time.Now()
	extracted := make([]*templates.Template, len(person.Fingerprints))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, fp := range person.Fingerprints {
		i, fp := i, fp
		g.Go(func() error {
			t, err := e.extractor.Extract(gctx, fp.Image, e.dpi)
			if err != nil {
				return fmt.Errorf("failed to extract person %d fingerprint %d: %w", person.ID, i, err)
			}
			if t == nil {
				return fmt.Errorf("%w: extractor returned no template for person %d fingerprint %d", ErrMissingTemplate, person.ID, i)
			}
			extracted[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, fp := range person.Fingerprints {
		fp.Template = extracted[i]
	}
	e.log.Debug().
		Int("person", person.ID).
		Int("fingerprints", len(extracted)).
		Int("dpi", e.dpi).
		Dur("elapsed", time.Since(start)).
		Msg("extracted templates")
	return nil
}

// Verify returns the similarity of two persons, or 0 when it is below the threshold.
// Only compatible fingers are compared.
func (e *Engine) Verify(ctx context.Context, probe, candidate *Person) (float64, error) {
	if probe == nil || candidate == nil {
		return 0, fmt.Errorf("%w: person", ErrNilArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := probe.checkTemplates(); err != nil {
		return 0, err
	}
	if err := candidate.checkTemplates(); err != nil {
		return 0, err
	}

	start := time.Now()
	ctx = e.withLogger(ctx)
	skipper := matching.NewBestMatchSkipper(1, e.skip)
	err := e.forEachProbe(ctx, probe, func(ctx context.Context, fp *Fingerprint) error {
		var candidates []*templates.Template
		for _, cfp := range candidate.Fingerprints {
			if IsCompatibleFinger(fp.Finger, cfp.Finger) {
				candidates = append(candidates, cfp.Template)
			}
		}
		scores, err := e.matcher.Match(ctx, e.matcher.Prepare(fp.Template), candidates)
		if err != nil {
			return err
		}
		for _, score := range scores {
			skipper.AddScore(0, score)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	score := e.applyThreshold(skipper.GetSkipScore(0))
	e.log.Debug().
		Int("probe", probe.ID).
		Int("candidate", candidate.ID).
		Float64("score", score).
		Dur("elapsed", time.Since(start)).
		Msg("verified")
	return score, nil
}

// Identify returns every candidate whose skip score reaches the threshold, best first.
// Equal scores keep the order of candidates. A candidate without any finger compatible
// with the probe scores 0, so a zero threshold returns every candidate.
func (e *Engine) Identify(ctx context.Context, probe *Person, candidates []*Person) ([]Candidate, error) {
	if probe == nil {
		return nil, fmt.Errorf("%w: person", ErrNilArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := probe.checkTemplates(); err != nil {
		return nil, err
	}
	for i, c := range candidates {
		if c == nil {
			return nil, fmt.Errorf("%w: candidate %d", ErrNilArgument, i)
		}
		if err := c.checkTemplates(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	ctx = e.withLogger(ctx)
	skipper := matching.NewBestMatchSkipper(len(candidates), e.skip)
	err := e.forEachProbe(ctx, probe, func(ctx context.Context, fp *Fingerprint) error {
		flat, owners := flatten(candidates, fp.Finger)
		scores, err := e.matcher.Match(ctx, e.matcher.Prepare(fp.Template), flat)
		if err != nil {
			return err
		}
		for i, score := range scores {
			skipper.AddScore(owners[i], score)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var matches []Candidate
	for _, s := range skipper.GetSortedScores() {
		if s.Score < e.threshold {
			break
		}
		matches = append(matches, Candidate{Person: candidates[s.Person], Score: s.Score})
	}
	e.log.Debug().
		Int("probe", probe.ID).
		Int("candidates", len(candidates)).
		Int("matches", len(matches)).
		Dur("elapsed", time.Since(start)).
		Msg("identified")
	return matches, nil
}

// forEachProbe runs fn for every probe fingerprint concurrently and reports the first
// failure or cancellation of ctx.
func (e *Engine) forEachProbe(ctx context.Context, probe *Person, fn func(context.Context, *Fingerprint) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fp := range probe.Fingerprints {
		fp := fp
		g.Go(func() error {
			return fn(gctx, fp)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// flatten lists the templates of every fingerprint compatible with finger together
// with the index of the person owning each.
func flatten(persons []*Person, finger Finger) ([]*templates.Template, []int) {
	var flat []*templates.Template
	var owners []int
	for i, p := range persons {
		for _, fp := range p.Fingerprints {
			if IsCompatibleFinger(finger, fp.Finger) {
				flat = append(flat, fp.Template)
				owners = append(owners, i)
			}
		}
	}
	return flat, owners
}

// withLogger hands the engine logger to the matchers unless the caller supplied one.
func (e *Engine) withLogger(ctx context.Context) context.Context {
	if zerolog.Ctx(ctx).GetLevel() != zerolog.Disabled {
		return ctx
	}
	return e.log.WithContext(ctx)
}

func (e *Engine) applyThreshold(score float64) float64 {
	if score >= e.threshold {
		return score
	}
	return 0
}
