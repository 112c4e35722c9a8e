// Package config holds every tunable of the engine. Values come from struct tag
// defaults, optionally overlaid by a TOML file.
package config

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mcuadros/go-defaults"

	"github.com/high-horse/sourceafis/internal/geometry"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the process-wide parameter set used by constructors that are not given
// one explicitly. Replace it with LoadDefaultConfig or LoadConfig before building
// engines; engines copy it once and never observe later changes.
var Config = Default()

type Parameters struct {
	// Workers bounds the goroutines matching candidates in parallel. Zero means one
	// per CPU.
	Workers  int                `toml:"workers"`
	Engine   EngineParameters   `toml:"engine"`
	Matching MatchingParameters `toml:"matching"`
	Scoring  ScoringParameters  `toml:"scoring"`
	Server   ServerParameters   `toml:"server"`
}

// EngineParameters are the initial values of the engine's runtime settings.
type EngineParameters struct {
	Dpi             int     `toml:"dpi" default:"500"`
	Threshold       float64 `toml:"threshold" default:"12"`
	SkipBestMatches int     `toml:"skip_best_matches"`
}

// MatchingParameters are the geometric tolerances of the minutia matcher. They apply
// identically to probe and candidate lookups.
type MatchingParameters struct {
	MaxDistanceError     int     `toml:"max_distance_error" default:"13"`
	MaxAngleErrorDegrees float64 `toml:"max_angle_error_degrees" default:"10"`
	MaxNeighbors         int     `toml:"max_neighbors" default:"9"`
	MaxTriedRoots        int     `toml:"max_tried_roots" default:"70"`
	MinSupportingEdges   int     `toml:"min_supporting_edges" default:"1"`
	// AngleErrorFlatness is the fraction of the angular tolerance below which angle
	// errors no longer improve the score.
	AngleErrorFlatness float64 `toml:"angle_error_flatness" default:"0.27"`
}

// MaxAngleError is the angular tolerance in radians.
func (m MatchingParameters) MaxAngleError() float64 {
	return geometry.FromDegrees(m.MaxAngleErrorDegrees)
}

// ScoringParameters weigh the match statistics into one score.
type ScoringParameters struct {
	PairCountFactor        float64 `toml:"pair_count_factor" default:"0.032"`
	PairFractionFactor     float64 `toml:"pair_fraction_factor" default:"8.98"`
	CorrectTypeFactor      float64 `toml:"correct_type_factor" default:"0.629"`
	SupportedCountFactor   float64 `toml:"supported_count_factor" default:"0.193"`
	EdgeCountFactor        float64 `toml:"edge_count_factor" default:"0.265"`
	DistanceAccuracyFactor float64 `toml:"distance_accuracy_factor" default:"9.9"`
	AngleAccuracyFactor    float64 `toml:"angle_accuracy_factor" default:"2.79"`
}

type ServerParameters struct {
	Addr      string        `toml:"addr" default:":9090"`
	LogFile   string        `toml:"log_file"`
	LogMaxAge time.Duration `toml:"log_max_age" default:"168h"`
	LogLevel  string        `toml:"log_level" default:"info"`
	BodyLimit int           `toml:"body_limit" default:"4194304"`
}

// Default returns a fresh parameter set filled from the struct tags.
func Default() *Parameters {
	p := new(Parameters)
	defaults.SetDefaults(p)
	return p
}

// LoadDefaultConfig resets Config to the defaults.
func LoadDefaultConfig() {
	Config = Default()
}

// LoadConfig reads a TOML file over the defaults, validates it and installs it as
// Config. Keys the file sets to zero stay zero.
func LoadConfig(path string) (*Parameters, error) {
	p := Default()
	md, err := toml.DecodeFile(path, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	Config = p
	return p, nil
}

// WorkerCount resolves Workers to a positive goroutine count.
func (p *Parameters) WorkerCount() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// Clone returns an independent copy.
func (p *Parameters) Clone() *Parameters {
	c := *p
	return &c
}

func (p *Parameters) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(p.Workers >= 0, "workers must not be negative, got %d", p.Workers)

	e := p.Engine
	check(e.Dpi >= 100 && e.Dpi <= 5000, "engine.dpi must be in [100, 5000], got %d", e.Dpi)
	check(e.Threshold >= 0 && !math.IsInf(e.Threshold, 0), "engine.threshold must be a non-negative number, got %v", e.Threshold)
	check(e.SkipBestMatches >= 0, "engine.skip_best_matches must not be negative, got %d", e.SkipBestMatches)

	m := p.Matching
	check(m.MaxDistanceError >= 1 && m.MaxDistanceError <= 50, "matching.max_distance_error must be in [1, 50], got %d", m.MaxDistanceError)
	check(m.MaxAngleErrorDegrees > 0 && m.MaxAngleErrorDegrees <= 90, "matching.max_angle_error_degrees must be in (0, 90], got %v", m.MaxAngleErrorDegrees)
	check(m.MaxNeighbors >= 1, "matching.max_neighbors must be positive, got %d", m.MaxNeighbors)
	check(m.MaxTriedRoots >= 1, "matching.max_tried_roots must be positive, got %d", m.MaxTriedRoots)
	check(m.MinSupportingEdges >= 0, "matching.min_supporting_edges must not be negative, got %d", m.MinSupportingEdges)
	check(m.AngleErrorFlatness >= 0 && m.AngleErrorFlatness <= 1, "matching.angle_error_flatness must be in [0, 1], got %v", m.AngleErrorFlatness)

	s := p.Scoring
	for name, v := range map[string]float64{
		"pair_count_factor":        s.PairCountFactor,
		"pair_fraction_factor":     s.PairFractionFactor,
		"correct_type_factor":      s.CorrectTypeFactor,
		"supported_count_factor":   s.SupportedCountFactor,
		"edge_count_factor":        s.EdgeCountFactor,
		"distance_accuracy_factor": s.DistanceAccuracyFactor,
		"angle_accuracy_factor":    s.AngleAccuracyFactor,
	} {
		check(v >= 0, "scoring.%s must not be negative, got %v", name, v)
	}

	check(p.Server.BodyLimit > 0, "server.body_limit must be positive, got %d", p.Server.BodyLimit)

	return errors.Join(errs...)
}
