package matching

import (
	"math"
	"math/rand"

	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/internal/geometry"
	"github.com/high-horse/sourceafis/templates"
)

func defaultParams() (config.MatchingParameters, config.ScoringParameters) {
	p := config.Default()
	return p.Matching, p.Scoring
}

// triangle has three minutiae with edges of length 85, 103 and 124.
func triangle() *templates.Template {
	return (&templates.Builder{}).
		Add(templates.Minutia{Position: geometry.Point{X: 100, Y: 100}, Direction: 0, Type: templates.Ending}).
		Add(templates.Minutia{Position: geometry.Point{X: 180, Y: 130}, Direction: 1.2, Type: templates.Bifurcation}).
		Add(templates.Minutia{Position: geometry.Point{X: 130, Y: 220}, Direction: 2.5, Type: templates.Ending}).
		MustBuild()
}

// jitteredGrid spaces minutiae about 60px apart with random offsets and directions.
func jitteredGrid(rows, cols int, seed int64) *templates.Template {
	rng := rand.New(rand.NewSource(seed))
	b := &templates.Builder{}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			b.Add(templates.Minutia{
				Position: geometry.Point{
					X: 200 + c*60 + rng.Intn(21) - 10,
					Y: 200 + r*60 + rng.Intn(21) - 10,
				},
				Direction: rng.Float64() * geometry.Pi2,
				Type:      templates.MinutiaType(rng.Intn(2)),
			})
		}
	}
	return b.MustBuild()
}

// rotated turns t by angle around the origin and shifts it by (dx, dy).
func rotated(t *templates.Template, angle float64, dx, dy int) *templates.Template {
	sin, cos := math.Sincos(angle)
	b := &templates.Builder{}
	for _, m := range t.Minutiae() {
		x, y := float64(m.Position.X), float64(m.Position.Y)
		b.Add(templates.Minutia{
			Position: geometry.Point{
				X: int(math.Round(x*cos-y*sin)) + dx,
				Y: int(math.Round(x*sin+y*cos)) + dy,
			},
			Direction: geometry.Add(m.Direction, angle),
			Type:      m.Type,
		})
	}
	return b.MustBuild()
}

// clustered packs minutiae within a few dozen pixels; spread keeps them hundreds of
// pixels apart. No edge of one is within tolerance of an edge of the other.
func clustered() *templates.Template {
	return (&templates.Builder{}).
		Add(templates.Minutia{Position: geometry.Point{X: 100, Y: 100}, Direction: 0.3}).
		Add(templates.Minutia{Position: geometry.Point{X: 130, Y: 110}, Direction: 1.7}).
		Add(templates.Minutia{Position: geometry.Point{X: 110, Y: 140}, Direction: 4.1}).
		MustBuild()
}

func spread() *templates.Template {
	return (&templates.Builder{}).
		Add(templates.Minutia{Position: geometry.Point{X: 100, Y: 100}, Direction: 0.3}).
		Add(templates.Minutia{Position: geometry.Point{X: 500, Y: 120}, Direction: 1.7}).
		Add(templates.Minutia{Position: geometry.Point{X: 260, Y: 520}, Direction: 4.1}).
		MustBuild()
}
