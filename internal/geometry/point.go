// Package geometry holds the integer point and circular angle arithmetic shared by
// templates and the matcher.
package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a pixel position in the normalized 500 dpi template space.
type Point struct {
	X int
	Y int
}

func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }

// Vec converts the point to a gonum vector for length and angle computation.
func (p Point) Vec() r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}

func (p Point) String() string {
	return fmt.Sprintf("[%d,%d]", p.X, p.Y)
}
