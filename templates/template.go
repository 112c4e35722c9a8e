// Package templates defines the minutia template consumed by the matcher and its
// serialized forms.
package templates

import (
	"errors"
	"fmt"
	"math"

	"github.com/high-horse/sourceafis/internal/geometry"
)

var (
	ErrInvalidTemplate    = errors.New("templates: invalid template")
	ErrBadMagic           = errors.New("templates: not a compact template")
	ErrUnsupportedVersion = errors.New("templates: unsupported template version")
	ErrTruncated          = errors.New("templates: truncated template")
)

// DefaultDpi is the resolution every template is normalized to.
const DefaultDpi = 500

type MinutiaType byte

const (
	Ending      MinutiaType = 0
	Bifurcation MinutiaType = 1
)

func (t MinutiaType) String() string {
	switch t {
	case Ending:
		return "ending"
	case Bifurcation:
		return "bifurcation"
	default:
		return fmt.Sprintf("MinutiaType(%d)", byte(t))
	}
}

func (t MinutiaType) valid() bool { return t == Ending || t == Bifurcation }

// Minutia is a ridge ending or bifurcation. Direction is in radians, [0, 2π).
type Minutia struct {
	Position  geometry.Point
	Direction float64
	Type      MinutiaType
}

// Template is an immutable, ordered set of minutiae. Minutia indices are stable and
// are used as keys by the matcher.
type Template struct {
	dpi      int
	width    int
	height   int
	minutiae []Minutia
}

// Empty is a template without minutiae. It matches nothing.
var Empty = &Template{dpi: DefaultDpi}

func (t *Template) Len() int { return len(t.minutiae) }

// At returns the i-th minutia.
func (t *Template) At(i int) Minutia { return t.minutiae[i] }

// Minutiae returns a copy of the minutia list.
func (t *Template) Minutiae() []Minutia {
	out := make([]Minutia, len(t.minutiae))
	copy(out, t.minutiae)
	return out
}

func (t *Template) Dpi() int    { return t.dpi }
func (t *Template) Width() int  { return t.width }
func (t *Template) Height() int { return t.height }

func (t *Template) ToBuilder() *Builder {
	return &Builder{
		OriginalDpi:    t.dpi,
		OriginalWidth:  t.width,
		OriginalHeight: t.height,
		Minutiae:       t.Minutiae(),
	}
}

// Builder collects extractor output before it is frozen into a Template.
// Zero width or height means the image bounds are unknown and only non-negativity
// of coordinates is checked.
type Builder struct {
	OriginalDpi    int
	OriginalWidth  int
	OriginalHeight int
	Minutiae       []Minutia
}

func (b *Builder) Add(m Minutia) *Builder {
	b.Minutiae = append(b.Minutiae, m)
	return b
}

// Build validates the collected minutiae and freezes them. Directions are
// normalized into [0, 2π).
func (b *Builder) Build() (*Template, error) {
	dpi := b.OriginalDpi
	if dpi == 0 {
		dpi = DefaultDpi
	}
	if dpi < 0 || b.OriginalWidth < 0 || b.OriginalHeight < 0 {
		return nil, fmt.Errorf("%w: negative dpi or dimensions", ErrInvalidTemplate)
	}
	minutiae := make([]Minutia, len(b.Minutiae))
	for i, m := range b.Minutiae {
		if m.Position.X < 0 || m.Position.Y < 0 {
			return nil, fmt.Errorf("%w: minutia %d at %v has a negative coordinate", ErrInvalidTemplate, i, m.Position)
		}
		if b.OriginalWidth > 0 && m.Position.X >= b.OriginalWidth {
			return nil, fmt.Errorf("%w: minutia %d at %v is outside width %d", ErrInvalidTemplate, i, m.Position, b.OriginalWidth)
		}
		if b.OriginalHeight > 0 && m.Position.Y >= b.OriginalHeight {
			return nil, fmt.Errorf("%w: minutia %d at %v is outside height %d", ErrInvalidTemplate, i, m.Position, b.OriginalHeight)
		}
		if math.IsNaN(m.Direction) || math.IsInf(m.Direction, 0) {
			return nil, fmt.Errorf("%w: minutia %d has direction %v", ErrInvalidTemplate, i, m.Direction)
		}
		if !m.Type.valid() {
			return nil, fmt.Errorf("%w: minutia %d has %v", ErrInvalidTemplate, i, m.Type)
		}
		m.Direction = geometry.Normalize(m.Direction)
		minutiae[i] = m
	}
	return &Template{
		dpi:      dpi,
		width:    b.OriginalWidth,
		height:   b.OriginalHeight,
		minutiae: minutiae,
	}, nil
}

// MustBuild is Build for literal templates in tests and examples.
func (b *Builder) MustBuild() *Template {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
