package templates

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/high-horse/sourceafis/internal/geometry"
)

// CborVersion tags templates written by this package.
const CborVersion = "sourceafis-go/1"

// persistentTemplate is the CBOR layout: parallel arrays instead of one record per
// minutia, with types spelled as a string of 'E' (ending) and 'B' (bifurcation).
type persistentTemplate struct {
	Version    string    `cbor:"version"`
	Dpi        int       `cbor:"dpi"`
	Width      int       `cbor:"width"`
	Height     int       `cbor:"height"`
	PositionsX []int     `cbor:"positions_x"`
	PositionsY []int     `cbor:"positions_y"`
	Directions []float64 `cbor:"directions"`
	Types      string    `cbor:"types"`
}

var cborEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// MarshalCBOR implements cbor.Marshaler.
func (t *Template) MarshalCBOR() ([]byte, error) {
	p := persistentTemplate{
		Version:    CborVersion,
		Dpi:        t.dpi,
		Width:      t.width,
		Height:     t.height,
		PositionsX: make([]int, t.Len()),
		PositionsY: make([]int, t.Len()),
		Directions: make([]float64, t.Len()),
	}
	types := make([]byte, t.Len())
	for i, m := range t.minutiae {
		p.PositionsX[i] = m.Position.X
		p.PositionsY[i] = m.Position.Y
		p.Directions[i] = m.Direction
		if m.Type == Bifurcation {
			types[i] = 'B'
		} else {
			types[i] = 'E'
		}
	}
	p.Types = string(types)
	return cborEncMode.Marshal(p)
}

// UnmarshalCBOR implements cbor.Unmarshaler. The decoded template is validated the
// same way Builder.Build validates extractor output.
func (t *Template) UnmarshalCBOR(data []byte) error {
	var p persistentTemplate
	if err := cbor.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	n := len(p.PositionsX)
	if len(p.PositionsY) != n || len(p.Directions) != n || len(p.Types) != n {
		return fmt.Errorf("%w: inconsistent minutia arrays", ErrInvalidTemplate)
	}
	b := &Builder{
		OriginalDpi:    p.Dpi,
		OriginalWidth:  p.Width,
		OriginalHeight: p.Height,
		Minutiae:       make([]Minutia, n),
	}
	for i := 0; i < n; i++ {
		var kind MinutiaType
		switch p.Types[i] {
		case 'E':
			kind = Ending
		case 'B':
			kind = Bifurcation
		default:
			return fmt.Errorf("%w: unknown minutia type %q", ErrInvalidTemplate, p.Types[i])
		}
		b.Minutiae[i] = Minutia{
			Position:  geometry.Point{X: p.PositionsX[i], Y: p.PositionsY[i]},
			Direction: p.Directions[i],
			Type:      kind,
		}
	}
	built, err := b.Build()
	if err != nil {
		return err
	}
	*t = *built
	return nil
}

// ParseCBOR decodes a template written by MarshalCBOR.
func ParseCBOR(data []byte) (*Template, error) {
	t := &Template{}
	if err := t.UnmarshalCBOR(data); err != nil {
		return nil, err
	}
	return t, nil
}

// Parse decodes either serialized form, telling them apart by the compact magic.
func Parse(data []byte) (*Template, error) {
	if IsCompact(data) {
		return ImportCompact(data)
	}
	return ParseCBOR(data)
}
