package sourceafis

import (
	"fmt"
	"image"

	"github.com/high-horse/sourceafis/templates"
)

// Finger identifies which finger a fingerprint was taken from.
type Finger int

const (
	Any Finger = iota
	RightThumb
	RightIndex
	RightMiddle
	RightRing
	RightLittle
	LeftThumb
	LeftIndex
	LeftMiddle
	LeftRing
	LeftLittle
)

var fingerNames = [...]string{
	Any:         "any",
	RightThumb:  "right-thumb",
	RightIndex:  "right-index",
	RightMiddle: "right-middle",
	RightRing:   "right-ring",
	RightLittle: "right-little",
	LeftThumb:   "left-thumb",
	LeftIndex:   "left-index",
	LeftMiddle:  "left-middle",
	LeftRing:    "left-ring",
	LeftLittle:  "left-little",
}

func (f Finger) String() string {
	if f < 0 || int(f) >= len(fingerNames) {
		return fmt.Sprintf("Finger(%d)", int(f))
	}
	return fingerNames[f]
}

// ParseFinger accepts the names printed by String. The empty string means Any.
func ParseFinger(name string) (Finger, error) {
	if name == "" {
		return Any, nil
	}
	for i, n := range fingerNames {
		if n == name {
			return Finger(i), nil
		}
	}
	return Any, fmt.Errorf("%w: unknown finger %q", ErrOutOfRange, name)
}

// IsCompatibleFinger reports whether fingerprints of the two fingers may be compared.
// Any is compatible with every finger.
func IsCompatibleFinger(a, b Finger) bool {
	return a == b || a == Any || b == Any
}

// Fingerprint is one finger of a person. Extract fills Template from Image.
type Fingerprint struct {
	Finger   Finger
	Image    *image.Gray
	Template *templates.Template
}

// Clone copies the fingerprint. The image and the immutable template are shared.
func (fp *Fingerprint) Clone() *Fingerprint {
	c := *fp
	return &c
}

// Person groups the fingerprints of one individual.
type Person struct {
	ID           int
	Fingerprints []*Fingerprint
}

func NewPerson(id int, fingerprints ...*Fingerprint) (*Person, error) {
	p := &Person{ID: id}
	for _, fp := range fingerprints {
		if err := p.Add(fp); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Person) Add(fp *Fingerprint) error {
	if fp == nil {
		return fmt.Errorf("%w: fingerprint", ErrNilArgument)
	}
	p.Fingerprints = append(p.Fingerprints, fp)
	return nil
}

func (p *Person) Len() int { return len(p.Fingerprints) }

func (p *Person) Clone() *Person {
	c := &Person{ID: p.ID, Fingerprints: make([]*Fingerprint, len(p.Fingerprints))}
	for i, fp := range p.Fingerprints {
		c.Fingerprints[i] = fp.Clone()
	}
	return c
}

// checkTemplates fails on the first fingerprint without a template.
func (p *Person) checkTemplates() error {
	for i, fp := range p.Fingerprints {
		if fp == nil {
			return fmt.Errorf("%w: person %d fingerprint %d", ErrNilArgument, p.ID, i)
		}
		if fp.Template == nil {
			return fmt.Errorf("%w: person %d fingerprint %d", ErrMissingTemplate, p.ID, i)
		}
	}
	return nil
}
