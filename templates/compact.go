package templates

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/high-horse/sourceafis/internal/geometry"
)

// Compact template format, all numbers big-endian:
//
//	4B magic
//	1B version (current = 2)
//	2B total length including magic
//	2B original DPI (since version 2)
//	2B original width (since version 2)
//	2B original height (since version 2)
//	2B minutia count
//	N*6B minutia records: 2B X, 2B Y, 1B direction, 1B type
var compactMagic = [4]byte{0x50, 0xBC, 0xAF, 0x15}

const (
	compactVersion     = 2
	compactHeaderV1    = 7
	compactMinutiaSize = 6
)

// IsCompact reports whether data starts with the compact format magic.
func IsCompact(data []byte) bool {
	return len(data) >= len(compactMagic) && bytes.Equal(data[:len(compactMagic)], compactMagic[:])
}

// ExportCompact encodes t in the compact format. Directions are quantized to 256 steps.
func ExportCompact(t *Template) ([]byte, error) {
	size := compactHeaderV1 + 8 + compactMinutiaSize*t.Len()
	if size > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d minutiae do not fit the compact format", ErrInvalidTemplate, t.Len())
	}
	for _, v := range []int{t.dpi, t.width, t.height} {
		if v > math.MaxUint16 {
			return nil, fmt.Errorf("%w: header value %d exceeds 16 bits", ErrInvalidTemplate, v)
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.Write(compactMagic[:])
	buf.WriteByte(compactVersion)
	// length is patched once everything is written
	binary.Write(buf, binary.BigEndian, uint16(0))
	binary.Write(buf, binary.BigEndian, uint16(t.dpi))
	binary.Write(buf, binary.BigEndian, uint16(t.width))
	binary.Write(buf, binary.BigEndian, uint16(t.height))
	binary.Write(buf, binary.BigEndian, uint16(t.Len()))
	for i, m := range t.minutiae {
		if m.Position.X > math.MaxUint16 || m.Position.Y > math.MaxUint16 {
			return nil, fmt.Errorf("%w: minutia %d at %v exceeds 16 bits", ErrInvalidTemplate, i, m.Position)
		}
		binary.Write(buf, binary.BigEndian, uint16(m.Position.X))
		binary.Write(buf, binary.BigEndian, uint16(m.Position.Y))
		buf.WriteByte(geometry.ToByte(m.Direction))
		buf.WriteByte(byte(m.Type))
	}

	out := buf.Bytes()
	binary.BigEndian.PutUint16(out[5:], uint16(len(out)))
	return out, nil
}

// ImportCompact decodes a compact template of version 1 or 2.
func ImportCompact(data []byte) (*Template, error) {
	if !IsCompact(data) {
		return nil, ErrBadMagic
	}
	r := bytes.NewReader(data[len(compactMagic):])

	var version uint8
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if version < 1 || version > compactVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var header struct {
		Length uint16
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	switch length := int(header.Length); {
	case length > len(data):
		return nil, fmt.Errorf("%w: header declares %d bytes, got %d", ErrTruncated, length, len(data))
	case length < len(data):
		return nil, fmt.Errorf("%w: header declares %d bytes, got %d", ErrInvalidTemplate, length, len(data))
	}

	b := &Builder{}
	if version >= 2 {
		var dims struct {
			Dpi, Width, Height uint16
		}
		if err := binary.Read(r, binary.BigEndian, &dims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		b.OriginalDpi = int(dims.Dpi)
		b.OriginalWidth = int(dims.Width)
		b.OriginalHeight = int(dims.Height)
	}

	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	b.Minutiae = make([]Minutia, 0, count)
	for i := 0; i < int(count); i++ {
		var rec struct {
			X, Y      uint16
			Direction uint8
			Type      uint8
		}
		if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: minutia %d: %v", ErrTruncated, i, err)
		}
		b.Minutiae = append(b.Minutiae, Minutia{
			Position:  geometry.Point{X: int(rec.X), Y: int(rec.Y)},
			Direction: geometry.FromByte(rec.Direction),
			Type:      MinutiaType(rec.Type),
		})
	}
	return b.Build()
}

// DeserializeCompact reads exactly one compact template from r, using the length
// field of its header.
func DeserializeCompact(r io.Reader) ([]byte, error) {
	header := make([]byte, compactHeaderV1)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if !IsCompact(header) {
		return nil, ErrBadMagic
	}
	length := int(binary.BigEndian.Uint16(header[5:]))
	if length < compactHeaderV1 {
		return nil, fmt.Errorf("%w: declared length %d", ErrTruncated, length)
	}
	data := make([]byte, length)
	copy(data, header)
	if _, err := io.ReadFull(r, data[compactHeaderV1:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return data, nil
}
