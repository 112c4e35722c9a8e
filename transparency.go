package sourceafis

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const cborMime = "application/cbor"

// TransparencyContents receives intermediate matcher data for inspection. Accepts
// is asked first so that unwanted data is never encoded.
type TransparencyContents interface {
	Accepts(key string) bool
	Accept(key, mime string, data []byte) error
}

// TransparencyLogger encodes intermediate data as CBOR and hands it to its contents.
// A nil logger discards everything.
type TransparencyLogger struct {
	contents TransparencyContents
}

func NewTransparencyLogger(contents TransparencyContents) *TransparencyLogger {
	return &TransparencyLogger{contents: contents}
}

func (l *TransparencyLogger) Accepts(key string) bool {
	return l != nil && l.contents != nil && l.contents.Accepts(key)
}

// Log encodes v under key if the contents accept it.
func (l *TransparencyLogger) Log(key string, v any) error {
	if !l.Accepts(key) {
		return nil
	}
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode transparency data %s: %w", key, err)
	}
	if err := l.contents.Accept(key, cborMime, data); err != nil {
		return fmt.Errorf("transparency contents rejected %s: %w", key, err)
	}
	return nil
}
