package sourceafis

import "errors"

var (
	ErrOutOfRange      = errors.New("sourceafis: value out of range")
	ErrNilArgument     = errors.New("sourceafis: nil argument")
	ErrMissingTemplate = errors.New("sourceafis: fingerprint has no template")
	ErrMissingImage    = errors.New("sourceafis: fingerprint has no image")
	ErrNoExtractor     = errors.New("sourceafis: engine has no extractor")
)
