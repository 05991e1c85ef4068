package manifest

import "errors"

var (
	ErrManifest = errors.New("invalid manifest")
	ErrEval     = errors.New("manifest expression failed")
)
