// Package engine sequences sizing, resampling and encoding into the resize
// and compress operations. It holds no state between calls; one Resizer or
// Compressor may serve any number of concurrent requests.
package engine

import (
	"errors"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/raster"
)

var (
	ErrMissingDimension = errors.New("width, height or scale percent is required")
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrInvalidRequest   = errors.New("invalid request")
)

// Encoder is satisfied by *codec.Encoder.
type Encoder interface {
	Encode(r *raster.Raster, f codec.Format, o codec.Options) (codec.Encoded, error)
}
