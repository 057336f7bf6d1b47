package pipeline

import (
	"errors"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/dunamismax/pixelsmith/internal/engine"
	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/dunamismax/pixelsmith/internal/resample"
	"github.com/dunamismax/pixelsmith/internal/storage"
)

var inputErrors = []error{
	ErrInvalidKind,
	domain.ErrInvalidRequest,
	engine.ErrMissingDimension,
	engine.ErrInvalidDimension,
	engine.ErrInvalidRequest,
	codec.ErrUnsupportedFormat,
	codec.ErrUnsupportedMethod,
	codec.ErrInvalidQuality,
	codec.ErrInvalidOptions,
	resample.ErrUnknownAlgorithm,
	resample.ErrInvalidSize,
	raster.ErrDecode,
	raster.ErrTooLarge,
	storage.ErrInvalidKey,
	storage.ErrNotFound,
}

// IsInputError reports whether err was caused by the request or its source
// image rather than by infrastructure. Retrying such errors cannot succeed.
func IsInputError(err error) bool {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
