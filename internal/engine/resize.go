package engine

import (
	"context"
	"fmt"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/dunamismax/pixelsmith/internal/resample"
)

// DefaultMaxPixels bounds the target area when ResizeRequest.MaxPixels is
// unset.
const DefaultMaxPixels = 100_000_000

type ResizeRequest struct {
	Size      SizeRequest
	Algorithm resample.Algorithm
	Format    codec.Format
	// Quality is passed to the encoder unchanged.
	Quality       int
	StripMetadata bool
	// MaxPixels bounds the target area. Zero means DefaultMaxPixels.
	MaxPixels int
}

type ResizeResult struct {
	Data      []byte
	Format    codec.Format
	MimeType  string
	Width     int
	Height    int
	Algorithm resample.Algorithm
	Quality   int
}

type Resizer struct {
	encoder Encoder
}

func NewResizer(encoder Encoder) *Resizer {
	return &Resizer{encoder: encoder}
}

// Resize computes the target size, resamples src and encodes the result.
// src is not modified.
func (r *Resizer) Resize(ctx context.Context, src *raster.Raster, req ResizeRequest) (ResizeResult, error) {
	if src == nil {
		return ResizeResult{}, fmt.Errorf("%w: no source image", ErrInvalidRequest)
	}

	w, h, err := ComputeSize(src.Width, src.Height, req.Size)
	if err != nil {
		return ResizeResult{}, err
	}
	limit := req.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if w*h > limit {
		return ResizeResult{}, fmt.Errorf("%w: target %dx%d exceeds %d pixels", ErrInvalidDimension, w, h, limit)
	}

	if err := ctx.Err(); err != nil {
		return ResizeResult{}, err
	}
	resized, err := resample.Resize(src, w, h, req.Algorithm)
	if err != nil {
		return ResizeResult{}, fmt.Errorf("resample: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return ResizeResult{}, err
	}
	out, err := r.encoder.Encode(resized, req.Format, codec.Options{
		Quality:       req.Quality,
		StripMetadata: req.StripMetadata,
	})
	if err != nil {
		return ResizeResult{}, err
	}

	return ResizeResult{
		Data:      out.Data,
		Format:    req.Format,
		MimeType:  req.Format.MimeType(),
		Width:     resized.Width,
		Height:    resized.Height,
		Algorithm: req.Algorithm,
		Quality:   req.Quality,
	}, nil
}

// ResizeLabel names a resize result the way Label names a compression.
func ResizeLabel(alg resample.Algorithm, quality int) string {
	return fmt.Sprintf("%s (Q:%d)", alg, quality)
}
