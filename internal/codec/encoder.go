// Package codec turns rasters into JPEG, PNG, WEBP or GIF bytes.
//
// Encoder dispatches on the closed Format set to one adapter per format. The
// adapters prepare the raster (alpha flattening, smoothing, quality mapping)
// and delegate the bitstream to a backend: the Go image codecs plus
// chai2010/webp by default, or libvips when built with -tags govips.
package codec

import (
	"errors"
	"fmt"

	"github.com/dunamismax/pixelsmith/internal/raster"
)

// Encoded is the output of one encode call.
type Encoded struct {
	Data   []byte
	Format Format
	// Method is the method actually applied after coercion.
	Method Method
	// Quality is the requested 1..100 quality.
	Quality int
	// EffectiveQuality is the quality handed to the codec after method bias
	// and smoothing. Zero for lossless output.
	EffectiveQuality int
	Lossless         bool
	Progressive      bool
	Optimized        bool
	Width            int
	Height           int
}

func (e Encoded) Size() int {
	return len(e.Data)
}

// Encoder is stateless and safe for concurrent use.
type Encoder struct {
	backend backend
}

func NewEncoder() *Encoder {
	return &Encoder{backend: newBackend()}
}

// Backend names the codec implementation in use.
func (e *Encoder) Backend() string {
	return e.backend.name()
}

func (e *Encoder) Encode(r *raster.Raster, f Format, o Options) (Encoded, error) {
	if r == nil || r.Width < 1 || r.Height < 1 {
		return Encoded{}, errors.New("encode: empty raster")
	}
	if err := o.Validate(); err != nil {
		return Encoded{}, err
	}

	method := ResolveMethod(f, o.Method)

	var (
		out Encoded
		err error
	)
	switch f {
	case JPEG:
		out, err = e.encodeJPEG(r, o, method)
	case PNG:
		out, err = e.encodePNG(r, o)
	case WEBP:
		out, err = e.encodeWebP(r, o, method)
	case GIF:
		out, err = e.encodeGIF(r, o)
	default:
		return Encoded{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return Encoded{}, fmt.Errorf("encode %s: %w", f, err)
	}

	out.Format = f
	out.Method = method
	out.Quality = o.Quality
	out.Width = r.Width
	out.Height = r.Height
	return out, nil
}
