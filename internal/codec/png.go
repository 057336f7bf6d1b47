package codec

import "github.com/dunamismax/pixelsmith/internal/raster"

// PNG output is lossless; quality and method do not change the pixels.
func (e *Encoder) encodePNG(r *raster.Raster, o Options) (Encoded, error) {
	data, err := e.backend.encodePNG(r.Image(), pngParams{
		Optimize:      o.Optimize,
		StripMetadata: o.StripMetadata,
	})
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Data: data, Lossless: true, Optimized: o.Optimize}, nil
}
