package codec

import "github.com/dunamismax/pixelsmith/internal/raster"

// GIF output is always flattened to opaque RGB before palette quantisation.
func (e *Encoder) encodeGIF(r *raster.Raster, o Options) (Encoded, error) {
	data, err := e.backend.encodeGIF(r.Flatten(raster.White).Image(), gifParams{
		StripMetadata: o.StripMetadata,
	})
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Data: data}, nil
}
