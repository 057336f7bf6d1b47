package codec

import "github.com/dunamismax/pixelsmith/internal/raster"

func (e *Encoder) encodeWebP(r *raster.Raster, o Options, method Method) (Encoded, error) {
	lossless := method == VP8Lossless
	p := webpParams{
		Lossless:      lossless,
		StripMetadata: o.StripMetadata,
	}
	if !lossless {
		p.Quality = fractionToQuality(float64(o.Quality) / 100)
	}

	data, err := e.backend.encodeWebP(r.Image(), p)
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Data: data, EffectiveQuality: p.Quality, Lossless: lossless}, nil
}
