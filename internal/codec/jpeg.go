package codec

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/pixelsmith/internal/raster"
)

// jpegQuality maps a 1..100 quality onto the 0..1 fraction the codec works
// with, biased by method and reduced by smoothing.
func jpegQuality(quality int, method Method, smoothing int) float64 {
	q := float64(quality) / 100
	switch method {
	case DCT:
		q = math.Min(q*1.05, 1.0)
	case Arithmetic:
		q = math.Max(q*0.95, 0.1)
	}
	if s := smoothingStrength(smoothing); s > 0 {
		q *= 1 - s*0.3
	}
	return q
}

func jpegOptimize(method Method, requested bool) bool {
	switch method {
	case Huffman, Arithmetic:
		return true
	case DCT:
		return false
	default:
		return requested
	}
}

func smoothingStrength(smoothing int) float64 {
	return math.Max(0, math.Min(1, float64(smoothing)/100))
}

// fractionToQuality converts a 0..1 fraction into the codec's 1..100 scale.
func fractionToQuality(f float64) int {
	q := int(math.Round(f * 100))
	return max(1, min(100, q))
}

func (e *Encoder) encodeJPEG(r *raster.Raster, o Options, method Method) (Encoded, error) {
	var img image.Image = r.Flatten(raster.White).Image()
	if s := smoothingStrength(o.Smoothing); s > 0 {
		img = imaging.Blur(img, s)
	}

	quality := fractionToQuality(jpegQuality(o.Quality, method, o.Smoothing))
	progressive := o.Progressive && e.backend.progressiveJPEG()
	optimize := jpegOptimize(method, o.Optimize) && e.backend.optimizeJPEG()

	data, err := e.backend.encodeJPEG(img, jpegParams{
		Quality:       quality,
		Optimize:      optimize,
		Progressive:   progressive,
		StripMetadata: o.StripMetadata,
	})
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Data: data, EffectiveQuality: quality, Progressive: progressive, Optimized: optimize}, nil
}
