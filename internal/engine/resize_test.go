package engine

import (
	"bytes"
	"context"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/dunamismax/pixelsmith/internal/resample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checker(w, h int) *raster.Raster {
	r := raster.New(w, h, false)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if (x/8+y/8)%2 == 0 {
				v = 255
			}
			r.Set(x, y, raster.Pack(255, v, uint8(x), uint8(y)))
		}
	}
	return r
}

func TestResizeWidthWithAspect(t *testing.T) {
	r := NewResizer(codec.NewEncoder())
	src := checker(800, 600)

	res, err := r.Resize(context.Background(), src, ResizeRequest{
		Size:      SizeRequest{Width: intPtr(400), MaintainAspectRatio: true},
		Algorithm: resample.Bilinear,
		Format:    codec.JPEG,
		Quality:   90,
	})
	require.NoError(t, err)
	assert.Equal(t, 400, res.Width)
	assert.Equal(t, 300, res.Height)
	assert.Equal(t, resample.Bilinear, res.Algorithm)
	assert.Equal(t, "image/jpeg", res.MimeType)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 300, cfg.Height)

	// source untouched
	assert.Equal(t, 800, src.Width)
	assert.Equal(t, raster.Pack(255, 255, 0, 0), src.At(0, 0))
}

func TestResizeScaleMatchesWidth(t *testing.T) {
	r := NewResizer(codec.NewEncoder())
	src := checker(800, 600)

	for _, alg := range resample.Algorithms() {
		res, err := r.Resize(context.Background(), src, ResizeRequest{
			Size:      SizeRequest{ScalePercent: floatPtr(50)},
			Algorithm: alg,
			Format:    codec.PNG,
			Quality:   90,
		})
		require.NoError(t, err, alg.String())
		assert.Equal(t, 400, res.Width, alg.String())
		assert.Equal(t, 300, res.Height, alg.String())

		cfg, err := png.DecodeConfig(bytes.NewReader(res.Data))
		require.NoError(t, err)
		assert.Equal(t, 400, cfg.Width)
	}
}

func TestResizePassesQualityThrough(t *testing.T) {
	enc := &sizedEncoder{size: func(int) int { return 1 }}
	r := NewResizer(enc)

	res, err := r.Resize(context.Background(), checker(16, 16), ResizeRequest{
		Size:      SizeRequest{Width: intPtr(8), MaintainAspectRatio: true},
		Algorithm: resample.Lanczos,
		Format:    codec.WEBP,
		Quality:   37,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{37}, enc.calls)
	assert.Equal(t, 37, res.Quality)
	assert.Equal(t, "image/webp", res.MimeType)
}

func TestResizeErrors(t *testing.T) {
	r := NewResizer(codec.NewEncoder())

	_, err := r.Resize(context.Background(), checker(8, 8), ResizeRequest{
		Algorithm: resample.Bilinear, Format: codec.PNG, Quality: 90,
	})
	assert.ErrorIs(t, err, ErrMissingDimension)

	_, err = r.Resize(context.Background(), checker(8, 8), ResizeRequest{
		Size:      SizeRequest{Width: intPtr(4)},
		Algorithm: resample.Algorithm(99),
		Format:    codec.PNG,
		Quality:   90,
	})
	assert.ErrorIs(t, err, resample.ErrUnknownAlgorithm)

	_, err = r.Resize(context.Background(), checker(8, 8), ResizeRequest{
		Size:      SizeRequest{Width: intPtr(4)},
		Algorithm: resample.Bilinear,
		Format:    codec.PNG,
		Quality:   0,
	})
	assert.ErrorIs(t, err, codec.ErrInvalidQuality)
}

func TestResizeRejectsOversizedTargets(t *testing.T) {
	r := NewResizer(codec.NewEncoder())
	src := raster.New(8, 6, false)

	assert.NotPanics(t, func() {
		_, err := r.Resize(context.Background(), src, ResizeRequest{
			Size:      SizeRequest{Width: intPtr(math.MaxInt)},
			Algorithm: resample.Bilinear,
			Format:    codec.PNG,
			Quality:   90,
		})
		assert.ErrorIs(t, err, ErrInvalidDimension)
	})

	_, err := r.Resize(context.Background(), src, ResizeRequest{
		Size:      SizeRequest{Width: intPtr(40), Height: intPtr(30)},
		Algorithm: resample.Bilinear,
		Format:    codec.PNG,
		Quality:   90,
		MaxPixels: 1000,
	})
	assert.ErrorIs(t, err, ErrInvalidDimension)

	res, err := r.Resize(context.Background(), src, ResizeRequest{
		Size:      SizeRequest{Width: intPtr(40), Height: intPtr(25)},
		Algorithm: resample.Bilinear,
		Format:    codec.PNG,
		Quality:   90,
		MaxPixels: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 25, res.Height)
}

func TestResizeLabel(t *testing.T) {
	assert.Equal(t, "BILINEAR (Q:90)", ResizeLabel(resample.Bilinear, 90))
	assert.Equal(t, "PROGRESSIVE_BILINEAR (Q:1)", ResizeLabel(resample.ProgressiveBilinear, 1))
}

func TestEncodeRoundTripReportsDimensions(t *testing.T) {
	enc := codec.NewEncoder()
	src := checker(33, 17)

	for _, f := range []codec.Format{codec.PNG, codec.JPEG} {
		out, err := enc.Encode(src, f, codec.Options{Quality: 100})
		require.NoError(t, err)
		assert.Equal(t, 33, out.Width)
		assert.Equal(t, 17, out.Height)
	}
}
