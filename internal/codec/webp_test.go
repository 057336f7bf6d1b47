//go:build cgo

package codec

import (
	"bytes"
	"testing"

	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func TestEncodeWebPLossy(t *testing.T) {
	enc := NewEncoder()
	out, err := enc.Encode(gradient(64, 32, false), WEBP, Options{Quality: 60})
	require.NoError(t, err)
	assert.Equal(t, VP8, out.Method)
	assert.False(t, out.Lossless)
	assert.Equal(t, 60, out.EffectiveQuality)

	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}

func TestEncodeWebPLosslessRoundTrip(t *testing.T) {
	enc := NewEncoder()
	src := gradient(16, 8, false)

	out, err := enc.Encode(src, WEBP, Options{Quality: 1, Method: VP8Lossless})
	require.NoError(t, err)
	assert.True(t, out.Lossless)
	assert.Zero(t, out.EffectiveQuality)

	img, err := webp.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, src.Pix, raster.FromImage(img).Pix)
}
