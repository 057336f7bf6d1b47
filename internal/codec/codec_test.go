package codec

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int, alpha bool) *raster.Raster {
	r := raster.New(w, h, alpha)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if alpha && x < w/2 {
				a = 0
			}
			r.Set(x, y, raster.Pack(a, uint8(x*255/w), uint8(y*255/h), uint8((x^y)&0xff)))
		}
	}
	return r
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"jpg": JPEG, "JPEG": JPEG, " png ": PNG, "webp": WEBP, "GIF": GIF} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("bmp")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatFromFilename(t *testing.T) {
	assert.Equal(t, PNG, FormatFromFilename("photo.PNG"))
	assert.Equal(t, WEBP, FormatFromFilename("dir/photo.webp"))
	assert.Equal(t, JPEG, FormatFromFilename("photo.jpeg"))
	assert.Equal(t, JPEG, FormatFromFilename("photo"))
	assert.Equal(t, JPEG, FormatFromFilename("photo.tiff"))

	gifFormat := GIF
	assert.Equal(t, GIF, ResolveFormat(&gifFormat, "photo.png"))
	assert.Equal(t, PNG, ResolveFormat(nil, "photo.png"))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("huffman")
	require.NoError(t, err)
	assert.Equal(t, Huffman, m)

	m, err = ParseMethod("vp8l")
	require.NoError(t, err)
	assert.Equal(t, VP8Lossless, m)

	m, err = ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodDefault, m)

	for _, name := range []string{"LZ77", "RLE", "brotli"} {
		_, err = ParseMethod(name)
		assert.ErrorIs(t, err, ErrUnsupportedMethod, name)
	}
}

func TestResolveMethodCoercesToFormatDefault(t *testing.T) {
	assert.Equal(t, DCT, ResolveMethod(JPEG, DCT))
	assert.Equal(t, Huffman, ResolveMethod(JPEG, Deflate))
	assert.Equal(t, Huffman, ResolveMethod(JPEG, MethodDefault))
	assert.Equal(t, Deflate, ResolveMethod(PNG, Huffman))
	assert.Equal(t, VP8, ResolveMethod(WEBP, LZW))
	assert.Equal(t, LZW, ResolveMethod(GIF, VP8Lossless))
}

func TestJPEGQualityMapping(t *testing.T) {
	assert.InDelta(t, 0.8, jpegQuality(80, Huffman, 0), 1e-9)
	assert.InDelta(t, 0.84, jpegQuality(80, DCT, 0), 1e-9)
	assert.InDelta(t, 1.0, jpegQuality(100, DCT, 0), 1e-9)
	assert.InDelta(t, 0.76, jpegQuality(80, Arithmetic, 0), 1e-9)
	assert.InDelta(t, 0.1, jpegQuality(5, Arithmetic, 0), 1e-9)
	assert.InDelta(t, 0.8*0.85, jpegQuality(80, Huffman, 50), 1e-9)

	assert.Equal(t, 1, fractionToQuality(0.001))
	assert.Equal(t, 100, fractionToQuality(1.2))
	assert.Equal(t, 84, fractionToQuality(0.84))
}

func TestJPEGOptimize(t *testing.T) {
	assert.True(t, jpegOptimize(Huffman, false))
	assert.True(t, jpegOptimize(Arithmetic, false))
	assert.False(t, jpegOptimize(DCT, true))
	assert.True(t, jpegOptimize(MethodDefault, true))
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{Quality: 1}.Validate())
	assert.NoError(t, Options{Quality: 100, Smoothing: 100}.Validate())
	assert.ErrorIs(t, Options{Quality: 0}.Validate(), ErrInvalidQuality)
	assert.ErrorIs(t, Options{Quality: 101}.Validate(), ErrInvalidQuality)
	assert.ErrorIs(t, Options{Quality: 50, Smoothing: 101}.Validate(), ErrInvalidOptions)
	assert.ErrorIs(t, Options{Quality: 50, Method: Method(99)}.Validate(), ErrUnsupportedMethod)
}

func TestEncodeJPEGFlattensAlpha(t *testing.T) {
	enc := NewEncoder()
	src := gradient(32, 16, true)

	out, err := enc.Encode(src, JPEG, Options{Quality: 90, Method: Deflate})
	require.NoError(t, err)
	assert.Equal(t, JPEG, out.Format)
	assert.Equal(t, Huffman, out.Method)
	assert.Equal(t, 90, out.Quality)
	assert.Equal(t, 90, out.EffectiveQuality)
	assert.False(t, out.Lossless)

	img, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())

	// transparent half composited onto white
	r, g, b, _ := img.At(1, 8).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Greater(t, g>>8, uint32(200))
	assert.Greater(t, b>>8, uint32(200))
}

func TestEncodeJPEGNativeIgnoresCodingRequests(t *testing.T) {
	enc := &Encoder{backend: nativeBackend{}}

	out, err := enc.Encode(gradient(16, 16, false), JPEG, Options{Quality: 80, Method: Huffman, Optimize: true, Progressive: true})
	require.NoError(t, err)
	assert.False(t, out.Optimized)
	assert.False(t, out.Progressive)

	lossless, err := enc.Encode(gradient(16, 16, false), PNG, Options{Quality: 80, Optimize: true})
	require.NoError(t, err)
	assert.True(t, lossless.Optimized)
}

func TestEncodeJPEGSizeFollowsQuality(t *testing.T) {
	enc := NewEncoder()
	src := gradient(128, 128, false)

	low, err := enc.Encode(src, JPEG, Options{Quality: 10})
	require.NoError(t, err)
	high, err := enc.Encode(src, JPEG, Options{Quality: 95})
	require.NoError(t, err)
	assert.Less(t, low.Size(), high.Size())
}

func TestEncodeJPEGSmoothingLowersQuality(t *testing.T) {
	enc := NewEncoder()
	out, err := enc.Encode(gradient(32, 32, false), JPEG, Options{Quality: 80, Smoothing: 100})
	require.NoError(t, err)
	assert.Equal(t, 56, out.EffectiveQuality)
}

func TestEncodePNGKeepsAlpha(t *testing.T) {
	enc := NewEncoder()
	src := gradient(8, 4, true)

	out, err := enc.Encode(src, PNG, Options{Quality: 10, Method: Huffman, Optimize: true})
	require.NoError(t, err)
	assert.Equal(t, Deflate, out.Method)
	assert.True(t, out.Lossless)

	img, err := png.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	decoded := raster.FromImage(img)
	assert.Equal(t, src.Pix, decoded.Pix)
}

func TestEncodeGIF(t *testing.T) {
	enc := NewEncoder()
	out, err := enc.Encode(gradient(16, 16, true), GIF, Options{Quality: 50})
	require.NoError(t, err)
	assert.Equal(t, LZW, out.Method)

	img, err := gif.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), a)
}

func TestEncodeRejectsBadInput(t *testing.T) {
	enc := NewEncoder()

	_, err := enc.Encode(gradient(4, 4, false), Format(42), Options{Quality: 50})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = enc.Encode(gradient(4, 4, false), JPEG, Options{Quality: 0})
	assert.ErrorIs(t, err, ErrInvalidQuality)

	_, err = enc.Encode(nil, JPEG, Options{Quality: 50})
	assert.Error(t, err)
}
