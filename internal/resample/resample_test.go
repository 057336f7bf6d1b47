package resample

import (
	"fmt"
	"math"
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
			if alpha {
				a = uint8((x * 255) / max(1, w-1))
			}
			r.Set(x, y, raster.Pack(a, uint8((x*255)/w), uint8((y*255)/h), 140))
		}
	}
	return r
}

func TestResizeProducesRequestedDimensions(t *testing.T) {
	sizes := [][2]int{{1, 1}, {3, 7}, {40, 30}, {160, 90}, {257, 13}}
	src := gradient(120, 80, false)

	for _, alg := range Algorithms() {
		for _, size := range sizes {
			t.Run(fmt.Sprintf("%s_%dx%d", alg, size[0], size[1]), func(t *testing.T) {
				out, err := Resize(src, size[0], size[1], alg)
				require.NoError(t, err)
				assert.Equal(t, size[0], out.Width)
				assert.Equal(t, size[1], out.Height)
				assert.Len(t, out.Pix, size[0]*size[1])
				assert.False(t, out.HasAlpha)
			})
		}
	}
}

func TestResizeDoesNotMutateSource(t *testing.T) {
	src := gradient(30, 20, true)
	before := append([]uint32(nil), src.Pix...)

	for _, alg := range Algorithms() {
		_, err := Resize(src, 11, 9, alg)
		require.NoError(t, err)
	}
	assert.Equal(t, before, src.Pix)
}

func TestOpaqueSourceYieldsOpaqueOutput(t *testing.T) {
	src := gradient(50, 50, false)
	for _, alg := range Algorithms() {
		out, err := Resize(src, 17, 23, alg)
		require.NoError(t, err)
		for _, p := range out.Pix {
			require.Equal(t, uint32(0xff), p>>24, "algorithm %s", alg)
		}
	}
}

func TestAlphaSourceKeepsAlpha(t *testing.T) {
	src := gradient(50, 10, true)
	out, err := Resize(src, 25, 5, Lanczos)
	require.NoError(t, err)
	assert.True(t, out.HasAlpha)

	a0, _, _, _ := raster.Unpack(out.At(0, 2))
	a1, _, _, _ := raster.Unpack(out.At(24, 2))
	assert.Less(t, a0, a1)
}

func TestLanczosIdentityScale(t *testing.T) {
	src := gradient(37, 21, true)
	out, err := Resize(src, src.Width, src.Height, Lanczos)
	require.NoError(t, err)

	for i := range src.Pix {
		sa, sr, sg, sb := raster.Unpack(src.Pix[i])
		oa, or, og, ob := raster.Unpack(out.Pix[i])
		for _, d := range []int{int(sa) - int(oa), int(sr) - int(or), int(sg) - int(og), int(sb) - int(ob)} {
			require.LessOrEqual(t, abs(d), 1, "pixel %d", i)
		}
	}
}

func TestNearestNeighborCopiesSourcePixels(t *testing.T) {
	src := raster.New(2, 2, false)
	src.Set(0, 0, raster.Pack(255, 10, 0, 0))
	src.Set(1, 0, raster.Pack(255, 20, 0, 0))
	src.Set(0, 1, raster.Pack(255, 30, 0, 0))
	src.Set(1, 1, raster.Pack(255, 40, 0, 0))

	out, err := Resize(src, 4, 4, NearestNeighbor)
	require.NoError(t, err)
	assert.Equal(t, src.At(0, 0), out.At(0, 0))
	assert.Equal(t, src.At(0, 0), out.At(1, 1))
	assert.Equal(t, src.At(1, 0), out.At(2, 0))
	assert.Equal(t, src.At(1, 1), out.At(3, 3))
}

func TestBilinearAveragesOnHalving(t *testing.T) {
	src := raster.New(2, 1, false)
	src.Set(0, 0, raster.Pack(255, 0, 0, 0))
	src.Set(1, 0, raster.Pack(255, 200, 100, 50))

	out, err := Resize(src, 1, 1, Bilinear)
	require.NoError(t, err)
	_, r, g, b := raster.Unpack(out.At(0, 0))
	assert.Equal(t, []uint8{100, 50, 25}, []uint8{r, g, b})
}

func TestUniformImageStaysUniform(t *testing.T) {
	src := raster.New(64, 48, false)
	for i := range src.Pix {
		src.Pix[i] = raster.Pack(255, 90, 120, 150)
	}
	for _, alg := range Algorithms() {
		out, err := Resize(src, 13, 61, alg)
		require.NoError(t, err)
		for _, p := range out.Pix {
			require.Equal(t, raster.Pack(255, 90, 120, 150), p, "algorithm %s", alg)
		}
	}
}

func TestProgressiveBilinearMatchesTarget(t *testing.T) {
	src := gradient(800, 600, false)
	out, err := Resize(src, 97, 61, ProgressiveBilinear)
	require.NoError(t, err)
	assert.Equal(t, 97, out.Width)
	assert.Equal(t, 61, out.Height)
}

func TestLanczosKernel(t *testing.T) {
	assert.Equal(t, 1.0, lanczosKernel(0))
	assert.Equal(t, 0.0, lanczosKernel(3.5))
	assert.Equal(t, 0.0, lanczosKernel(-4))
	assert.InDelta(t, 0, lanczosKernel(1), 1e-12)
	assert.InDelta(t, lanczosKernel(0.7), lanczosKernel(-0.7), 1e-12)

	want := 3 * math.Sin(math.Pi*0.5) * math.Sin(math.Pi*0.5/3) / math.Pow(math.Pi*0.5, 2)
	assert.InDelta(t, want, lanczosKernel(0.5), 1e-12)
}

func TestResizeRejectsInvalidInput(t *testing.T) {
	src := gradient(4, 4, false)

	_, err := Resize(src, 0, 4, Bilinear)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Resize(nil, 4, 4, Bilinear)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Resize(src, 2, 2, Algorithm(42))
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("progressive-bilinear")
	require.NoError(t, err)
	assert.Equal(t, ProgressiveBilinear, alg)

	alg, err = ParseAlgorithm(" lanczos ")
	require.NoError(t, err)
	assert.Equal(t, Lanczos, alg)

	_, err = ParseAlgorithm("mitchell")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	text, err := Bicubic.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "BICUBIC", string(text))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
