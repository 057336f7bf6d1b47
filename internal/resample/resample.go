// Package resample resizes rasters with nearest-neighbour, bilinear, bicubic,
// progressive bilinear and Lanczos (a=3) interpolation.
//
// Every algorithm maps destination pixel centres onto source space with
// src = (dst + 0.5) * scale - 0.5 and is expressed as a separable set of
// weighted taps per axis. Functions here never mutate their input and keep no
// state, so they are safe to call concurrently.
package resample

import (
	"errors"
	"fmt"
	"math"

	"github.com/dunamismax/pixelsmith/internal/raster"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown resize algorithm")
	ErrInvalidSize      = errors.New("invalid resize dimensions")
)

// Resize returns a new raster of exactly width x height.
func Resize(src *raster.Raster, width, height int, alg Algorithm) (*raster.Raster, error) {
	if src == nil || src.Width < 1 || src.Height < 1 {
		return nil, fmt.Errorf("%w: empty source", ErrInvalidSize)
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	switch alg {
	case NearestNeighbor:
		return convolve(src, width, height, nearestAxis(width, src.Width), nearestAxis(height, src.Height)), nil
	case Bilinear:
		return bilinear(src, width, height), nil
	case Bicubic:
		return convolve(src, width, height, bicubicAxis(width, src.Width), bicubicAxis(height, src.Height)), nil
	case Lanczos:
		return convolve(src, width, height, lanczosAxis(width, src.Width), lanczosAxis(height, src.Height)), nil
	case ProgressiveBilinear:
		return progressive(src, width, height), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, int(alg))
	}
}

func bilinear(src *raster.Raster, width, height int) *raster.Raster {
	return convolve(src, width, height, bilinearAxis(width, src.Width), bilinearAxis(height, src.Height))
}

type tap struct {
	index  int
	weight float64
}

// axis holds, for every destination coordinate, the contributing source
// coordinates and the nearest source coordinate used when the weights cancel.
type axis struct {
	taps    [][]tap
	nearest []int
}

func newAxis(dst int) axis {
	return axis{
		taps:    make([][]tap, dst),
		nearest: make([]int, dst),
	}
}

func centre(d int, scale float64) float64 {
	return (float64(d)+0.5)*scale - 0.5
}

func nearestIndex(d int, scale float64, size int) int {
	return clampInt(int(math.Floor((float64(d)+0.5)*scale)), 0, size-1)
}

func nearestAxis(dst, src int) axis {
	scale := float64(src) / float64(dst)
	ax := newAxis(dst)
	for d := 0; d < dst; d++ {
		i := nearestIndex(d, scale, src)
		ax.nearest[d] = i
		ax.taps[d] = []tap{{index: i, weight: 1}}
	}
	return ax
}

func bilinearAxis(dst, src int) axis {
	scale := float64(src) / float64(dst)
	ax := newAxis(dst)
	for d := 0; d < dst; d++ {
		c := clampFloat(centre(d, scale), 0, float64(src-1))
		i0 := int(math.Floor(c))
		i1 := min(i0+1, src-1)
		f := c - float64(i0)
		ax.nearest[d] = nearestIndex(d, scale, src)
		ax.taps[d] = []tap{{index: i0, weight: 1 - f}, {index: i1, weight: f}}
	}
	return ax
}

// cubicA is the Keys kernel parameter used by most bicubic implementations.
const cubicA = -0.5

func cubic(x float64) float64 {
	x = math.Abs(x)
	switch {
	case x <= 1:
		return (cubicA+2)*x*x*x - (cubicA+3)*x*x + 1
	case x < 2:
		return cubicA*x*x*x - 5*cubicA*x*x + 8*cubicA*x - 4*cubicA
	default:
		return 0
	}
}

func bicubicAxis(dst, src int) axis {
	scale := float64(src) / float64(dst)
	ax := newAxis(dst)
	for d := 0; d < dst; d++ {
		c := clampFloat(centre(d, scale), 0, float64(src-1))
		base := int(math.Floor(c))
		taps := make([]tap, 0, 4)
		for k := -1; k <= 2; k++ {
			taps = append(taps, tap{
				index:  clampInt(base+k, 0, src-1),
				weight: cubic(c - float64(base+k)),
			})
		}
		ax.nearest[d] = nearestIndex(d, scale, src)
		ax.taps[d] = taps
	}
	return ax
}

// convolve evaluates the separable filter described by xs and ys. Channels
// are accumulated independently, normalised by the summed weight, rounded and
// clamped to [0, 255]. When the weights cancel out the nearest source pixel
// is copied instead.
func convolve(src *raster.Raster, width, height int, xs, ys axis) *raster.Raster {
	out := raster.New(width, height, src.HasAlpha)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var a, r, g, b, sum float64
			for _, ty := range ys.taps[y] {
				row := ty.index * src.Width
				for _, tx := range xs.taps[x] {
					w := tx.weight * ty.weight
					if w == 0 {
						continue
					}
					pa, pr, pg, pb := raster.Unpack(src.Pix[row+tx.index])
					a += float64(pa) * w
					r += float64(pr) * w
					g += float64(pg) * w
					b += float64(pb) * w
					sum += w
				}
			}

			var p uint32
			if math.Abs(sum) < 1e-9 {
				p = src.At(xs.nearest[x], ys.nearest[y])
			} else {
				p = raster.Pack(channel(a, sum), channel(r, sum), channel(g, sum), channel(b, sum))
			}
			if !src.HasAlpha {
				p |= 0xff << 24
			}
			out.Pix[y*width+x] = p
		}
	}
	return out
}

func channel(v, sum float64) uint8 {
	return uint8(clampFloat(math.Round(v/sum), 0, 255))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
