package resample

import "math"

// lanczosRadius is the kernel support a.
const lanczosRadius = 3

// lanczosKernel is L(x) = a*sin(pi*x)*sin(pi*x/a) / (pi*x)^2, with L(0) = 1
// and L(x) = 0 outside [-a, a].
func lanczosKernel(x float64) float64 {
	if x == 0 {
		return 1
	}
	if x < -lanczosRadius || x > lanczosRadius {
		return 0
	}
	px := math.Pi * x
	return lanczosRadius * math.Sin(px) * math.Sin(px/lanczosRadius) / (px * px)
}

// lanczosAxis gathers every source coordinate in [c-a, c+a] that lies inside
// the image. The centre itself is not clamped, so edge pixels simply see a
// truncated window.
func lanczosAxis(dst, src int) axis {
	scale := float64(src) / float64(dst)
	ax := newAxis(dst)
	for d := 0; d < dst; d++ {
		c := centre(d, scale)
		lo := max(0, int(math.Floor(c-lanczosRadius)))
		hi := min(src-1, int(math.Ceil(c+lanczosRadius)))

		taps := make([]tap, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			taps = append(taps, tap{index: i, weight: lanczosKernel(c - float64(i))})
		}
		ax.nearest[d] = nearestIndex(d, scale, src)
		ax.taps[d] = taps
	}
	return ax
}
