package resample

import "github.com/dunamismax/pixelsmith/internal/raster"

// progressive halves the image with bilinear passes while it is more than
// twice the target on both axes, then finishes with one bilinear pass to the
// exact size.
func progressive(src *raster.Raster, width, height int) *raster.Raster {
	current := src
	for current.Width > width*2 && current.Height > height*2 {
		current = bilinear(current, current.Width/2, current.Height/2)
	}
	return bilinear(current, width, height)
}
