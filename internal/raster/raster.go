// Package raster holds decoded images as flat, row-major ARGB pixel buffers.
//
// A Raster is treated as immutable once a stage has produced it: every
// transform allocates a new Raster and hands it to the next stage.
package raster

import (
	"image"
	"image/color"
)

// Raster is a decoded image. Pix holds one 0xAARRGGBB value per pixel with
// straight (non-premultiplied) alpha, indexed by y*Width+x.
type Raster struct {
	Width    int
	Height   int
	Pix      []uint32
	HasAlpha bool
}

// New allocates a zeroed (transparent black) raster.
func New(width, height int, hasAlpha bool) *Raster {
	return &Raster{
		Width:    width,
		Height:   height,
		Pix:      make([]uint32, width*height),
		HasAlpha: hasAlpha,
	}
}

func (r *Raster) At(x, y int) uint32 {
	return r.Pix[y*r.Width+x]
}

func (r *Raster) Set(x, y int, argb uint32) {
	r.Pix[y*r.Width+x] = argb
}

// Pixels returns Width*Height.
func (r *Raster) Pixels() int {
	return r.Width * r.Height
}

func Pack(a, red, green, blue uint8) uint32 {
	return uint32(a)<<24 | uint32(red)<<16 | uint32(green)<<8 | uint32(blue)
}

func Unpack(p uint32) (a, red, green, blue uint8) {
	return uint8(p >> 24), uint8(p >> 16), uint8(p >> 8), uint8(p)
}

// FromImage copies img into a new Raster. HasAlpha is set only when at least
// one pixel is not fully opaque.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	out := New(b.Dx(), b.Dy(), false)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
				out.Pix[y*out.Width+x] = Pack(src.Pix[i+3], src.Pix[i], src.Pix[i+1], src.Pix[i+2])
			}
		}
	default:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				out.Pix[y*out.Width+x] = Pack(c.A, c.R, c.G, c.B)
			}
		}
	}

	for _, p := range out.Pix {
		if p>>24 != 0xff {
			out.HasAlpha = true
			break
		}
	}
	return out
}

// Image converts the raster to an *image.NRGBA. Opaque rasters always
// produce alpha 255.
func (r *Raster) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < r.Width; x++ {
			a, red, green, blue := Unpack(r.Pix[y*r.Width+x])
			if !r.HasAlpha {
				a = 0xff
			}
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = red, green, blue, a
		}
	}
	return img
}

// Flatten composites the raster onto an opaque background and returns a new
// opaque raster. An already opaque raster is returned unchanged.
func (r *Raster) Flatten(bg color.RGBA) *Raster {
	if !r.HasAlpha {
		return r
	}

	out := New(r.Width, r.Height, false)
	for i, p := range r.Pix {
		a, red, green, blue := Unpack(p)
		out.Pix[i] = Pack(0xff,
			blend(red, bg.R, a),
			blend(green, bg.G, a),
			blend(blue, bg.B, a),
		)
	}
	return out
}

func blend(fg, bg, alpha uint8) uint8 {
	a := uint32(alpha)
	return uint8((uint32(fg)*a + uint32(bg)*(255-a) + 127) / 255)
}

// White is the background JPEG and GIF output is flattened onto.
var White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
