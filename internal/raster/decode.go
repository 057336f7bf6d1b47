package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrDecode   = errors.New("cannot read image")
	ErrTooLarge = errors.New("image exceeds pixel limit")
)

// Info is what can be learned from an encoded image without decoding pixels.
type Info struct {
	Width  int
	Height int
	Format string
}

func DecodeConfig(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode reads an encoded image, applies its EXIF orientation and returns it
// as a Raster. maxPixels <= 0 disables the size guard.
func Decode(data []byte, maxPixels int) (*Raster, Info, error) {
	info, err := DecodeConfig(data)
	if err != nil {
		return nil, Info{}, err
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, Info{}, fmt.Errorf("%w: empty image", ErrDecode)
	}
	if maxPixels > 0 && info.Width*info.Height > maxPixels {
		return nil, Info{}, fmt.Errorf("%w: %dx%d", ErrTooLarge, info.Width, info.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	r := FromImage(img)
	// orientation may swap the axes
	info.Width, info.Height = r.Width, r.Height
	return r, info, nil
}
