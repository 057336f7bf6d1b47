package codec

import "image"

type jpegParams struct {
	Quality       int
	Optimize      bool
	Progressive   bool
	StripMetadata bool
}

type pngParams struct {
	Optimize      bool
	StripMetadata bool
}

type webpParams struct {
	Quality       int
	Lossless      bool
	StripMetadata bool
}

type gifParams struct {
	StripMetadata bool
}

// backend is the codec library the format adapters hand prepared images to.
// Implementations must be safe for concurrent use.
type backend interface {
	name() string
	progressiveJPEG() bool
	optimizeJPEG() bool
	encodeJPEG(img image.Image, p jpegParams) ([]byte, error)
	encodePNG(img image.Image, p pngParams) ([]byte, error)
	encodeWebP(img image.Image, p webpParams) ([]byte, error)
	encodeGIF(img image.Image, p gifParams) ([]byte, error)
}
