package codec

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrUnsupportedMethod = errors.New("unsupported compression method")
	ErrInvalidQuality    = errors.New("quality must be between 1 and 100")
	ErrInvalidOptions    = errors.New("invalid encode options")
	ErrWebPUnavailable   = errors.New("webp encoding requires cgo")
)
