package codec

import "fmt"

// Options are the per-request encoder tunables. Formats ignore the fields
// that have no meaning for them.
type Options struct {
	Quality       int
	Method        Method
	Optimize      bool
	StripMetadata bool

	// JPEG only.
	Progressive bool
	Smoothing   int
}

func (o Options) Validate() error {
	if o.Quality < 1 || o.Quality > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuality, o.Quality)
	}
	if o.Smoothing < 0 || o.Smoothing > 100 {
		return fmt.Errorf("%w: smoothing must be between 0 and 100, got %d", ErrInvalidOptions, o.Smoothing)
	}
	if o.Method < 0 || int(o.Method) >= len(methodNames) {
		return fmt.Errorf("%w: %d", ErrUnsupportedMethod, int(o.Method))
	}
	return nil
}

// WithQuality returns a copy of o using quality q.
func (o Options) WithQuality(q int) Options {
	o.Quality = q
	return o
}
