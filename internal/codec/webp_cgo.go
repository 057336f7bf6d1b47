//go:build cgo

package codec

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
)

func encodeWebPNative(img image.Image, p webpParams) ([]byte, error) {
	var buf bytes.Buffer
	opts := &webp.Options{Lossless: p.Lossless, Quality: float32(p.Quality)}
	if p.Lossless {
		// keep RGB under fully transparent pixels so round trips are exact
		opts.Exact = true
	}
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
