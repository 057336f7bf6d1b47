//go:build !cgo

package codec

import "image"

func encodeWebPNative(image.Image, webpParams) ([]byte, error) {
	return nil, ErrWebPUnavailable
}
