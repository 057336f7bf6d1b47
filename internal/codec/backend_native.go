package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
)

// nativeBackend uses the Go image codecs. Go's JPEG encoder always writes
// baseline output with its fixed Huffman tables, so progressive and
// optimized-coding requests are ignored.
type nativeBackend struct{}

func (nativeBackend) name() string { return "native" }

func (nativeBackend) progressiveJPEG() bool { return false }

func (nativeBackend) optimizeJPEG() bool { return false }

func (nativeBackend) encodeJPEG(img image.Image, p jpegParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (nativeBackend) encodePNG(img image.Image, p pngParams) ([]byte, error) {
	level := png.DefaultCompression
	if p.Optimize {
		level = png.BestCompression
	}

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: level}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (nativeBackend) encodeWebP(img image.Image, p webpParams) ([]byte, error) {
	return encodeWebPNative(img, p)
}

func (nativeBackend) encodeGIF(img image.Image, _ gifParams) ([]byte, error) {
	var buf bytes.Buffer
	opts := &gif.Options{NumColors: 256, Drawer: draw.FloydSteinberg}
	if err := gif.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}
