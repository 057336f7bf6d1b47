//go:build govips && cgo

package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/davidbyttow/govips/v2/vips"
)

// govipsBackend hands a lossless PNG of the prepared image to libvips and
// exports from there.
type govipsBackend struct{}

func (govipsBackend) name() string { return "govips" }

func (govipsBackend) progressiveJPEG() bool { return true }

func (govipsBackend) optimizeJPEG() bool { return true }

func (govipsBackend) encodeJPEG(img image.Image, p jpegParams) ([]byte, error) {
	ref, err := loadVips(img)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	params := vips.NewJpegExportParams()
	params.Quality = p.Quality
	params.OptimizeCoding = p.Optimize
	params.Interlace = p.Progressive
	params.StripMetadata = p.StripMetadata
	data, _, err := ref.ExportJpeg(params)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return data, nil
}

func (govipsBackend) encodePNG(img image.Image, p pngParams) ([]byte, error) {
	ref, err := loadVips(img)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	params := vips.NewPngExportParams()
	params.StripMetadata = p.StripMetadata
	if p.Optimize {
		params.Compression = 9
	}
	data, _, err := ref.ExportPng(params)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return data, nil
}

func (govipsBackend) encodeWebP(img image.Image, p webpParams) ([]byte, error) {
	ref, err := loadVips(img)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	params := vips.NewWebpExportParams()
	params.Lossless = p.Lossless
	params.StripMetadata = p.StripMetadata
	if !p.Lossless {
		params.Quality = p.Quality
	}
	data, _, err := ref.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return data, nil
}

func (govipsBackend) encodeGIF(img image.Image, p gifParams) ([]byte, error) {
	ref, err := loadVips(img)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	params := vips.NewGifExportParams()
	params.StripMetadata = p.StripMetadata
	data, _, err := ref.ExportGIF(params)
	if err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return data, nil
}

func loadVips(img image.Image) (*vips.ImageRef, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.NoCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("stage image for libvips: %w", err)
	}
	ref, err := vips.NewImageFromBuffer(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("load image into libvips: %w", err)
	}
	return ref, nil
}
