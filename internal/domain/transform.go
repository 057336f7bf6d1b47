package domain

import (
	"fmt"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/engine"
	"github.com/dunamismax/pixelsmith/internal/resample"
)

// ResizeRequest is the JSON body of a resize call. Quality and the compress
// counterparts are pointers so an explicit 0 is rejected, not defaulted.
type ResizeRequest struct {
	Width               *int     `json:"width,omitempty" validate:"omitempty,min=1,max=65535"`
	Height              *int     `json:"height,omitempty" validate:"omitempty,min=1,max=65535"`
	Algorithm           string   `json:"algorithm" default:"LANCZOS"`
	MaintainAspectRatio *bool    `json:"maintainAspectRatio,omitempty" default:"true"`
	ScalePercent        *float64 `json:"scalePercent,omitempty" validate:"omitempty,gt=0,lte=10000"`
	OutputFormat        *string  `json:"outputFormat,omitempty"`
	Quality             *int     `json:"quality,omitempty" default:"90" validate:"required,min=1,max=100"`
}

// Normalize applies defaults and validates ranges.
func (r *ResizeRequest) Normalize() error {
	return normalize(r)
}

// Engine converts the request for a source named sourceName. Call Normalize
// first.
func (r ResizeRequest) Engine(sourceName string) (engine.ResizeRequest, error) {
	alg, err := resample.ParseAlgorithm(r.Algorithm)
	if err != nil {
		return engine.ResizeRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	format, err := outputFormat(r.OutputFormat, sourceName)
	if err != nil {
		return engine.ResizeRequest{}, err
	}

	return engine.ResizeRequest{
		Size: engine.SizeRequest{
			Width:               r.Width,
			Height:              r.Height,
			ScalePercent:        r.ScalePercent,
			MaintainAspectRatio: r.MaintainAspectRatio == nil || *r.MaintainAspectRatio,
		},
		Algorithm: alg,
		Format:    format,
		Quality:   deref(r.Quality),
	}, nil
}

// CompressRequest is the JSON body of a compress call.
type CompressRequest struct {
	Quality         *int    `json:"quality,omitempty" default:"100" validate:"required,min=1,max=100"`
	OutputFormat    *string `json:"outputFormat,omitempty"`
	Method          string  `json:"method" default:"HUFFMAN"`
	TargetSizeKB    *int    `json:"targetSizeKB,omitempty" validate:"omitempty,min=1"`
	MaxIterations   *int    `json:"maxIterations,omitempty" default:"10" validate:"required,min=1,max=50"`
	Optimize        *bool   `json:"optimize,omitempty" default:"true"`
	StripMetadata   *bool   `json:"stripMetadata,omitempty" default:"true"`
	Progressive     bool    `json:"progressive"`
	SmoothingFactor int     `json:"smoothingFactor" validate:"min=0,max=100"`
}

func (r *CompressRequest) Normalize() error {
	return normalize(r)
}

// Engine converts the request. originalSize is the stored source size in
// bytes.
func (r CompressRequest) Engine(sourceName string, originalSize int64) (engine.CompressRequest, error) {
	method, err := codec.ParseMethod(r.Method)
	if err != nil {
		return engine.CompressRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	format, err := outputFormat(r.OutputFormat, sourceName)
	if err != nil {
		return engine.CompressRequest{}, err
	}

	return engine.CompressRequest{
		Format: format,
		Options: codec.Options{
			Quality:       deref(r.Quality),
			Method:        method,
			Optimize:      r.Optimize == nil || *r.Optimize,
			StripMetadata: r.StripMetadata == nil || *r.StripMetadata,
			Progressive:   r.Progressive,
			Smoothing:     r.SmoothingFactor,
		},
		TargetSizeKB:  r.TargetSizeKB,
		MaxIterations: deref(r.MaxIterations),
		OriginalSize:  originalSize,
	}, nil
}

func outputFormat(explicit *string, sourceName string) (codec.Format, error) {
	if explicit == nil || *explicit == "" {
		return codec.FormatFromFilename(sourceName), nil
	}
	f, err := codec.ParseFormat(*explicit)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return f, nil
}

// ResizeResponse carries the encoded image inline as base64.
type ResizeResponse struct {
	Base64    string `json:"base64"`
	MimeType  string `json:"mimeType"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Algorithm string `json:"algorithm"`
}

type CompressResponse struct {
	Base64              string  `json:"base64"`
	MimeType            string  `json:"mimeType"`
	Width               int     `json:"width"`
	Height              int     `json:"height"`
	OriginalSizeBytes   int64   `json:"originalSizeBytes"`
	CompressedSizeBytes int64   `json:"compressedSizeBytes"`
	CompressionRatio    float64 `json:"compressionRatio"`
	Method              string  `json:"method"`
	Quality             int     `json:"quality"`
	Iterations          int     `json:"iterations"`
	TargetMet           bool    `json:"targetMet"`
}

// ImageInfo describes a stored source image.
type ImageInfo struct {
	ID            string `json:"id,omitempty"`
	FileName      string `json:"fileName"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
