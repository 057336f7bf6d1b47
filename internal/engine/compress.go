package engine

import (
	"context"
	"fmt"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/raster"
)

const (
	minQuality = 1
	maxQuality = 100
)

type CompressRequest struct {
	Format codec.Format
	// Options.Quality is the fixed quality, or the first quality tried when
	// TargetSizeKB is set.
	Options       codec.Options
	TargetSizeKB  *int
	MaxIterations int
	// OriginalSize is the byte size of the stored source, used for the ratio.
	OriginalSize int64
}

func (r CompressRequest) targetBytes() int {
	if r.TargetSizeKB == nil {
		return 0
	}
	return *r.TargetSizeKB * 1024
}

// Attempt records one encode made during a target-size search.
type Attempt struct {
	Quality int
	Size    int
	Fits    bool
}

type CompressResult struct {
	Data           []byte
	Format         codec.Format
	MimeType       string
	Width          int
	Height         int
	OriginalSize   int64
	CompressedSize int64
	Ratio          float64
	Method         codec.Method
	Quality        int
	Label          string
	// Iterations is the number of distinct encodes performed. Attempts may
	// be longer when a quality is revisited from the cache.
	Iterations int
	Attempts   []Attempt
	// TargetMet is false only when a target was set and no attempt fit it.
	TargetMet bool
}

type Compressor struct {
	encoder Encoder
}

func NewCompressor(encoder Encoder) *Compressor {
	return &Compressor{encoder: encoder}
}

// Compress encodes src once at the requested quality, or binary searches the
// quality when a target size is set. An unreachable target is not an error:
// the smallest encode is returned with TargetMet false.
func (c *Compressor) Compress(ctx context.Context, src *raster.Raster, req CompressRequest) (CompressResult, error) {
	if src == nil {
		return CompressResult{}, fmt.Errorf("%w: no source image", ErrInvalidRequest)
	}
	if err := req.Options.Validate(); err != nil {
		return CompressResult{}, err
	}

	if req.TargetSizeKB == nil {
		if err := ctx.Err(); err != nil {
			return CompressResult{}, err
		}
		out, err := c.encoder.Encode(src, req.Format, req.Options)
		if err != nil {
			return CompressResult{}, err
		}
		res := newCompressResult(out, req)
		res.Iterations = 1
		res.TargetMet = true
		return res, nil
	}

	if *req.TargetSizeKB < 1 {
		return CompressResult{}, fmt.Errorf("%w: target size must be at least 1 KB", ErrInvalidRequest)
	}
	if req.MaxIterations < 1 {
		return CompressResult{}, fmt.Errorf("%w: max iterations must be at least 1", ErrInvalidRequest)
	}
	return c.search(ctx, src, req)
}

func (c *Compressor) search(ctx context.Context, src *raster.Raster, req CompressRequest) (CompressResult, error) {
	target := req.targetBytes()
	tried := make(map[int]codec.Encoded, req.MaxIterations)

	var (
		attempts  []Attempt
		best      *codec.Encoded
		smallest  *codec.Encoded
		low, high = minQuality, maxQuality
		quality   = req.Options.Quality
	)

	for i := 0; i < req.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return CompressResult{}, err
		}

		out, ok := tried[quality]
		if !ok {
			var err error
			out, err = c.encoder.Encode(src, req.Format, req.Options.WithQuality(quality))
			if err != nil {
				return CompressResult{}, err
			}
			tried[quality] = out
		}

		fits := len(out.Data) <= target
		attempts = append(attempts, Attempt{Quality: quality, Size: len(out.Data), Fits: fits})
		if smallest == nil || len(out.Data) < len(smallest.Data) {
			smallest = &out
		}

		if fits {
			best = &out
			low = quality
			quality = (quality + high) / 2
		} else {
			high = quality
			quality = (low + quality) / 2
		}
		if high-low <= 1 {
			break
		}
	}

	chosen := best
	if chosen == nil {
		chosen = smallest
	}
	res := newCompressResult(*chosen, req)
	res.Iterations = len(tried)
	res.Attempts = attempts
	res.TargetMet = best != nil
	return res, nil
}

func newCompressResult(out codec.Encoded, req CompressRequest) CompressResult {
	size := int64(len(out.Data))
	return CompressResult{
		Data:           out.Data,
		Format:         out.Format,
		MimeType:       out.Format.MimeType(),
		Width:          out.Width,
		Height:         out.Height,
		OriginalSize:   req.OriginalSize,
		CompressedSize: size,
		Ratio:          Ratio(req.OriginalSize, size),
		Method:         out.Method,
		Quality:        out.Quality,
		Label:          Label(out.Method, out.Quality),
	}
}

// Ratio is the percentage size reduction of compressed against original.
// It is negative when the output grew and zero when original is unknown.
func Ratio(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-compressed) / float64(original) * 100
}

func Label(m codec.Method, quality int) string {
	return fmt.Sprintf("%s (Q:%d)", m, quality)
}
