package engine

import (
	"fmt"
	"math"
)

// SizeRequest describes the requested output dimensions. ScalePercent wins
// over Width and Height when set.
type SizeRequest struct {
	Width               *int
	Height              *int
	ScalePercent        *float64
	MaintainAspectRatio bool
}

// MaxDimension bounds each output axis. It is the largest dimension JPEG
// and WebP can store.
const MaxDimension = 65535

// ComputeSize resolves req against the source dimensions. Results are
// rounded half away from zero, never smaller than 1 and never larger than
// MaxDimension.
func ComputeSize(srcW, srcH int, req SizeRequest) (int, int, error) {
	if srcW < 1 || srcH < 1 {
		return 0, 0, fmt.Errorf("%w: source is %dx%d", ErrInvalidDimension, srcW, srcH)
	}

	if req.ScalePercent != nil {
		pct := *req.ScalePercent
		if pct <= 0 || math.IsNaN(pct) || math.IsInf(pct, 0) {
			return 0, 0, fmt.Errorf("%w: scale percent %v", ErrInvalidDimension, pct)
		}
		return scaledPair(srcW, srcH, pct/100, pct/100)
	}

	if req.Width == nil && req.Height == nil {
		return 0, 0, ErrMissingDimension
	}
	if err := checkAxis("width", req.Width); err != nil {
		return 0, 0, err
	}
	if err := checkAxis("height", req.Height); err != nil {
		return 0, 0, err
	}

	if !req.MaintainAspectRatio {
		w, h := srcW, srcH
		if req.Width != nil {
			w = *req.Width
		}
		if req.Height != nil {
			h = *req.Height
		}
		return w, h, nil
	}

	switch {
	case req.Width != nil && req.Height != nil:
		scale := math.Min(float64(*req.Width)/float64(srcW), float64(*req.Height)/float64(srcH))
		w, h, err := scaledPair(srcW, srcH, scale, scale)
		if err != nil {
			return 0, 0, err
		}
		// rounding must not push either axis past its bound
		return min(w, *req.Width), min(h, *req.Height), nil
	case req.Width != nil:
		h, err := scaled(srcH, float64(*req.Width)/float64(srcW))
		if err != nil {
			return 0, 0, err
		}
		return *req.Width, h, nil
	default:
		w, err := scaled(srcW, float64(*req.Height)/float64(srcH))
		if err != nil {
			return 0, 0, err
		}
		return w, *req.Height, nil
	}
}

func checkAxis(name string, v *int) error {
	if v == nil {
		return nil
	}
	if *v < 1 || *v > MaxDimension {
		return fmt.Errorf("%w: %s %d outside 1..%d", ErrInvalidDimension, name, *v, MaxDimension)
	}
	return nil
}

func scaledPair(w, h int, fw, fh float64) (int, int, error) {
	sw, err := scaled(w, fw)
	if err != nil {
		return 0, 0, err
	}
	sh, err := scaled(h, fh)
	if err != nil {
		return 0, 0, err
	}
	return sw, sh, nil
}

// scaled is checked in float space so huge factors cannot overflow int.
func scaled(n int, factor float64) (int, error) {
	v := math.Round(float64(n) * factor)
	if v > MaxDimension {
		return 0, fmt.Errorf("%w: computed axis %.0f exceeds %d", ErrInvalidDimension, v, MaxDimension)
	}
	return max(1, int(v)), nil
}
