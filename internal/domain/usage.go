package domain

// Usage is the work accounted to one finished job.
type Usage struct {
	PixelsProcessed int64 `json:"pixelsProcessed"`
	BytesSaved      int64 `json:"bytesSaved"`
	ComputeTimeMS   int64 `json:"computeTimeMs"`
}

// NewUsage computes usage for an output of outBytes produced from a
// width x height source of srcBytes. BytesSaved is never negative.
func NewUsage(width, height int, srcBytes, outBytes int64, computeMS int64) Usage {
	return Usage{
		PixelsProcessed: int64(width) * int64(height),
		BytesSaved:      max(0, srcBytes-outBytes),
		ComputeTimeMS:   computeMS,
	}
}
