package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	JobStatusCreated    = "created"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"

	JobKindResize   = "resize"
	JobKindCompress = "compress"
)

type CreateJobRequest struct {
	FileName   string           `json:"fileName" validate:"required"`
	Kind       string           `json:"kind" validate:"required,oneof=resize compress"`
	Resize     *ResizeRequest   `json:"resize,omitempty" validate:"-"`
	Compress   *CompressRequest `json:"compress,omitempty" validate:"-"`
	WebhookURL string           `json:"webhookUrl,omitempty" validate:"omitempty,http_url"`
}

// Normalize validates the request and applies defaults to the transform
// matching Kind, creating it when absent.
func (r *CreateJobRequest) Normalize() error {
	r.FileName = strings.TrimSpace(r.FileName)
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	r.WebhookURL = strings.TrimSpace(r.WebhookURL)
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}

	switch r.Kind {
	case JobKindResize:
		if r.Resize == nil {
			return fmt.Errorf("%w: resize settings are required for kind=resize", ErrInvalidRequest)
		}
		r.Compress = nil
		return r.Resize.Normalize()
	default:
		if r.Compress == nil {
			r.Compress = &CompressRequest{}
		}
		r.Resize = nil
		return r.Compress.Normalize()
	}
}

type Job struct {
	ID         string           `json:"id"`
	Status     string           `json:"status"`
	Kind       string           `json:"kind"`
	FileName   string           `json:"fileName"`
	WebhookURL string           `json:"webhookUrl,omitempty"`
	Resize     *ResizeRequest   `json:"resize,omitempty"`
	Compress   *CompressRequest `json:"compress,omitempty"`
	Result     *JobResult       `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func (j Job) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

// JobResult describes the stored output of a finished job.
type JobResult struct {
	OutputKey           string  `json:"outputKey"`
	MimeType            string  `json:"mimeType"`
	Width               int     `json:"width"`
	Height              int     `json:"height"`
	OriginalSizeBytes   int64   `json:"originalSizeBytes"`
	CompressedSizeBytes int64   `json:"compressedSizeBytes"`
	CompressionRatio    float64 `json:"compressionRatio"`
	Label               string  `json:"label"`
	Usage
}
