package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/hibiken/asynq"
)

const TypeTransformImage = "image:transform"

type TransformImagePayload struct {
	JobID       string                  `json:"job_id"`
	Kind        string                  `json:"kind"`
	FileName    string                  `json:"file_name"`
	WebhookURL  string                  `json:"webhook_url,omitempty"`
	Resize      *domain.ResizeRequest   `json:"resize,omitempty"`
	Compress    *domain.CompressRequest `json:"compress,omitempty"`
	RequestedAt time.Time               `json:"requested_at"`
}

// PayloadForJob builds the task payload for a stored job.
func PayloadForJob(job domain.Job) TransformImagePayload {
	return TransformImagePayload{
		JobID:       job.ID,
		Kind:        job.Kind,
		FileName:    job.FileName,
		WebhookURL:  job.WebhookURL,
		Resize:      job.Resize,
		Compress:    job.Compress,
		RequestedAt: time.Now().UTC(),
	}
}

func NewTransformImageTask(payload TransformImagePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal transform payload: %w", err)
	}
	return asynq.NewTask(TypeTransformImage, body), nil
}

func ParseTransformImagePayload(task *asynq.Task) (TransformImagePayload, error) {
	var payload TransformImagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return TransformImagePayload{}, fmt.Errorf("unmarshal transform payload: %w", err)
	}
	if payload.JobID == "" {
		return TransformImagePayload{}, fmt.Errorf("transform payload has no job_id")
	}
	return payload, nil
}
