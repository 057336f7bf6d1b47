package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

const taskTimeout = 3 * time.Minute

type Client struct {
	client   *asynq.Client
	queue    string
	maxRetry int
}

func NewClient(redisOpt asynq.RedisClientOpt, queueName string, maxRetry int) *Client {
	return &Client{
		client:   asynq.NewClient(redisOpt),
		queue:    queueName,
		maxRetry: maxRetry,
	}
}

// EnqueueTransformImage enqueues the job under its own ID so a job is never
// queued twice.
func (c *Client) EnqueueTransformImage(ctx context.Context, payload TransformImagePayload) (*asynq.TaskInfo, error) {
	task, err := NewTransformImageTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(
		ctx,
		task,
		asynq.Queue(c.queue),
		asynq.TaskID(payload.JobID),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(taskTimeout),
	)
}

func (c *Client) Close() error {
	return c.client.Close()
}
