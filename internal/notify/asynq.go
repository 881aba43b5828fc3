package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

// TaskTypeInquiryEvent is the asynq task type consumed by the mailer.
const TaskTypeInquiryEvent = "inquiry:event"

// Enqueuer is the subset of *asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqNotifier publishes events as asynq tasks to Redis.
type AsynqNotifier struct {
	client   Enqueuer
	queue    string
	maxRetry int
}

// NewAsynqNotifier creates an AsynqNotifier. An empty queue means "default".
func NewAsynqNotifier(client Enqueuer, queue string, maxRetry int) *AsynqNotifier {
	if queue == "" {
		queue = "default"
	}
	return &AsynqNotifier{client: client, queue: queue, maxRetry: maxRetry}
}

// NewAsynqClient connects an asynq client to the Redis at redisURL.
func NewAsynqClient(redisURL string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return asynq.NewClient(opt), nil
}

// taskPayload is the wire form consumed by the mailer.
type taskPayload struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	InquiryID  string         `json:"inquiry_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func (n *AsynqNotifier) Notify(ctx context.Context, e domain.Event) error {
	p := taskPayload{
		EventID:    e.ID.String(),
		Type:       string(e.Type),
		InquiryID:  e.InquiryID.String(),
		Payload:    e.Payload,
		OccurredAt: e.OccurredAt,
	}
	if e.ActorID != uuid.Nil {
		p.ActorID = e.ActorID.String()
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("asynq: marshal event %s: %w", e.ID, err)
	}

	opts := []asynq.Option{
		asynq.Queue(n.queue),
		// Task id dedupes relay retries of the same outbox row.
		asynq.TaskID(e.ID.String()),
	}
	if n.maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(n.maxRetry))
	}

	_, err = n.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeInquiryEvent, body), opts...)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("asynq: enqueue event %s: %w", e.ID, err)
	}
	return nil
}
