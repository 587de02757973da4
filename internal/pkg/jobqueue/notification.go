package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
)

// Enqueuer accepts jobs. *Queue satisfies it.
type Enqueuer interface {
	EnqueueJobWithRetries(ctx context.Context, jobType JobType, payload map[string]interface{}, maxRetries int) (*Job, error)
}

// NotificationDispatcher hands notifications to the Redis queue.
// Jobs are fire-once: a failed delivery is logged and counted, never retried.
type NotificationDispatcher struct {
	queue Enqueuer
}

func NewNotificationDispatcher(queue Enqueuer) *NotificationDispatcher {
	return &NotificationDispatcher{queue: queue}
}

// Dispatch enqueues msg. An error means the message was not queued.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, msg notify.Message) error {
	payload, err := NotificationJobPayload{Message: msg}.ToMap()
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	job, err := d.queue.EnqueueJobWithRetries(ctx, JobTypeNotification, payload, 0)
	if err != nil {
		return err
	}
	log.Debugf("[JobQueue] queued %s notification as job %s", msg.Kind, job.ID)
	return nil
}

// NotificationHandler delivers queued notifications through n
func NotificationHandler(n notify.Notifier) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := NotificationJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("decode notification job %s: %w", job.ID, err)
		}
		id, err := notify.Deliver(ctx, n, payload.Message)
		if err != nil {
			return err
		}
		log.Infof("[JobQueue] delivered %s notification to %s (id=%s)", payload.Message.Kind, payload.Message.Recipient(), id)
		return nil
	}
}
