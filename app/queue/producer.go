package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type EmailProducer struct {
	client          *redis.Client
	completedMaxLen int64
}

// NewEmailProducer constructs a Redis stream producer. completedMaxLen
// bounds how many delivered entries the stream retains.
func NewEmailProducer(client *redis.Client, completedMaxLen int64) *EmailProducer {
	return &EmailProducer{client: client, completedMaxLen: completedMaxLen}
}

// Enqueue submits a delivery job keyed by its log id. Resubmitting the
// same id while a job is live is a silent no-op: a SETNX dedup key
// guards the stream entry.
func (p *EmailProducer) Enqueue(ctx context.Context, job DeliveryJob) error {
	if job.LogID == "" {
		return fmt.Errorf("job log id is required")
	}
	if job.Kind == "" {
		job.Kind = JobKindSend
	}

	fresh, err := p.client.SetNX(ctx, dedupKeyPrefix+job.LogID, "1", dedupTTL).Result()
	if err != nil {
		return fmt.Errorf("dedup job %s: %w", job.LogID, err)
	}
	if !fresh {
		logrus.WithField("log_id", job.LogID).Info("job already enqueued, skipping")
		return nil
	}

	if _, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		MaxLen: p.completedMaxLen,
		Approx: true,
		Values: jobValues(job),
	}).Result(); err != nil {
		return fmt.Errorf("xadd to %s: %w", StreamName, err)
	}
	return nil
}

func jobValues(job DeliveryJob) map[string]interface{} {
	return map[string]interface{}{
		"kind":    job.Kind,
		"log_id":  job.LogID,
		"to":      job.To,
		"subject": job.Subject,
		"body":    job.Body,
		"attempt": strconv.Itoa(job.Attempt),
	}
}

func jobFromValues(values map[string]interface{}) DeliveryJob {
	var job DeliveryJob
	job.Kind, _ = values["kind"].(string)
	job.LogID, _ = values["log_id"].(string)
	job.To, _ = values["to"].(string)
	job.Subject, _ = values["subject"].(string)
	job.Body, _ = values["body"].(string)
	if raw, ok := values["attempt"].(string); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			job.Attempt = n
		}
	}
	return job
}
