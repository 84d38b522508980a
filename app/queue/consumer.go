package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Processor handles one dispatched job attempt. A returned error tells
// the queue the attempt failed and retry scheduling should apply.
type Processor interface {
	Process(ctx context.Context, job DeliveryJob) error
}

type EmailConsumer struct {
	client          *redis.Client
	processor       Processor
	consumerName    string
	retry           RetryConfig
	completedMaxLen int64
	failedMaxLen    int64
}

// NewEmailConsumer constructs a Redis stream consumer that dispatches
// jobs to the processor and owns retry scheduling.
func NewEmailConsumer(client *redis.Client, processor Processor, consumerName string, retry RetryConfig, completedMaxLen int64, failedMaxLen int64) *EmailConsumer {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &EmailConsumer{
		client:          client,
		processor:       processor,
		consumerName:    consumerName,
		retry:           retry,
		completedMaxLen: completedMaxLen,
		failedMaxLen:    failedMaxLen,
	}
}

// Run starts the consumer loop and blocks until context cancellation.
func (c *EmailConsumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	log := logrus.WithField("consumer", c.consumerName)
	log.WithField("stream", StreamName).Info("consumer started")

	go c.retryPump(ctx)

	// First drain pending messages, then switch to reading new ones.
	startID := "0"
	for {
		select {
		case <-ctx.Done():
			log.Info("consumer shutting down")
			return nil
		default:
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ConsumerGroup,
			Consumer: c.consumerName,
			Streams:  []string{StreamName, startID},
			Count:    1,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				// No messages available within block timeout.
				if startID == "0" {
					// Finished draining pending messages, switch to new.
					startID = ">"
				}
				continue
			}
			if ctx.Err() != nil {
				log.Info("consumer shutting down")
				return nil
			}
			log.WithError(err).Error("xreadgroup failed")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			if len(stream.Messages) == 0 && startID == "0" {
				// No more pending messages, switch to reading new.
				startID = ">"
				continue
			}
			for _, msg := range stream.Messages {
				c.processMessage(ctx, msg)
			}
		}
	}
}

// processMessage dispatches one job attempt and acks the stream entry
// only once its outcome is in safe hands: re-queued on the retry set,
// recorded terminal, or delivered. An entry whose failure could not be
// handed off stays in the pending list for the startup drain.
func (c *EmailConsumer) processMessage(ctx context.Context, msg redis.XMessage) {
	job := jobFromValues(msg.Values)
	log := logrus.WithFields(logrus.Fields{
		"log_id":  job.LogID,
		"attempt": job.Attempt + 1,
		"message": msg.ID,
	})
	log.Info("processing delivery job")

	jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := c.processor.Process(jobCtx, job)
	cancel()

	if err != nil {
		if errors.Is(err, ErrUnreconciled) {
			log.WithError(err).Error("outcome not recorded, leaving message pending")
			return
		}
		if job.Attempt+1 >= c.retry.MaxAttempts {
			log.WithError(err).Error("delivery exhausted all attempts")
			if recErr := c.recordFailed(ctx, job, err); recErr != nil {
				log.WithError(recErr).Error("record failed job, leaving message pending")
				return
			}
		} else {
			delay := c.retry.Delay(job.Attempt)
			log.WithError(err).WithField("delay", delay).Warn("delivery failed, scheduling retry")
			if schedErr := c.scheduleRetry(ctx, job, delay); schedErr != nil {
				log.WithError(schedErr).Error("schedule retry, leaving message pending")
				return
			}
		}
	}

	if ackErr := c.client.XAck(ctx, StreamName, ConsumerGroup, msg.ID).Err(); ackErr != nil {
		log.WithError(ackErr).Error("xack failed")
	}
}

// scheduleRetry parks the next attempt on the retry set, due after the
// backoff delay.
func (c *EmailConsumer) scheduleRetry(ctx context.Context, job DeliveryJob, delay time.Duration) error {
	job.Attempt++
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal retry job %s: %w", job.LogID, err)
	}
	if err := c.client.ZAdd(ctx, RetrySet, redis.Z{
		Score:  float64(time.Now().Add(delay).UnixMilli()),
		Member: payload,
	}).Err(); err != nil {
		return fmt.Errorf("zadd retry job %s: %w", job.LogID, err)
	}
	return nil
}

// recordFailed keeps terminally failed jobs on a separate capped stream
// for diagnosis; it outlives the delivery stream's retention.
func (c *EmailConsumer) recordFailed(ctx context.Context, job DeliveryJob, cause error) error {
	values := jobValues(job)
	values["error"] = cause.Error()
	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: FailedStream,
		MaxLen: c.failedMaxLen,
		Approx: true,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("record failed job %s: %w", job.LogID, err)
	}
	return nil
}

// retryPump moves due retry-set members back onto the delivery stream.
func (c *EmailConsumer) retryPump(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pumpDue(ctx)
		}
	}
}

func (c *EmailConsumer) pumpDue(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := c.client.ZRangeByScore(ctx, RetrySet, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: 10,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			logrus.WithError(err).Error("read retry set")
		}
		return
	}

	for _, member := range members {
		var job DeliveryJob
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			logrus.WithError(err).Error("unmarshal retry job, dropping")
			_ = c.client.ZRem(ctx, RetrySet, member).Err()
			continue
		}
		if err := c.client.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamName,
			MaxLen: c.completedMaxLen,
			Approx: true,
			Values: jobValues(job),
		}).Err(); err != nil {
			logrus.WithField("log_id", job.LogID).WithError(err).Error("re-enqueue retry job")
			continue
		}
		if err := c.client.ZRem(ctx, RetrySet, member).Err(); err != nil {
			logrus.WithField("log_id", job.LogID).WithError(err).Error("zrem retry job")
		}
	}
}

// ensureGroup creates the stream and consumer group if missing.
func (c *EmailConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, StreamName, ConsumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}
