package queue

import (
	"errors"
	"time"
)

// ErrUnreconciled marks an attempt whose outcome could not be recorded
// in the log store. The consumer must not ack such an entry: it stays
// pending so the startup drain redelivers it.
var ErrUnreconciled = errors.New("attempt outcome not reconciled")

const StreamName = "mailer:email:deliver"
const FailedStream = "mailer:email:deliver:failed"
const RetrySet = "mailer:email:deliver:retry"
const ConsumerGroup = "email-workers"

// JobKindSend is the only job kind this service processes today; the
// stream may carry other kinds later.
const JobKindSend = "send"

const dedupKeyPrefix = "mailer:email:job:"
const dedupTTL = 24 * time.Hour

// DeliveryJob is the queued unit of work. Its id is the owning log id,
// so at most one live job exists per log. Attempt counts dispatches
// already made before this one.
type DeliveryJob struct {
	Kind    string `json:"kind"`
	LogID   string `json:"log_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Attempt int    `json:"attempt"`
}

type RetryConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// Delay returns the backoff before retry number attempt+1: the base
// delay doubled for each retry already made.
func (c RetryConfig) Delay(attempt int) time.Duration {
	delay := c.BackoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}
