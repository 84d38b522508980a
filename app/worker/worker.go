package worker

import (
	"context"
	"fmt"

	"github.com/lumapost/ms-go-mailer/app/entity"
	"github.com/lumapost/ms-go-mailer/app/queue"
	"github.com/sirupsen/logrus"
)

// Gateway attempts one delivery; nil means the transport accepted the
// message.
type Gateway interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// LogStore finalizes an email log with a guarded conditional update.
type LogStore interface {
	UpdateStatus(ctx context.Context, logID string, outcome entity.Status, attempts int, errorMessage string) (bool, error)
}

// DeliveryWorker reconciles a job attempt's outcome into the log store.
// Non-final failures are returned to the queue untouched so its backoff
// reschedules them; the log stays PENDING until the outcome is final.
type DeliveryWorker struct {
	gateway     Gateway
	logs        LogStore
	maxAttempts int
}

// NewDeliveryWorker constructs the worker.
func NewDeliveryWorker(gateway Gateway, logs LogStore, maxAttempts int) *DeliveryWorker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &DeliveryWorker{gateway: gateway, logs: logs, maxAttempts: maxAttempts}
}

// Process handles one attempt of one job.
func (w *DeliveryWorker) Process(ctx context.Context, job queue.DeliveryJob) error {
	if job.Kind != queue.JobKindSend {
		return nil
	}

	attempts := job.Attempt + 1
	isLastAttempt := attempts >= w.maxAttempts
	log := logrus.WithFields(logrus.Fields{"log_id": job.LogID, "attempt": attempts})

	sendErr := w.gateway.Send(ctx, job.To, job.Subject, job.Body)
	if sendErr == nil {
		changed, err := w.logs.UpdateStatus(ctx, job.LogID, entity.StatusSent, attempts, "")
		if err != nil {
			// The send went out but the row could not be finalized. The
			// queue must redeliver rather than ack; the guarded update
			// keeps the eventual finalization idempotent.
			return fmt.Errorf("%w: mark log %s sent: %v", queue.ErrUnreconciled, job.LogID, err)
		}
		if !changed {
			log.Info("log already finalized, skipping")
			return nil
		}
		log.Info("email sent")
		return nil
	}

	if isLastAttempt {
		changed, err := w.logs.UpdateStatus(ctx, job.LogID, entity.StatusFailed, attempts, sendErr.Error())
		if err != nil {
			return fmt.Errorf("%w: mark log %s failed: %v (delivery error: %v)", queue.ErrUnreconciled, job.LogID, err, sendErr)
		}
		if changed {
			log.WithError(sendErr).Error("email failed on final attempt")
		} else {
			log.Info("log already finalized, skipping")
		}
	}

	return sendErr
}
