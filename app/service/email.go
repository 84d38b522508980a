package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumapost/ms-go-mailer/app/entity"
	"github.com/lumapost/ms-go-mailer/app/queue"
	"github.com/lumapost/ms-go-mailer/app/repository"
	"github.com/sirupsen/logrus"
)

// ErrSubmission marks a failure to hand the delivery job to the queue.
var ErrSubmission = errors.New("failed to submit delivery job")

// Publisher submits a delivery job to the queue.
type Publisher interface {
	Enqueue(ctx context.Context, job queue.DeliveryJob) error
}

type EmailService struct {
	logs     *repository.EmailLogRepository
	producer Publisher
}

// NewEmailService builds the email service with dependencies.
func NewEmailService(logs *repository.EmailLogRepository, producer Publisher) *EmailService {
	return &EmailService{logs: logs, producer: producer}
}

// Submit persists a PENDING log and enqueues its delivery job. If the
// queue rejects the submission the log is compensated to FAILED before
// the error is surfaced, so no log is left PENDING without a live job.
func (s *EmailService) Submit(ctx context.Context, to string, subject string, body string) (*entity.EmailLog, error) {
	log, err := s.logs.Create(ctx, to, subject, body)
	if err != nil {
		return nil, fmt.Errorf("create email log: %w", err)
	}

	job := queue.DeliveryJob{
		Kind:    queue.JobKindSend,
		LogID:   log.ID,
		To:      to,
		Subject: subject,
		Body:    body,
	}
	if err := s.producer.Enqueue(ctx, job); err != nil {
		reason := fmt.Sprintf("queue submission failed: %v", err)
		if _, uerr := s.logs.UpdateStatus(ctx, log.ID, entity.StatusFailed, 1, reason); uerr != nil {
			logrus.WithField("log_id", log.ID).WithError(uerr).Error("compensating status update failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	return log, nil
}

// GetLogs returns one page of logs with totals and today's counters.
func (s *EmailService) GetLogs(ctx context.Context, page int, limit int) (*repository.LogPage, error) {
	return s.logs.List(ctx, page, limit)
}
