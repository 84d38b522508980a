package entity

import "time"

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// EmailLog is the durable record of one requested delivery. A row is
// created PENDING and finalized at most once to SENT or FAILED; exactly
// one of SentAt/FailedAt is set once the matching terminal status holds.
type EmailLog struct {
	ID           string     `json:"id"`
	Recipient    string     `json:"to"`
	Subject      string     `json:"subject,omitempty"`
	Body         string     `json:"-"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	SentAt       *time.Time `json:"sentAt"`
	FailedAt     *time.Time `json:"failedAt"`
	AttemptCount int        `json:"attemptCount"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}
