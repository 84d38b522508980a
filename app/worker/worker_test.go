package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/lumapost/ms-go-mailer/app/entity"
	"github.com/lumapost/ms-go-mailer/app/queue"
)

type fakeGateway struct {
	errs  []error
	calls int
}

func (g *fakeGateway) Send(_ context.Context, _ string, _ string, _ string) error {
	g.calls++
	if len(g.errs) == 0 {
		return nil
	}
	err := g.errs[0]
	g.errs = g.errs[1:]
	return err
}

type statusUpdate struct {
	logID    string
	outcome  entity.Status
	attempts int
	errMsg   string
}

type fakeLogStore struct {
	changed bool
	err     error
	updates []statusUpdate
}

func (s *fakeLogStore) UpdateStatus(_ context.Context, logID string, outcome entity.Status, attempts int, errMsg string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.updates = append(s.updates, statusUpdate{logID, outcome, attempts, errMsg})
	return s.changed, nil
}

func sendJob(attempt int) queue.DeliveryJob {
	return queue.DeliveryJob{
		Kind:    queue.JobKindSend,
		LogID:   "log-1",
		To:      "a@b.com",
		Subject: "Hi",
		Body:    "<p>hello</p>",
		Attempt: attempt,
	}
}

func TestDeliveryWorkerIgnoresUnknownJobKind(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	store := &fakeLogStore{changed: true}
	w := NewDeliveryWorker(gw, store, 3)

	job := sendJob(0)
	job.Kind = "sms"
	if err := w.Process(context.Background(), job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if gw.calls != 0 || len(store.updates) != 0 {
		t.Fatal("unknown job kind must not touch gateway or store")
	}
}

func TestDeliveryWorkerSuccessFinalizesSent(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	store := &fakeLogStore{changed: true}
	w := NewDeliveryWorker(gw, store, 3)

	if err := w.Process(context.Background(), sendJob(0)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(store.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(store.updates))
	}
	got := store.updates[0]
	if got.outcome != entity.StatusSent || got.attempts != 1 || got.errMsg != "" {
		t.Fatalf("unexpected update: %+v", got)
	}
}

func TestDeliveryWorkerNonFinalFailureLeavesLogPending(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{errs: []error{errors.New("send failed")}}
	store := &fakeLogStore{changed: true}
	w := NewDeliveryWorker(gw, store, 3)

	err := w.Process(context.Background(), sendJob(0))
	if err == nil {
		t.Fatal("expected error to propagate for rescheduling")
	}
	if len(store.updates) != 0 {
		t.Fatalf("non-final failure must not update the log, got %+v", store.updates)
	}
}

func TestDeliveryWorkerFinalFailureRecordsFailed(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{errs: []error{errors.New("send failed")}}
	store := &fakeLogStore{changed: true}
	w := NewDeliveryWorker(gw, store, 3)

	err := w.Process(context.Background(), sendJob(2))
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if len(store.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(store.updates))
	}
	got := store.updates[0]
	if got.outcome != entity.StatusFailed || got.attempts != 3 {
		t.Fatalf("unexpected update: %+v", got)
	}
	if got.errMsg == "" {
		t.Fatal("expected error message to be recorded")
	}
}

func TestDeliveryWorkerAlreadyFinalizedIsBenign(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	store := &fakeLogStore{changed: false}
	w := NewDeliveryWorker(gw, store, 3)

	if err := w.Process(context.Background(), sendJob(1)); err != nil {
		t.Fatalf("expected benign no-op, got %v", err)
	}
}

func TestDeliveryWorkerSentUpdateErrorIsUnreconciled(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	store := &fakeLogStore{err: errors.New("db down")}
	w := NewDeliveryWorker(gw, store, 3)

	err := w.Process(context.Background(), sendJob(0))
	if err == nil {
		t.Fatal("expected update error to propagate")
	}
	if !errors.Is(err, queue.ErrUnreconciled) {
		t.Fatalf("expected ErrUnreconciled, got %v", err)
	}
}

func TestDeliveryWorkerFailedUpdateErrorIsUnreconciled(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{errs: []error{errors.New("send failed")}}
	store := &fakeLogStore{err: errors.New("db down")}
	w := NewDeliveryWorker(gw, store, 3)

	err := w.Process(context.Background(), sendJob(2))
	if err == nil {
		t.Fatal("expected update error to propagate")
	}
	if !errors.Is(err, queue.ErrUnreconciled) {
		t.Fatalf("expected ErrUnreconciled, got %v", err)
	}
}

// Two failed attempts then a success: the log finalizes SENT once with
// the full attempt total, the failures never touch it.
func TestDeliveryWorkerFailTwiceThenSucceed(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	store := &fakeLogStore{changed: true}
	w := NewDeliveryWorker(gw, store, 3)

	for attempt := 0; attempt < 2; attempt++ {
		if err := w.Process(context.Background(), sendJob(attempt)); err == nil {
			t.Fatalf("attempt %d: expected failure", attempt+1)
		}
	}
	if err := w.Process(context.Background(), sendJob(2)); err != nil {
		t.Fatalf("final attempt: %v", err)
	}

	if len(store.updates) != 1 {
		t.Fatalf("expected exactly 1 update, got %d", len(store.updates))
	}
	got := store.updates[0]
	if got.outcome != entity.StatusSent || got.attempts != 3 || got.errMsg != "" {
		t.Fatalf("unexpected final update: %+v", got)
	}
}

// All three attempts fail: only the last one finalizes, as FAILED with
// the last failure's detail.
func TestDeliveryWorkerAllAttemptsFail(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{errs: []error{
		errors.New("timeout"),
		errors.New("timeout"),
		errors.New("mailbox unavailable"),
	}}
	store := &fakeLogStore{changed: true}
	w := NewDeliveryWorker(gw, store, 3)

	for attempt := 0; attempt < 3; attempt++ {
		if err := w.Process(context.Background(), sendJob(attempt)); err == nil {
			t.Fatalf("attempt %d: expected failure", attempt+1)
		}
	}

	if len(store.updates) != 1 {
		t.Fatalf("expected exactly 1 update, got %d", len(store.updates))
	}
	got := store.updates[0]
	if got.outcome != entity.StatusFailed || got.attempts != 3 {
		t.Fatalf("unexpected final update: %+v", got)
	}
	if got.errMsg != "mailbox unavailable" {
		t.Fatalf("expected last failure detail, got %q", got.errMsg)
	}
}
