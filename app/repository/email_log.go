package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumapost/ms-go-mailer/app/entity"
)

// Reporting "today" is anchored to a fixed +06:00 offset, not server
// local time.
var reportingZone = time.FixedZone("UTC+06:00", 6*60*60)

type EmailLogRepository struct {
	db *sql.DB
}

// NewEmailLogRepository constructs a repository backed by MySQL.
func NewEmailLogRepository(db *sql.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

// Create inserts a new PENDING log row and returns it.
func (r *EmailLogRepository) Create(ctx context.Context, to string, subject string, body string) (*entity.EmailLog, error) {
	const query = `
		INSERT INTO email_logs (id, recipient, subject, body, status, created_at, attempt_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`
	log := &entity.EmailLog{
		ID:        uuid.NewString(),
		Recipient: to,
		Subject:   subject,
		Body:      body,
		Status:    entity.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	// An absent subject is stored as NULL, matching the column.
	subjectValue := sql.NullString{String: subject, Valid: subject != ""}
	if _, err := r.db.ExecContext(ctx, query, log.ID, log.Recipient, subjectValue, log.Body, log.Status, log.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert email log: %w", err)
	}
	return log, nil
}

// UpdateStatus finalizes a log with a single guarded statement: only a
// row still in PENDING is touched. attempts is added to attempt_count in
// the same statement, so the terminal row carries the full attempt
// total. Returns false when no PENDING row matched (already finalized or
// unknown id), which is a no-op, not an error.
func (r *EmailLogRepository) UpdateStatus(ctx context.Context, logID string, outcome entity.Status, attempts int, errorMessage string) (bool, error) {
	if !outcome.Terminal() {
		return false, fmt.Errorf("outcome must be SENT or FAILED, got %s", outcome)
	}
	if attempts < 1 {
		attempts = 1
	}

	var (
		res sql.Result
		err error
		now = time.Now().UTC()
	)
	if outcome == entity.StatusSent {
		const query = `
			UPDATE email_logs
			SET status = ?, sent_at = ?, attempt_count = attempt_count + ?
			WHERE id = ? AND status = ?
		`
		res, err = r.db.ExecContext(ctx, query, entity.StatusSent, now, attempts, logID, entity.StatusPending)
	} else {
		const query = `
			UPDATE email_logs
			SET status = ?, failed_at = ?, attempt_count = attempt_count + ?, error_message = ?
			WHERE id = ? AND status = ?
		`
		res, err = r.db.ExecContext(ctx, query, entity.StatusFailed, now, attempts, errorMessage, logID, entity.StatusPending)
	}
	if err != nil {
		return false, fmt.Errorf("update email log %s: %w", logID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for %s: %w", logID, err)
	}
	return affected > 0, nil
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type TodaySummary struct {
	TotalSentToday int `json:"totalSentToday"`
	Successful     int `json:"successful"`
	Failed         int `json:"failed"`
}

type LogPage struct {
	Pagination Pagination        `json:"pagination"`
	Today      TodaySummary      `json:"today"`
	Items      []entity.EmailLog `json:"items"`
}

// List returns one page of logs, newest first, together with the total
// row count and today's counters. Everything is read inside one
// read-only transaction so the page and the aggregates see the same
// snapshot.
func (r *EmailLogRepository) List(ctx context.Context, page int, limit int) (*LogPage, error) {
	page, limit = clampPage(page, limit)
	offset := (page - 1) * limit
	start, end := dayBounds(time.Now())

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const itemsQuery = `
		SELECT id, recipient, subject, status, created_at, sent_at, failed_at, attempt_count, error_message
		FROM email_logs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := tx.QueryContext(ctx, itemsQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list email logs: %w", err)
	}
	items, err := scanLogs(rows)
	if err != nil {
		return nil, err
	}

	result := &LogPage{
		Pagination: Pagination{Page: page, Limit: limit},
		Items:      items,
	}

	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_logs`).Scan(&result.Pagination.Total); err != nil {
		return nil, fmt.Errorf("count email logs: %w", err)
	}
	const createdQuery = `SELECT COUNT(*) FROM email_logs WHERE created_at BETWEEN ? AND ?`
	if err := tx.QueryRowContext(ctx, createdQuery, start, end).Scan(&result.Today.TotalSentToday); err != nil {
		return nil, fmt.Errorf("count created today: %w", err)
	}
	const sentQuery = `SELECT COUNT(*) FROM email_logs WHERE sent_at BETWEEN ? AND ?`
	if err := tx.QueryRowContext(ctx, sentQuery, start, end).Scan(&result.Today.Successful); err != nil {
		return nil, fmt.Errorf("count sent today: %w", err)
	}
	const failedQuery = `SELECT COUNT(*) FROM email_logs WHERE failed_at BETWEEN ? AND ?`
	if err := tx.QueryRowContext(ctx, failedQuery, start, end).Scan(&result.Today.Failed); err != nil {
		return nil, fmt.Errorf("count failed today: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit read tx: %w", err)
	}
	return result, nil
}

func scanLogs(rows *sql.Rows) ([]entity.EmailLog, error) {
	defer rows.Close()

	items := make([]entity.EmailLog, 0)
	for rows.Next() {
		var (
			log      entity.EmailLog
			subject  sql.NullString
			errorMsg sql.NullString
			sentAt   sql.NullTime
			failedAt sql.NullTime
		)
		if err := rows.Scan(&log.ID, &log.Recipient, &subject, &log.Status, &log.CreatedAt, &sentAt, &failedAt, &log.AttemptCount, &errorMsg); err != nil {
			return nil, fmt.Errorf("scan email log: %w", err)
		}
		log.Subject = subject.String
		log.ErrorMessage = errorMsg.String
		if sentAt.Valid {
			t := sentAt.Time
			log.SentAt = &t
		}
		if failedAt.Valid {
			t := failedAt.Time
			log.FailedAt = &t
		}
		items = append(items, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate email logs: %w", err)
	}
	return items, nil
}

func clampPage(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = 10
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// dayBounds returns the UTC instants bracketing the current calendar
// day in the reporting zone: local midnight through 23:59:59.999.
func dayBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(reportingZone)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, reportingZone)
	end := start.Add(24*time.Hour - time.Millisecond)
	return start.UTC(), end.UTC()
}
