package dto

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	ErrMissingFields    = errors.New("to and body are required")
	ErrInvalidRecipient = errors.New("to must be a valid email address")
	ErrSubjectTooLong   = errors.New("subject must be at most 200 characters")
	ErrBodyTooLong      = errors.New("body must be at most 10000 characters")
)

const maxSubjectLength = 200
const maxBodyLength = 10000

type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// FromEchoContext binds and normalizes a request from Echo.
func FromEchoContext(ctx echo.Context) (SendEmailRequest, error) {
	var req SendEmailRequest
	if err := ctx.Bind(&req); err != nil {
		return SendEmailRequest{}, err
	}
	req.normalize()
	return req, nil
}

// Validate checks required fields and format constraints. Subject is
// optional.
func (r *SendEmailRequest) Validate() error {
	if r.To == "" || r.Body == "" {
		return ErrMissingFields
	}
	if _, err := mail.ParseAddress(r.To); err != nil {
		return ErrInvalidRecipient
	}
	if len(r.Subject) > maxSubjectLength {
		return ErrSubjectTooLong
	}
	if len(r.Body) > maxBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// normalize trims whitespace for address and subject; the body is kept
// verbatim.
func (r *SendEmailRequest) normalize() {
	r.To = strings.TrimSpace(r.To)
	r.Subject = strings.TrimSpace(r.Subject)
}

// LogsQueryFromEchoContext reads page/limit query params with defaults;
// range clamping belongs to the repository.
func LogsQueryFromEchoContext(ctx echo.Context) (page int, limit int) {
	page, limit = 1, 10
	if raw := ctx.QueryParam("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page = n
		}
	}
	if raw := ctx.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	return page, limit
}
