package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lumapost/ms-go-mailer/app/dto"
	"github.com/lumapost/ms-go-mailer/app/service"
)

type EmailController struct {
	emailService *service.EmailService
}

// NewEmailController constructs the HTTP email controller.
func NewEmailController(emailService *service.EmailService) *EmailController {
	return &EmailController{emailService: emailService}
}

// Send validates, persists, and enqueues an email send request.
func (c *EmailController) Send(ctx echo.Context) error {
	req, err := dto.FromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	log, err := c.emailService.Submit(ctx.Request().Context(), req.To, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, service.ErrSubmission) {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "failed to queue email"})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create email log"})
	}

	return ctx.JSON(http.StatusAccepted, map[string]string{
		"id":     log.ID,
		"status": string(log.Status),
	})
}

// Logs returns a page of email logs with totals and today's counters.
func (c *EmailController) Logs(ctx echo.Context) error {
	page, limit := dto.LogsQueryFromEchoContext(ctx)

	result, err := c.emailService.GetLogs(ctx.Request().Context(), page, limit)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read email logs"})
	}
	return ctx.JSON(http.StatusOK, result)
}
