package provider

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPProvider struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPProvider builds a provider that sends via an SMTP relay.
// secure forces implicit TLS on the connection.
func NewSMTPProvider(host string, port int, user string, pass string, secure bool, from string) *SMTPProvider {
	d := gomail.NewDialer(host, port, user, pass)
	d.SSL = secure
	return &SMTPProvider{dialer: d, from: from}
}

// Send dials the relay and submits a single message. Retry is the
// queue's job, not the transport's.
func (p *SMTPProvider) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient is required")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", p.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	if err := p.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s:%d: %w", p.dialer.Host, p.dialer.Port, err)
	}
	return nil
}
