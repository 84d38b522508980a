package gateway

import (
	"context"
	"fmt"
	"regexp"

	"github.com/lumapost/ms-go-mailer/app/provider"
	"github.com/sirupsen/logrus"
)

// Heuristic: any tag-like <x ...> sequence means HTML. Bodies with
// stray angle brackets can misclassify; that is accepted.
var htmlTagPattern = regexp.MustCompile(`(?is)</?[a-z].*>`)

// EmailGateway wraps the transport provider. It classifies the body as
// HTML or plain text, sets exactly one of the two on the outgoing
// message, and turns every transport failure (panics included) into a
// returned error.
type EmailGateway struct {
	provider provider.EmailProvider
}

// NewEmailGateway constructs a gateway around a transport provider.
func NewEmailGateway(p provider.EmailProvider) *EmailGateway {
	return &EmailGateway{provider: p}
}

// Send attempts one delivery. A nil return means the transport accepted
// the message.
func (g *EmailGateway) Send(ctx context.Context, to string, subject string, body string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()

	msg := provider.Message{To: to, Subject: subject}
	if IsHTML(body) {
		msg.HTML = body
	} else {
		msg.Text = body
	}

	if err := g.provider.Send(ctx, msg); err != nil {
		logrus.WithField("to", to).WithError(err).Warn("delivery attempt failed")
		return fmt.Errorf("deliver email: %w", err)
	}
	return nil
}

// IsHTML reports whether the body looks like HTML markup.
func IsHTML(body string) bool {
	return htmlTagPattern.MatchString(body)
}
