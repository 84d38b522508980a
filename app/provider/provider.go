package provider

import "context"

// Message is an outgoing email with exactly one of HTML/Text set.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type EmailProvider interface {
	Send(ctx context.Context, msg Message) error
}
