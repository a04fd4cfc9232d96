package notifier

import (
	"context"

	"gopkg.in/gomail.v2"
)

// EmailChannel sends over SMTP. Deliver honors ctx cancellation by racing
// the dial-and-send against the context; gomail itself has no context
// support.
type EmailChannel struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailChannel(host string, port int, user, password, from string) *EmailChannel {
	return &EmailChannel{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (c *EmailChannel) Name() string {
	return "email"
}

func (c *EmailChannel) Deliver(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", c.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- c.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
