package notifier

import (
	"context"

	"github.com/systechdigital/redemption-platform/pkg/common/logger"
)

// LogChannel writes notifications to the application log instead of
// sending them. Used in development and as a fallback when SMTP is not
// configured.
type LogChannel struct{}

func NewLogChannel() *LogChannel {
	return &LogChannel{}
}

func (c *LogChannel) Name() string {
	return "log"
}

func (c *LogChannel) Deliver(ctx context.Context, to, subject, body string) error {
	logger.Log.WithFields(map[string]interface{}{
		"to":      to,
		"subject": subject,
	}).Info("notification (log channel)")
	return nil
}
