package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/systechdigital/redemption-platform/pkg/common/logger"
)

// Channel delivers a rendered message to one recipient.
type Channel interface {
	Deliver(ctx context.Context, to, subject, body string) error
	Name() string
}

// Service renders templates and hands them to the configured channel,
// recording every attempt in the notification log when a log store is
// configured. It satisfies fulfillment.Notifier.
type Service struct {
	catalog Catalog
	channel Channel
	log     *LogRepository
}

func NewService(catalog Catalog, channel Channel, log *LogRepository) *Service {
	return &Service{catalog: catalog, channel: channel, log: log}
}

func (s *Service) Send(ctx context.Context, to string, template string, data map[string]interface{}) error {
	rendered, err := s.catalog.Render(template, data)
	if err != nil {
		return err
	}

	deliverErr := s.channel.Deliver(ctx, to, rendered.Subject, rendered.Body)

	if s.log != nil {
		entry := LogEntry{
			Recipient: to,
			Template:  template,
			Channel:   s.channel.Name(),
			Data:      data,
			SentAt:    time.Now().UTC(),
			Success:   deliverErr == nil,
		}
		if deliverErr != nil {
			entry.Error = deliverErr.Error()
		}
		if logErr := s.log.Record(ctx, entry); logErr != nil {
			logger.Log.WithError(logErr).Warn("failed to record notification log entry")
		}
	}

	if deliverErr != nil {
		return fmt.Errorf("delivering %q to %s: %w", template, to, deliverErr)
	}
	return nil
}
