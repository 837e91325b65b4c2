package messaging

import (
	"fmt"
	"time"

	"github.com/google/wire"
	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/logging/logger"
	"github.com/ncobase/askflow/messaging/kafka"
	"github.com/ncobase/askflow/messaging/rabbitmq"
)

// ProviderSet is the wire provider set for the messaging package.
var ProviderSet = wire.NewSet(ProvidePublisher, ProvideNotifier)

// NewPublisher builds the publisher named by cfg.Provider.
func NewPublisher(cfg *config.Messaging, log *logger.Logger) (Publisher, error) {
	if cfg == nil {
		return NewLogPublisher(log), nil
	}
	switch cfg.Provider {
	case "", config.MessagingNone:
		return NewLogPublisher(log), nil
	case config.MessagingKafka:
		return kafka.New(cfg)
	case config.MessagingRabbitMQ:
		return rabbitmq.New(cfg)
	default:
		return nil, fmt.Errorf("messaging: unsupported provider %q", cfg.Provider)
	}
}

// ProvidePublisher provides the configured Publisher.
func ProvidePublisher(cfg *config.Messaging, log *logger.Logger) (Publisher, error) {
	return NewPublisher(cfg, log)
}

// ProvideNotifier provides the job observer that forwards events; the
// cleanup flushes pending events and closes the publisher.
func ProvideNotifier(pub Publisher, cfg *config.Messaging, log *logger.Logger) (*Notifier, func()) {
	topic, timeout := "askflow.jobs", time.Duration(0)
	if cfg != nil {
		timeout = cfg.PublishTimeout
		if cfg.Topic != "" {
			topic = cfg.Topic
		}
	}
	n := NewNotifier(pub, topic, timeout, 0, log)
	return n, func() { _ = n.Close() }
}
