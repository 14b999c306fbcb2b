package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ipasurvey/internal/model"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus fans domain events out to in-process subscribers and, when brokers
// are configured, to Kafka
type Bus struct {
	local  *gochannel.GoChannel
	remote message.Publisher
	logger *slog.Logger
}

// NewBus creates the event bus. An empty brokers list keeps it in-process.
func NewBus(logger *slog.Logger, brokers []string) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	b := &Bus{
		local:  gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger),
		logger: logger,
	}

	if len(brokers) > 0 {
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		b.remote = pub
		logger.Info("kafka publisher enabled", "brokers", brokers)
	}
	return b, nil
}

// PublishResponseSubmitted implements service.EventPublisher
func (b *Bus) PublishResponseSubmitted(ctx context.Context, evt model.ResponseSubmittedEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("test_id", evt.TestID)
	msg.SetContext(ctx)
	return b.publish(model.TopicResponseSubmitted, msg)
}

func (b *Bus) publish(topic string, msg *message.Message) error {
	if err := b.local.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s locally: %w", topic, err)
	}
	if b.remote != nil {
		if err := b.remote.Publish(topic, msg.Copy()); err != nil {
			return fmt.Errorf("failed to publish %s to kafka: %w", topic, err)
		}
	}
	return nil
}

// Subscribe returns in-process messages for topic until ctx is done
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.local.Subscribe(ctx, topic)
}

func (b *Bus) Close() error {
	var errs []error
	if b.remote != nil {
		errs = append(errs, b.remote.Close())
	}
	errs = append(errs, b.local.Close())
	return errors.Join(errs...)
}
