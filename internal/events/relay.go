package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"ipasurvey/internal/model"
)

// MsgResponseSubmitted is the websocket message type for new submissions
const MsgResponseSubmitted = "response_submitted"

// Broadcaster pushes a message to everyone watching a test
type Broadcaster interface {
	BroadcastToTest(testID string, msgType string, payload interface{})
}

// SubmissionRelay forwards submission events to live websocket viewers
type SubmissionRelay struct {
	bus         *Bus
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewSubmissionRelay(bus *Bus, broadcaster Broadcaster, logger *slog.Logger) *SubmissionRelay {
	return &SubmissionRelay{
		bus:         bus,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled or the bus is closed
func (r *SubmissionRelay) Run(ctx context.Context) error {
	messages, err := r.bus.Subscribe(ctx, model.TopicResponseSubmitted)
	if err != nil {
		return err
	}

	for msg := range messages {
		var evt model.ResponseSubmittedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			r.logger.Warn("dropping malformed submission event", "messageId", msg.UUID, "error", err)
			msg.Ack()
			continue
		}
		r.broadcaster.BroadcastToTest(evt.TestID, MsgResponseSubmitted, evt)
		msg.Ack()
	}
	return nil
}
