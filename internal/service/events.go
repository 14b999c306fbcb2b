package service

import (
	"context"

	"ipasurvey/internal/model"
)

// EventPublisher delivers domain events to the message bus (avoids import cycle)
type EventPublisher interface {
	PublishResponseSubmitted(ctx context.Context, evt model.ResponseSubmittedEvent) error
}
