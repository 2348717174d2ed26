package events

import (
	"context"
	"encoding/json"

	"github.com/proofdeck/proofdeck/internal/domain"
	"github.com/proofdeck/proofdeck/internal/infrastructure/contracts"
	"github.com/proofdeck/proofdeck/internal/infrastructure/messaging"
)

var routingKeys = map[domain.ActivityType]string{
	domain.ActivityAnnotationAdded:    contracts.EventAnnotationAdded,
	domain.ActivityAnnotationResolved: contracts.EventAnnotationResolved,
	domain.ActivityReplyAdded:         contracts.EventReplyAdded,
	domain.ActivityAnnotationStatus:   contracts.EventAnnotationStatus,
	domain.ActivityElementStatus:      contracts.EventElementStatus,
	domain.ActivityReviewStatus:       contracts.EventReviewStatus,
}

// ActivityPublisher pushes proofing activity onto the AMQP exchange for
// background consumers. This stream is observational: the realtime fan-out
// to connected clients goes through the broker, never through here.
type ActivityPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewActivityPublisher(rabbitmq *messaging.RabbitMQ) *ActivityPublisher {
	return &ActivityPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *ActivityPublisher) Publish(ctx context.Context, entry *domain.ActivityLog) error {
	routingKey, ok := routingKeys[entry.Type]
	if !ok {
		return nil // nothing downstream cares about this activity type
	}

	payload := messaging.ActivityEventData{
		Entry: *entry,
	}

	entryJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		ProjectID: entry.ProjectID,
		Data:      entryJSON,
	})
}
