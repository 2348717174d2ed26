package events

import (
	"context"
	"encoding/json"

	"github.com/proofdeck/proofdeck/internal/domain"
	"github.com/proofdeck/proofdeck/internal/infrastructure/contracts"
	"github.com/proofdeck/proofdeck/internal/infrastructure/logging"
	"github.com/proofdeck/proofdeck/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

// activityConsumer drains the activity queue into the persistent activity
// log.
type activityConsumer struct {
	rabbitmq   *messaging.RabbitMQ
	repository domain.ActivityRepository
	logger     logging.Logger
}

func NewActivityConsumer(rabbitmq *messaging.RabbitMQ, repository domain.ActivityRepository, logger logging.Logger) *activityConsumer {
	return &activityConsumer{
		rabbitmq:   rabbitmq,
		repository: repository,
		logger:     logger,
	}
}

func (c *activityConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.ActivityQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			c.logger.Errorf("failed to unmarshal activity message: %v", err)
			return err
		}

		var payload messaging.ActivityEventData
		if err := json.Unmarshal(message.Data, &payload); err != nil {
			c.logger.Errorf("failed to unmarshal activity payload: %v", err)
			return err
		}

		if err := c.repository.Log(ctx, &payload.Entry); err != nil {
			c.logger.Error(logging.RabbitMQ, logging.ExternalService, "failed to persist activity entry", map[logging.ExtraKey]any{
				logging.ProjectID:    message.ProjectID,
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		return nil
	})
}
