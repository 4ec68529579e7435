package service

import (
	"context"
	"encoding/json"
	"fmt"

	"qnagen-be/internal/dto"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/pkg/events"
	natspkg "qnagen-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const consumerModule = "LedgerConsumer"

// EventSubscriber is satisfied by pkg/nats.Subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler natspkg.EventHandler) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService keeps cached workspace snapshots in step with the ledger.
// Top-ups handled by this process arrive on the in-process bus; ledger
// events from other instances arrive over NATS.
type consumerService struct {
	bus        message.Subscriber
	topicName  string
	events     EventSubscriber
	generation IGenerationService
	logger     logger.ILogger
}

func NewConsumerService(
	bus message.Subscriber,
	topicName string,
	events EventSubscriber,
	generation IGenerationService,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		bus:        bus,
		topicName:  topicName,
		events:     events,
		generation: generation,
		logger:     logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.bus.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	if cs.events != nil {
		// Ephemeral: every instance needs every ledger change.
		if err := cs.events.Subscribe(ctx, natspkg.SubjectPrefix+">", "", cs.handleEvent); err != nil {
			return err
		}
	}
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.LedgerChangedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if err := cs.generation.RefreshUser(ctx, payload.UserId); err != nil {
		cs.logger.Warn(consumerModule, "Snapshot refresh failed", map[string]interface{}{
			"user_id": payload.UserId, "reason": payload.Reason, "error": err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

func (cs *consumerService) handleEvent(ctx context.Context, evt events.Event) error {
	switch evt.EventType() {
	case events.CreditGranted, events.CreditRefunded, events.SubscriptionActivated:
	default:
		// Debits are applied to the snapshot by the workspace that made them.
		return nil
	}

	raw, ok := evt.Payload()["user_id"].(string)
	if !ok {
		return nil
	}
	userId, err := uuid.Parse(raw)
	if err != nil {
		cs.logger.Warn(consumerModule, "Event carries a malformed user id", map[string]interface{}{
			"event": evt.EventType(), "user_id": raw,
		})
		return nil
	}
	if err := cs.generation.RefreshUser(ctx, userId); err != nil {
		return fmt.Errorf("refresh %s: %w", userId, err)
	}
	return nil
}
