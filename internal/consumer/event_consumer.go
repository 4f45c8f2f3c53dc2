package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DarkIsCool10/UniEventos/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	RoutingEventCreated = "event.created"
	RoutingEventUpdated = "event.updated"
	RoutingEventDeleted = "event.deleted"

	handleTimeout = 10 * time.Second
)

var errMalformed = errors.New("malformed event message")

// EventStore is the part of repository.EventRepository the consumer writes through.
type EventStore interface {
	Upsert(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, eventID uint) error
}

type EventConsumer struct {
	events EventStore
	logger *zap.Logger
}

func NewEventConsumer(events EventStore, logger *zap.Logger) *EventConsumer {
	return &EventConsumer{events: events, logger: logger}
}

// Start syncs events into the local catalog until msgs is closed.
func (ec *EventConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			ec.handleMessage(msg)
		}
		ec.logger.Info("delivery channel closed, stopping event consumer")
	}()
}

// handleMessage acks on success, drops malformed messages and requeues storage failures.
func (ec *EventConsumer) handleMessage(msg amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	log := ec.logger.With(zap.String("routing_key", msg.RoutingKey), zap.Uint64("delivery_tag", msg.DeliveryTag))

	err := ec.apply(ctx, msg)
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Error("ack failed", zap.Error(ackErr))
		}
	case errors.Is(err, errMalformed):
		log.Warn("dropping event message", zap.Error(err))
		_ = msg.Nack(false, false)
	default:
		log.Error("event sync failed, requeueing", zap.Error(err))
		_ = msg.Nack(false, true)
	}
}

func (ec *EventConsumer) apply(ctx context.Context, msg amqp.Delivery) error {
	var event models.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	if event.ID == 0 {
		return fmt.Errorf("%w: missing event id", errMalformed)
	}

	switch msg.RoutingKey {
	case RoutingEventCreated, RoutingEventUpdated:
		for _, loc := range event.Localities {
			if loc.Name == "" || loc.Capacity < 0 || loc.UnitPrice.IsNegative() {
				return fmt.Errorf("%w: invalid locality %q", errMalformed, loc.Name)
			}
		}
		if err := ec.events.Upsert(ctx, &event); err != nil {
			return err
		}
		ec.logger.Info("event synced", zap.Uint("event_id", event.ID), zap.Int("localities", len(event.Localities)))
	case RoutingEventDeleted:
		if err := ec.events.Delete(ctx, event.ID); err != nil {
			return err
		}
		ec.logger.Info("event localities removed", zap.Uint("event_id", event.ID))
	default:
		return fmt.Errorf("%w: unknown routing key %q", errMalformed, msg.RoutingKey)
	}
	return nil
}
