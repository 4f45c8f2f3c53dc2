package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/DarkIsCool10/UniEventos/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock EventStore ---

type mockEventStore struct {
	upsertFn func(ctx context.Context, event *models.Event) error
	deleteFn func(ctx context.Context, eventID uint) error
}

func (m *mockEventStore) Upsert(ctx context.Context, event *models.Event) error {
	return m.upsertFn(ctx, event)
}
func (m *mockEventStore) Delete(ctx context.Context, eventID uint) error {
	return m.deleteFn(ctx, eventID)
}

// --- Fake acknowledger ---

type ackRecorder struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}
func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}
func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func delivery(ack *ackRecorder, key, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, RoutingKey: key, Body: []byte(body)}
}

const createdBody = `{
	"id": 10,
	"name": "Festival Estereo Picnic",
	"city": "Bogota",
	"starts_at": "2026-03-20T18:00:00Z",
	"localities": [
		{"name": "VIP", "capacity": 100, "unit_price": "350000.00"},
		{"name": "General", "capacity": 2000, "unit_price": 120000}
	]
}`

func TestHandleMessage_Created(t *testing.T) {
	var got *models.Event
	store := &mockEventStore{
		upsertFn: func(ctx context.Context, event *models.Event) error {
			got = event
			return nil
		},
	}
	ack := &ackRecorder{}

	NewEventConsumer(store, zap.NewNop()).handleMessage(delivery(ack, RoutingEventCreated, createdBody))

	assert.True(t, ack.acked)
	require.NotNil(t, got)
	assert.Equal(t, uint(10), got.ID)
	require.Len(t, got.Localities, 2)
	assert.Equal(t, "120000.00", got.Localities[1].UnitPrice.StringFixed(2))
}

func TestHandleMessage_Deleted(t *testing.T) {
	var deleted uint
	store := &mockEventStore{
		deleteFn: func(ctx context.Context, eventID uint) error {
			deleted = eventID
			return nil
		},
	}
	ack := &ackRecorder{}

	NewEventConsumer(store, zap.NewNop()).handleMessage(delivery(ack, RoutingEventDeleted, `{"id": 10}`))

	assert.True(t, ack.acked)
	assert.Equal(t, uint(10), deleted)
}

func TestHandleMessage_MalformedIsDropped(t *testing.T) {
	tests := []struct {
		name string
		key  string
		body string
	}{
		{"bad json", RoutingEventCreated, `{"id":`},
		{"missing id", RoutingEventUpdated, `{"name":"x"}`},
		{"negative capacity", RoutingEventUpdated, `{"id":1,"localities":[{"name":"VIP","capacity":-1,"unit_price":"1"}]}`},
		{"unknown routing key", "event.archived", `{"id":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &ackRecorder{}

			NewEventConsumer(&mockEventStore{}, zap.NewNop()).handleMessage(delivery(ack, tt.key, tt.body))

			assert.False(t, ack.acked)
			assert.True(t, ack.nacked)
			assert.False(t, ack.requeued)
		})
	}
}

func TestHandleMessage_StorageErrorRequeues(t *testing.T) {
	store := &mockEventStore{
		upsertFn: func(ctx context.Context, event *models.Event) error {
			return errors.New("db connection failed")
		},
	}
	ack := &ackRecorder{}

	NewEventConsumer(store, zap.NewNop()).handleMessage(delivery(ack, RoutingEventUpdated, createdBody))

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeued)
}

func TestStart_DrainsChannel(t *testing.T) {
	synced := make(chan uint, 2)
	store := &mockEventStore{
		upsertFn: func(ctx context.Context, event *models.Event) error {
			synced <- event.ID
			return nil
		},
	}
	msgs := make(chan amqp.Delivery, 2)
	msgs <- delivery(&ackRecorder{}, RoutingEventCreated, `{"id": 1}`)
	msgs <- delivery(&ackRecorder{}, RoutingEventCreated, `{"id": 2}`)
	close(msgs)

	NewEventConsumer(store, zap.NewNop()).Start(msgs)

	assert.Equal(t, uint(1), <-synced)
	assert.Equal(t, uint(2), <-synced)
}
