package service

import (
	"context"
	"testing"

	"ticketflow/internal/models"
	"ticketflow/internal/retry"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptWorkerHandlesStatusDelivery(t *testing.T) {
	store := newFakeStore()
	store.seedMessage("out-1", "", 1, 1, models.AckNone)
	receipts := NewReceiptService(store, nil, testLogger())
	worker := NewReceiptWorker("amqp://unused", "receipts", receipts, retry.NewBackoff(retry.DefaultBackoffConfig()), testLogger())

	worker.handleDelivery(context.Background(), amqp091.Delivery{
		Body: []byte(`{"status":{"messageId":"out-1","status":3}}`),
	})

	msg, err := store.GetMessageByAnyID(context.Background(), "out-1")
	require.NoError(t, err)
	assert.Equal(t, models.AckDelivered, msg.Ack)
}

func TestReceiptWorkerHandlesReceiptDelivery(t *testing.T) {
	store := newFakeStore()
	store.seedMessage("out-2", "alt-2", 1, 1, models.AckSent)
	receipts := NewReceiptService(store, nil, testLogger())
	worker := NewReceiptWorker("amqp://unused", "receipts", receipts, retry.NewBackoff(retry.DefaultBackoffConfig()), testLogger())

	worker.handleDelivery(context.Background(), amqp091.Delivery{
		Body: []byte(`{"receipt":{"altId":"alt-2","readTimestamp":1700000000}}`),
	})

	msg, err := store.GetMessageByAnyID(context.Background(), "alt-2")
	require.NoError(t, err)
	assert.Equal(t, models.AckRead, msg.Ack)
}

func TestReceiptWorkerDropsMalformedDelivery(t *testing.T) {
	store := newFakeStore()
	store.seedMessage("out-3", "", 1, 1, models.AckNone)
	receipts := NewReceiptService(store, nil, testLogger())
	worker := NewReceiptWorker("amqp://unused", "receipts", receipts, retry.NewBackoff(retry.DefaultBackoffConfig()), testLogger())

	worker.handleDelivery(context.Background(), amqp091.Delivery{
		Body: []byte(`{not json`),
	})

	msg, err := store.GetMessageByAnyID(context.Background(), "out-3")
	require.NoError(t, err)
	assert.Equal(t, models.AckNone, msg.Ack)
}

func TestReceiptWorkerDisabledWithoutBrokerURL(t *testing.T) {
	receipts := NewReceiptService(newFakeStore(), nil, testLogger())
	worker := NewReceiptWorker("", "receipts", receipts, retry.NewBackoff(retry.DefaultBackoffConfig()), testLogger())

	// Start is a no-op without a URL; Stop must not hang.
	worker.Start(context.Background())
	worker.Stop()
}
