package integration_test

import (
	"context"
	"testing"
	"time"

	"ticketflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptsAdvanceAckThroughTheLifecycle(t *testing.T) {
	env := newTestEnvironment(t, supportConnection())
	ctx := context.Background()

	const customer = "5511444440000@c.us"

	env.Say(t, "main", customer, "hello")
	env.WaitMenus(t, 1)
	ticket := env.ActiveTicket(t, "main", customer)
	require.NotNil(t, ticket)

	// Seed the outbound reply whose receipts will arrive next.
	outbound := &models.Message{
		TransportID: "out-1",
		AltID:       "alt-out-1",
		TicketID:    ticket.ID,
		ContactID:   ticket.ContactID,
		Body:        "You reached Suporte.",
		Type:        models.MessageTypeText,
		FromMe:      true,
		Timestamp:   time.Now().UTC(),
	}
	created, err := env.DB.SaveMessage(ctx, outbound)
	require.NoError(t, err)
	require.True(t, created)

	changed, err := env.Receipts.ApplyStatusEvent(ctx, &models.TransportStatusEvent{
		MessageID: "out-1",
		Status:    models.StatusCodeDelivered,
	})
	require.NoError(t, err)
	assert.True(t, changed)

	msg, err := env.DB.GetMessageByAnyID(ctx, "out-1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, models.AckDelivered, msg.Ack)

	// A per-recipient receipt addressed by the alternate id lifts the level
	// to read.
	readAt := time.Now().Unix()
	changed, err = env.Receipts.ApplyReceiptEvent(ctx, &models.TransportReceiptEvent{
		AltID:         "alt-out-1",
		ReadTimestamp: &readAt,
	})
	require.NoError(t, err)
	assert.True(t, changed)

	// A late, lower-stage status event must not regress the level.
	changed, err = env.Receipts.ApplyStatusEvent(ctx, &models.TransportStatusEvent{
		MessageID: "out-1",
		Status:    models.StatusCodeServerAck,
	})
	require.NoError(t, err)
	assert.False(t, changed)

	msg, err = env.DB.GetMessageByAnyID(ctx, "alt-out-1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, models.AckRead, msg.Ack)
}
