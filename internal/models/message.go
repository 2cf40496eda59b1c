package models

import "time"

// Message acknowledgment levels. Monotonic: the receipt reconciler only ever
// raises the level, never lowers it.
const (
	AckNone      = 0
	AckSent      = 1
	AckDelivered = 2
	AckRead      = 3
	AckPlayed    = 4
)

// Message is one persisted conversation message. TransportID is unique per
// transport; AltID carries the secondary identifier scheme some receipt
// sources reference messages by.
type Message struct {
	ID          int64       `json:"id"`
	TransportID string      `json:"transportId"`
	AltID       string      `json:"altId,omitempty"`
	TicketID    int64       `json:"ticketId"`
	ContactID   int64       `json:"contactId"`
	Body        string      `json:"body"`
	Type        MessageType `json:"type"`
	MediaRef    string      `json:"mediaRef,omitempty"`
	QuotedID    string      `json:"quotedId,omitempty"`
	FromMe      bool        `json:"fromMe"`
	Ack         int         `json:"ack"`
	Timestamp   time.Time   `json:"timestamp"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// MessageProjection is the denormalized message+ticket+contact view emitted
// to the realtime notifier whenever an ack level changes.
type MessageProjection struct {
	Message Message `json:"message"`
	Ticket  Ticket  `json:"ticket"`
	Contact Contact `json:"contact"`
}
