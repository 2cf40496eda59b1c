package models

import "time"

// TicketStatus is the lifecycle state of a conversation session.
type TicketStatus string

const (
	TicketStatusPending     TicketStatus = "pending"
	TicketStatusOpen        TicketStatus = "open"
	TicketStatusClosed      TicketStatus = "closed"
	TicketStatusGroup       TicketStatus = "group"
	TicketStatusLGPD        TicketStatus = "lgpd"
	TicketStatusInterrupted TicketStatus = "interrupted"
)

// Ticket is the persisted conversation session between one contact and one
// channel. At most one non-closed ticket exists per (contact, channel); the
// ticket service enforces this with a per-key critical section backed by a
// partial unique index.
type Ticket struct {
	ID                  int64        `json:"id"`
	ContactID           int64        `json:"contactId"`
	ChannelID           string       `json:"channelId"`
	Status              TicketStatus `json:"status"`
	QueueID             *int64       `json:"queueId"`
	UserID              *int64       `json:"userId"`
	UsesIntegration     bool         `json:"usesIntegration"`
	IntegrationID       *int64       `json:"integrationId"`
	FlowCursor          string       `json:"flowCursor"`
	IsOutOfHour         bool         `json:"isOutOfHour"`
	AmountUsedBotQueues int          `json:"amountUsedBotQueues"`
	UnreadMessages      int          `json:"unreadMessages"`
	LastMessage         string       `json:"lastMessage"`
	Rated               bool         `json:"rated"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// IsActive reports whether the ticket still owns its conversation key.
func (t *Ticket) IsActive() bool {
	return t.Status != TicketStatusClosed
}

// Unassigned reports whether neither a human agent nor a queue owns the
// ticket yet, i.e. automation is still allowed to claim it.
func (t *Ticket) Unassigned() bool {
	return t.UserID == nil && t.QueueID == nil
}

// TicketTracking is the 1:1 companion row of a non-terminal ticket. ChatbotAt
// marks when automated handling last touched the ticket and anchors cooldown
// windows; MenuAt marks that the queue menu actually went out, so a reply can
// be read as a selection; LGPDAcceptedAt records that the consent gate was
// passed.
type TicketTracking struct {
	TicketID       int64      `json:"ticketId"`
	QueueID        *int64     `json:"queueId"`
	ChatbotAt      *time.Time `json:"chatbotAt"`
	MenuAt         *time.Time `json:"menuAt"`
	LGPDAcceptedAt *time.Time `json:"lgpdAcceptedAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// AuditLog records which routing rule fired for a ticket.
type AuditLog struct {
	ID        string    `json:"id"`
	TicketID  int64     `json:"ticketId"`
	Rule      string    `json:"rule"`
	QueueID   *int64    `json:"queueId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TicketRating stores the NPS score a contact gave after closure.
type TicketRating struct {
	TicketID  int64     `json:"ticketId"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}
