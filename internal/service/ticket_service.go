package service

import (
	"context"
	"fmt"

	"ticketflow/internal/models"

	"github.com/sirupsen/logrus"
)

// TicketStore is the persistence surface the ticket resolver needs.
type TicketStore interface {
	GetActiveTicket(ctx context.Context, contactID int64, channelID string) (*models.Ticket, error)
	GetLatestTicket(ctx context.Context, contactID int64, channelID string) (*models.Ticket, error)
	GetTicketByID(ctx context.Context, id int64) (*models.Ticket, error)
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	UpdateTicketStatus(ctx context.Context, ticketID int64, status models.TicketStatus) error
	UpdateTicketActivity(ctx context.Context, ticketID int64, lastMessage string, unreadDelta int) error
}

// TicketNotifier receives ticket lifecycle events for the realtime layer.
type TicketNotifier interface {
	EmitTicket(action string, ticket *models.Ticket)
}

// TicketService finds or creates the ticket owning a conversation and owns
// its status transitions. Callers serialize FindOrCreate per conversation
// key (the pipeline holds a keyed mutex across the whole ingest sequence);
// the partial unique index backs the same invariant in storage for anything
// that slips past.
type TicketService struct {
	store    TicketStore
	notifier TicketNotifier
	logger   *logrus.Logger
}

func NewTicketService(store TicketStore, notifier TicketNotifier, logger *logrus.Logger) *TicketService {
	return &TicketService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// FindOrCreate returns the active ticket for the contact, reopening a closed
// one or creating a fresh one as the state machine dictates. farewellTemplate
// is the connection's configured farewell: an inbound body exactly equal to
// it is treated as an echo and does not reopen a closed ticket.
func (s *TicketService) FindOrCreate(ctx context.Context, contact *models.Contact, envelope *models.MessageEnvelope, farewellTemplate string) (*models.Ticket, error) {
	ticket, err := s.store.GetActiveTicket(ctx, contact.ID, envelope.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active ticket: %w", err)
	}
	if ticket != nil {
		return ticket, nil
	}

	latest, err := s.store.GetLatestTicket(ctx, contact.ID, envelope.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up latest ticket: %w", err)
	}

	if latest != nil && latest.Status == models.TicketStatusClosed {
		// Farewell echo: the template bounced back at us, leave it closed.
		if farewellTemplate != "" && envelope.Body == farewellTemplate {
			return nil, nil
		}
		return s.reopen(ctx, latest)
	}

	status := models.TicketStatusPending
	if contact.IsGroup {
		status = models.TicketStatusGroup
	}

	// The creating message is counted by RecordActivity after it is
	// persisted, so the fresh ticket starts at zero unread.
	ticket = &models.Ticket{
		ContactID:   contact.ID,
		ChannelID:   envelope.ChannelID,
		Status:      status,
		LastMessage: envelope.Body,
	}
	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		// A racing creator on another shard key may have won; re-read once.
		existing, lookupErr := s.store.GetActiveTicket(ctx, contact.ID, envelope.ChannelID)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id":  ticket.ID,
		"contact_id": contact.ID,
		"channel_id": envelope.ChannelID,
		"status":     ticket.Status,
	}).Info("Created ticket")

	if s.notifier != nil {
		s.notifier.EmitTicket("update", ticket)
	}
	return ticket, nil
}

// reopen moves a closed ticket back to pending. Routing state from the
// previous life is deliberately kept; see amountUsedBotQueues handling in
// the router.
func (s *TicketService) reopen(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if err := s.store.UpdateTicketStatus(ctx, ticket.ID, models.TicketStatusPending); err != nil {
		return nil, fmt.Errorf("failed to reopen ticket %d: %w", ticket.ID, err)
	}
	ticket.Status = models.TicketStatusPending

	s.logger.WithField("ticket_id", ticket.ID).Info("Reopened ticket")
	if s.notifier != nil {
		s.notifier.EmitTicket("update", ticket)
	}
	return ticket, nil
}

// Close moves the ticket to its terminal state and notifies.
func (s *TicketService) Close(ctx context.Context, ticket *models.Ticket) error {
	if err := s.store.UpdateTicketStatus(ctx, ticket.ID, models.TicketStatusClosed); err != nil {
		return fmt.Errorf("failed to close ticket %d: %w", ticket.ID, err)
	}
	ticket.Status = models.TicketStatusClosed

	s.logger.WithField("ticket_id", ticket.ID).Info("Closed ticket")
	if s.notifier != nil {
		s.notifier.EmitTicket("update", ticket)
	}
	return nil
}

// SetStatus applies a non-terminal transition (lgpd gate, interruption,
// human claim observation) and notifies.
func (s *TicketService) SetStatus(ctx context.Context, ticket *models.Ticket, status models.TicketStatus) error {
	if err := s.store.UpdateTicketStatus(ctx, ticket.ID, status); err != nil {
		return fmt.Errorf("failed to set ticket %d status %s: %w", ticket.ID, status, err)
	}
	ticket.Status = status
	if s.notifier != nil {
		s.notifier.EmitTicket("update", ticket)
	}
	return nil
}

// RecordActivity refreshes the ticket's last-message preview after a message
// was persisted. Inbound messages bump the unread counter.
func (s *TicketService) RecordActivity(ctx context.Context, ticket *models.Ticket, envelope *models.MessageEnvelope) error {
	delta := 1
	if envelope.FromMe {
		delta = 0
	}
	if err := s.store.UpdateTicketActivity(ctx, ticket.ID, envelope.Body, delta); err != nil {
		return err
	}
	ticket.LastMessage = envelope.Body
	ticket.UnreadMessages += delta
	return nil
}
