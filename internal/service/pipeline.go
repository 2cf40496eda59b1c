package service

import (
	"context"

	"ticketflow/internal/errors"
	"ticketflow/internal/models"

	"github.com/sirupsen/logrus"
)

// PipelineStore is the persistence surface of the ingestion pipeline itself;
// everything else goes through the collaborating services.
type PipelineStore interface {
	SaveMessage(ctx context.Context, msg *models.Message) (bool, error)
	GetLatestTicket(ctx context.Context, contactID int64, channelID string) (*models.Ticket, error)
}

// Pipeline drives one transport message event through dedup, normalization,
// contact and ticket resolution, persistence and routing. Events for the
// same conversation key are serialized; unrelated conversations proceed
// concurrently.
type Pipeline struct {
	dedup      *DedupFilter
	normalizer *Normalizer
	contacts   *ContactService
	tickets    *TicketService
	router     *Router
	registry   *ConnectionRegistry
	store      PipelineStore
	locks      *KeyedMutex
	notifier   MessageNotifier
	logger     *logrus.Logger
}

func NewPipeline(
	dedup *DedupFilter,
	normalizer *Normalizer,
	contacts *ContactService,
	tickets *TicketService,
	router *Router,
	registry *ConnectionRegistry,
	store PipelineStore,
	notifier MessageNotifier,
	logger *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		dedup:      dedup,
		normalizer: normalizer,
		contacts:   contacts,
		tickets:    tickets,
		router:     router,
		registry:   registry,
		store:      store,
		locks:      NewKeyedMutex(),
		notifier:   notifier,
		logger:     logger,
	}
}

// IngestMessage processes one raw message event end to end. Failures local
// to the message are logged and swallowed; only infrastructure errors
// propagate.
func (p *Pipeline) IngestMessage(ctx context.Context, event *models.TransportMessageEvent) error {
	if p.dedup.Seen(ctx, event.ID) {
		p.logger.WithField("message_id", event.ID).Debug("Dropping duplicate message event")
		return nil
	}

	envelope, err := p.normalizer.Normalize(event)
	if err != nil {
		// Unrecognized shapes drop the single message, the pipeline
		// continues with the next one.
		p.logger.WithError(err).WithField("message_id", event.ID).
			Error("Failed to normalize message event")
		return nil
	}

	conn := p.registry.Get(envelope.ChannelID)
	if conn == nil {
		p.logger.WithField("channel_id", envelope.ChannelID).
			Warn("Message event for unknown connection")
		return nil
	}

	// Serialize everything for one conversation key: ticket resolution,
	// persistence and routing all see a consistent ticket.
	key := envelope.TicketKey()
	p.locks.Lock(key)
	defer p.locks.Unlock(key)

	contact, err := p.contacts.Resolve(ctx, envelope)
	if err != nil {
		return err
	}

	// Rating replies to a just-closed ticket are consumed before the reopen
	// path can resurrect it.
	handled, err := p.router.HandleRatingReply(ctx, conn, contact, envelope)
	if err != nil {
		return err
	}
	if handled {
		return p.persistToLatest(ctx, contact, envelope)
	}

	ticket, err := p.tickets.FindOrCreate(ctx, contact, envelope, conn.FarewellMessage)
	if err != nil {
		return err
	}
	if ticket == nil {
		// Farewell echo on a closed ticket: keep the record, skip routing.
		return p.persistToLatest(ctx, contact, envelope)
	}

	created, err := p.persistMessage(ctx, ticket, contact, envelope)
	if err != nil {
		return err
	}
	if !created {
		p.logger.WithField("message_id", envelope.ID).Debug("Message already persisted, skipping routing")
		return nil
	}

	if err := p.tickets.RecordActivity(ctx, ticket, envelope); err != nil {
		p.logger.WithError(err).WithField("ticket_id", ticket.ID).
			Warn("Failed to record ticket activity")
	}

	if err := p.router.Route(ctx, conn, contact, ticket, envelope); err != nil {
		if errors.IsCode(err, errors.ErrCodeHandlerFailure) {
			p.logger.WithError(err).WithField("ticket_id", ticket.ID).
				Error("Handler failed while routing message")
			return nil
		}
		return err
	}
	return nil
}

func (p *Pipeline) persistMessage(ctx context.Context, ticket *models.Ticket, contact *models.Contact, envelope *models.MessageEnvelope) (bool, error) {
	msg := &models.Message{
		TransportID: envelope.ID,
		TicketID:    ticket.ID,
		ContactID:   contact.ID,
		Body:        envelope.Body,
		Type:        envelope.Type,
		MediaRef:    envelope.MediaRef,
		QuotedID:    envelope.QuotedID,
		FromMe:      envelope.FromMe,
		Timestamp:   envelope.Timestamp,
	}

	created, err := p.store.SaveMessage(ctx, msg)
	if err != nil {
		return false, err
	}
	if created && p.notifier != nil {
		p.notifier.EmitMessage("create", &models.MessageProjection{
			Message: *msg,
			Ticket:  *ticket,
			Contact: *contact,
		})
	}
	return created, nil
}

// persistToLatest attaches a message to the contact's most recent ticket
// without reopening or routing it.
func (p *Pipeline) persistToLatest(ctx context.Context, contact *models.Contact, envelope *models.MessageEnvelope) error {
	latest, err := p.store.GetLatestTicket(ctx, contact.ID, envelope.ChannelID)
	if err != nil {
		return err
	}
	if latest == nil {
		return nil
	}
	_, err = p.persistMessage(ctx, latest, contact, envelope)
	return err
}
