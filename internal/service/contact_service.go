package service

import (
	"context"
	"fmt"

	"ticketflow/internal/models"
	"ticketflow/internal/privacy"

	"github.com/sirupsen/logrus"
)

// ContactStore is the persistence surface the contact resolver needs.
type ContactStore interface {
	UpsertContact(ctx context.Context, contact *models.Contact) error
	GetContactByRemoteID(ctx context.Context, remoteID, channelID string) (*models.Contact, error)
}

// ContactService maps sender identifiers to contact records, creating them
// on first sighting. Resolution is an upsert keyed on the unique identifier,
// so concurrent sightings of the same sender cannot create duplicates.
type ContactService struct {
	store  ContactStore
	logger *logrus.Logger
}

func NewContactService(store ContactStore, logger *logrus.Logger) *ContactService {
	return &ContactService{
		store:  store,
		logger: logger,
	}
}

// Resolve returns the contact for an envelope's sender, creating or
// refreshing it as needed.
func (s *ContactService) Resolve(ctx context.Context, envelope *models.MessageEnvelope) (*models.Contact, error) {
	remoteID := models.NormalizeRemoteID(envelope.SenderID)
	if remoteID == "" {
		return nil, fmt.Errorf("empty sender identifier on message %s", envelope.ID)
	}

	contact := &models.Contact{
		RemoteID:     remoteID,
		ChannelID:    envelope.ChannelID,
		DisplayName:  envelope.PushName,
		IsGroup:      models.IsGroupIdentifier(remoteID),
		AcceptsAudio: true,
	}

	if err := s.store.UpsertContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to resolve contact %s: %w", remoteID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"contact_id": contact.ID,
		"remote_id":  privacy.MaskRemoteID(contact.RemoteID),
		"channel_id": contact.ChannelID,
		"is_group":   contact.IsGroup,
	}).Debug("Resolved contact")

	return contact, nil
}
