package service

import (
	"context"

	"ticketflow/internal/errors"
	"ticketflow/internal/models"

	"github.com/sirupsen/logrus"
)

// ReceiptStore is the persistence surface the receipt reconciler needs.
type ReceiptStore interface {
	GetMessageByAnyID(ctx context.Context, id string) (*models.Message, error)
	UpdateMessageAck(ctx context.Context, messageID int64, level int) (bool, error)
	GetMessageProjection(ctx context.Context, messageID int64) (*models.MessageProjection, error)
}

// MessageNotifier receives message lifecycle events for the realtime layer.
type MessageNotifier interface {
	EmitMessage(action string, projection *models.MessageProjection)
}

// ReceiptService merges delivery/read/played receipts into a monotonic
// per-message ack level. Receipts arrive from several independent sources,
// duplicated and out of order; the max-merge in storage makes every apply
// idempotent and commutative.
type ReceiptService struct {
	store    ReceiptStore
	notifier MessageNotifier
	logger   *logrus.Logger
}

func NewReceiptService(store ReceiptStore, notifier MessageNotifier, logger *logrus.Logger) *ReceiptService {
	return &ReceiptService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// ApplyReceipt raises the ack level of the referenced message if the
// candidate beats the stored level. Returns whether state changed. Message
// resolution tries the transport id first and the secondary scheme after,
// since sources disagree on which one they reference.
func (s *ReceiptService) ApplyReceipt(ctx context.Context, messageID string, candidateLevel int) (bool, error) {
	if candidateLevel <= models.AckNone {
		return false, nil
	}

	msg, err := s.store.GetMessageByAnyID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg == nil {
		// Logged once per attempt, never retried.
		s.logger.WithField("message_id", messageID).Warn("Receipt references unknown message")
		return false, errors.NewReceiptResolution(messageID)
	}

	changed, err := s.store.UpdateMessageAck(ctx, msg.ID, candidateLevel)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	s.logger.WithFields(logrus.Fields{
		"message_id": messageID,
		"ack":        candidateLevel,
	}).Debug("Ack level advanced")

	if s.notifier != nil {
		projection, err := s.store.GetMessageProjection(ctx, msg.ID)
		if err != nil {
			s.logger.WithError(err).WithField("message_id", messageID).
				Warn("Failed to load projection after ack change")
		} else if projection != nil {
			s.notifier.EmitMessage("update", projection)
		}
	}

	return true, nil
}

// ApplyStatusEvent handles a numeric status-change event.
func (s *ReceiptService) ApplyStatusEvent(ctx context.Context, event *models.TransportStatusEvent) (bool, error) {
	level := models.AckLevelFromStatusCode(event.Status)
	if level == models.AckNone {
		return false, nil
	}
	return s.applyWithFallback(ctx, event.MessageID, event.AltID, level)
}

// ApplyReceiptEvent handles a per-recipient receipt carrying stage
// timestamps; the highest stage present wins.
func (s *ReceiptService) ApplyReceiptEvent(ctx context.Context, event *models.TransportReceiptEvent) (bool, error) {
	level := event.AckLevel()
	if level == models.AckNone {
		return false, nil
	}
	return s.applyWithFallback(ctx, event.MessageID, event.AltID, level)
}

func (s *ReceiptService) applyWithFallback(ctx context.Context, primaryID, altID string, level int) (bool, error) {
	changed, err := s.ApplyReceipt(ctx, primaryID, level)
	if err == nil || !errors.IsCode(err, errors.ErrCodeReceiptResolution) {
		return changed, err
	}
	if altID == "" || altID == primaryID {
		return false, err
	}
	return s.ApplyReceipt(ctx, altID, level)
}
