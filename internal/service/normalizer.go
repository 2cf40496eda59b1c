package service

import (
	"fmt"
	"strings"
	"time"

	"ticketflow/internal/errors"
	"ticketflow/internal/models"
)

// Normalizer converts raw transport message events into canonical envelopes.
// Pure and idempotent: the same event always yields the same envelope.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize classifies the event's payload into exactly one canonical type
// and extracts its text body. Shapes that match nothing produce an
// UnrecognizedType error; the caller drops the single message and continues.
func (n *Normalizer) Normalize(event *models.TransportMessageEvent) (*models.MessageEnvelope, error) {
	if event.ID == "" {
		return nil, errors.NewUnrecognizedType("").WithContext("reason", "missing message id")
	}

	envelope := &models.MessageEnvelope{
		ID:        event.ID,
		ChannelID: event.ChannelID,
		SenderID:  models.NormalizeRemoteID(event.From),
		FromMe:    event.FromMe,
		IsGroup:   models.IsGroupIdentifier(event.From),
		PushName:  event.PushName,
		QuotedID:  event.Payload.QuotedID,
		Timestamp: time.Unix(event.Timestamp, 0).UTC(),
	}

	p := &event.Payload
	switch {
	case p.Text != nil:
		envelope.Type = models.MessageTypeText
		envelope.Body = p.Text.Body

	case p.Media != nil:
		envelope.Type = classifyMedia(p.Media)
		envelope.Body = p.Media.Caption
		envelope.MediaRef = p.Media.URL

	case p.Location != nil:
		envelope.Type = models.MessageTypeLocation
		envelope.Body = renderLocation(p.Location)

	case p.ButtonReply != nil:
		envelope.Type = models.MessageTypeButtonReply
		envelope.Body = p.ButtonReply.DisplayText

	case p.ListReply != nil:
		envelope.Type = models.MessageTypeListReply
		envelope.Body = listReplyBody(p.ListReply)

	case p.Reaction != nil:
		envelope.Type = models.MessageTypeReaction
		envelope.Body = p.Reaction.Emoji
		envelope.QuotedID = p.Reaction.TargetID

	case p.Edit != nil:
		envelope.Type = models.MessageTypeEdit
		envelope.Body = p.Edit.NewBody
		envelope.QuotedID = p.Edit.TargetID

	case p.ContactCard != nil:
		envelope.Type = models.MessageTypeContactCard
		envelope.Body = p.ContactCard.DisplayName

	case p.Protocol != nil:
		envelope.Type = models.MessageTypeProtocol

	default:
		return nil, errors.NewUnrecognizedType(event.ID)
	}

	return envelope, nil
}

func classifyMedia(media *models.MediaPayload) models.MessageType {
	mime := strings.ToLower(media.MimeType)
	switch {
	case strings.HasPrefix(mime, "audio/"), media.PTT:
		return models.MessageTypeAudio
	case strings.HasPrefix(mime, "image/"):
		return models.MessageTypeImage
	case strings.HasPrefix(mime, "video/"):
		return models.MessageTypeVideo
	default:
		return models.MessageTypeDocument
	}
}

// renderLocation turns coordinates into the human-readable body the ticket
// timeline shows.
func renderLocation(loc *models.LocationPayload) string {
	coords := fmt.Sprintf("%.6f, %.6f", loc.Latitude, loc.Longitude)
	if loc.Name != "" {
		return loc.Name + " (" + coords + ")"
	}
	return coords
}

// listReplyBody prefers the selected row's title, falling back to its id.
func listReplyBody(reply *models.ListReplyPayload) string {
	if reply.Title != "" {
		return reply.Title
	}
	return reply.RowID
}
