package models

// Transport status-update codes as delivered on the wire. They map onto ack
// levels as {2->sent, 3->delivered, 4->read, 5->played}; 0 and 1 carry no
// acknowledgment information.
const (
	StatusCodeError     = 0
	StatusCodePending   = 1
	StatusCodeServerAck = 2
	StatusCodeDelivered = 3
	StatusCodeRead      = 4
	StatusCodePlayed    = 5
)

// AckLevelFromStatusCode translates a wire status code into an ack level.
// Codes without acknowledgment meaning return AckNone.
func AckLevelFromStatusCode(code int) int {
	switch code {
	case StatusCodeServerAck:
		return AckSent
	case StatusCodeDelivered:
		return AckDelivered
	case StatusCodeRead:
		return AckRead
	case StatusCodePlayed:
		return AckPlayed
	}
	return AckNone
}

// TransportMessageEvent is the raw message-upsert notification posted by the
// messaging transport. Exactly one payload pointer is expected to be set; the
// normalizer classifies by shape and rejects events it cannot place.
type TransportMessageEvent struct {
	ID        string         `json:"id"`
	ChannelID string         `json:"channelId"`
	From      string         `json:"from"`
	FromMe    bool           `json:"fromMe"`
	PushName  string         `json:"pushName,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Payload   MessagePayload `json:"payload"`
}

type MessagePayload struct {
	Text        *TextPayload        `json:"text,omitempty"`
	Media       *MediaPayload       `json:"media,omitempty"`
	Location    *LocationPayload    `json:"location,omitempty"`
	ButtonReply *ButtonReplyPayload `json:"buttonReply,omitempty"`
	ListReply   *ListReplyPayload   `json:"listReply,omitempty"`
	Reaction    *ReactionPayload    `json:"reaction,omitempty"`
	Edit        *EditPayload        `json:"edit,omitempty"`
	ContactCard *ContactCardPayload `json:"contactCard,omitempty"`
	Protocol    *ProtocolPayload    `json:"protocol,omitempty"`
	QuotedID    string              `json:"quotedId,omitempty"`
}

type TextPayload struct {
	Body string `json:"body"`
}

type MediaPayload struct {
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
	PTT      bool   `json:"ptt,omitempty"`
}

type LocationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

type ButtonReplyPayload struct {
	ID          string `json:"id"`
	DisplayText string `json:"displayText"`
}

type ListReplyPayload struct {
	RowID string `json:"rowId"`
	Title string `json:"title"`
}

type ReactionPayload struct {
	Emoji    string `json:"emoji"`
	TargetID string `json:"targetId"`
}

type EditPayload struct {
	TargetID string `json:"targetId"`
	NewBody  string `json:"newBody"`
}

type ContactCardPayload struct {
	DisplayName string `json:"displayName"`
	VCard       string `json:"vcard,omitempty"`
}

type ProtocolPayload struct {
	Kind string `json:"kind"`
}

// TransportStatusEvent is a status-change receipt referencing a message by
// one of its identifier schemes.
type TransportStatusEvent struct {
	MessageID string `json:"messageId"`
	AltID     string `json:"altId,omitempty"`
	Status    int    `json:"status"`
}

// TransportReceiptEvent is a per-recipient receipt carrying stage timestamps.
// The highest stage present wins.
type TransportReceiptEvent struct {
	MessageID          string `json:"messageId"`
	AltID              string `json:"altId,omitempty"`
	DeliveredTimestamp *int64 `json:"deliveredTimestamp,omitempty"`
	ReadTimestamp      *int64 `json:"readTimestamp,omitempty"`
	PlayedTimestamp    *int64 `json:"playedTimestamp,omitempty"`
}

// AckLevel resolves the receipt to its highest acknowledgment level.
func (e *TransportReceiptEvent) AckLevel() int {
	switch {
	case e.PlayedTimestamp != nil:
		return AckPlayed
	case e.ReadTimestamp != nil:
		return AckRead
	case e.DeliveredTimestamp != nil:
		return AckDelivered
	}
	return AckNone
}
