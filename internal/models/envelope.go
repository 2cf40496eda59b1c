package models

import "time"

// MessageType is the closed set of canonical message kinds produced by the
// envelope normalizer. All downstream routing matches over this set; payload
// shapes the normalizer cannot classify never reach the pipeline.
type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeImage       MessageType = "image"
	MessageTypeVideo       MessageType = "video"
	MessageTypeDocument    MessageType = "document"
	MessageTypeLocation    MessageType = "location"
	MessageTypeButtonReply MessageType = "button_reply"
	MessageTypeListReply   MessageType = "list_reply"
	MessageTypeReaction    MessageType = "reaction"
	MessageTypeEdit        MessageType = "edit"
	MessageTypeProtocol    MessageType = "protocol"
	MessageTypeContactCard MessageType = "contact_card"
	MessageTypeUnknown     MessageType = "unknown"
)

// MessageEnvelope is the canonical, immutable form of one transport message
// event. It is constructed exactly once by the normalizer; everything after
// the dedup filter operates on envelopes, never on raw payloads.
type MessageEnvelope struct {
	ID        string      `json:"id"`
	ChannelID string      `json:"channelId"`
	SenderID  string      `json:"senderId"`
	FromMe    bool        `json:"fromMe"`
	IsGroup   bool        `json:"isGroup"`
	Type      MessageType `json:"type"`
	Body      string      `json:"body"`
	MediaRef  string      `json:"mediaRef,omitempty"`
	QuotedID  string      `json:"quotedId,omitempty"`
	PushName  string      `json:"pushName,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// TicketKey returns the conversation key the envelope belongs to. One active
// ticket exists per key at any time.
func (e *MessageEnvelope) TicketKey() string {
	return e.SenderID + "|" + e.ChannelID
}

// HasText reports whether the envelope carries user-visible text that routing
// rules may interpret as input (menu selections, tokens, rating replies).
func (e *MessageEnvelope) HasText() bool {
	switch e.Type {
	case MessageTypeText, MessageTypeButtonReply, MessageTypeListReply:
		return e.Body != ""
	}
	return false
}
