package types

import "context"

// MenuStyle selects how an enumerated menu is rendered on the wire.
const (
	MenuStyleText   = "text"
	MenuStyleList   = "list"
	MenuStyleButton = "button"
)

// MenuOption is one selectable entry of a queue/chatbot menu.
type MenuOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Menu is an enumerated prompt presented to the contact.
type Menu struct {
	Title   string       `json:"title"`
	Style   string       `json:"style"`
	Options []MenuOption `json:"options"`
}

// SendResponse is the gateway's acknowledgment of an outbound send.
type SendResponse struct {
	MessageID string `json:"messageId"`
	AltID     string `json:"altId,omitempty"`
}

// Client is the outbound surface of the messaging-transport gateway. The
// gateway itself (pairing, reconnect, media handling) is an external
// collaborator behind this contract.
type Client interface {
	SendText(ctx context.Context, channelID, to, body string) (*SendResponse, error)
	SendMenu(ctx context.Context, channelID, to string, menu Menu) (*SendResponse, error)
}
