package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ticketflow/internal/errors"
	"ticketflow/pkg/transport/types"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Client is a thin HTTP client for the messaging-transport gateway. The
// gateway owns connection state, pairing and media; this engine only pushes
// outbound sends through it.
type Client struct {
	httpClient *resty.Client
	logger     *logrus.Logger
}

type sendTextRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type sendMenuRequest struct {
	To      string             `json:"to"`
	Title   string             `json:"title"`
	Style   string             `json:"style"`
	Options []types.MenuOption `json:"options"`
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	if apiKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) SendText(ctx context.Context, channelID, to, body string) (*types.SendResponse, error) {
	result := &types.SendResponse{}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(sendTextRequest{To: to, Body: body}).
		SetResult(result).
		Post(fmt.Sprintf("/api/%s/send-text", channelID))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransportAPI, "send-text request failed")
	}
	if resp.IsError() {
		return nil, c.apiError("send-text", resp)
	}

	c.logger.WithFields(logrus.Fields{
		"channel_id": channelID,
		"message_id": result.MessageID,
	}).Debug("Sent text message")
	return result, nil
}

// SendMenu renders an enumerated menu. Text style is flattened into a single
// numbered body here; list and button styles are passed through for the
// gateway to render natively.
func (c *Client) SendMenu(ctx context.Context, channelID, to string, menu types.Menu) (*types.SendResponse, error) {
	if menu.Style == types.MenuStyleText || menu.Style == "" {
		return c.SendText(ctx, channelID, to, renderTextMenu(menu))
	}

	result := &types.SendResponse{}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(sendMenuRequest{To: to, Title: menu.Title, Style: menu.Style, Options: menu.Options}).
		SetResult(result).
		Post(fmt.Sprintf("/api/%s/send-menu", channelID))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransportAPI, "send-menu request failed")
	}
	if resp.IsError() {
		return nil, c.apiError("send-menu", resp)
	}
	return result, nil
}

func (c *Client) apiError(op string, resp *resty.Response) error {
	c.logger.WithFields(logrus.Fields{
		"operation": op,
		"status":    resp.StatusCode(),
		"body":      resp.String(),
	}).Error("Transport gateway returned an error")
	return errors.New(errors.ErrCodeTransportAPI,
		fmt.Sprintf("%s failed with status %d", op, resp.StatusCode()))
}

func renderTextMenu(menu types.Menu) string {
	var b strings.Builder
	b.WriteString(menu.Title)
	for i, opt := range menu.Options {
		b.WriteString("\n")
		b.WriteString("[ ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" ] ")
		b.WriteString(opt.Label)
	}
	return b.String()
}
