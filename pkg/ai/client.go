package ai

import (
	"context"
	"net/http"
	"time"

	"ticketflow/internal/errors"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Turn is one prior exchange in the conversation history.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// GenerateRequest carries everything the provider needs for one completion.
type GenerateRequest struct {
	Model        string `json:"model"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	History      []Turn `json:"history,omitempty"`
	UserTurn     string `json:"userTurn"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Client talks to an AI provider adapter. The adapter shapes the
// provider-specific request/response; this client only supplies history and
// consumes a string or a classified failure.
type Client struct {
	httpClient *resty.Client
	provider   string
	model      string
	logger     *logrus.Logger
}

func NewClient(baseURL, apiKey, provider, model string, timeout time.Duration, logger *logrus.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	if apiKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &Client{
		httpClient: httpClient,
		provider:   provider,
		model:      model,
		logger:     logger,
	}
}

func (c *Client) Provider() string {
	return c.provider
}

// Generate produces the assistant's reply for one user turn. Failures come
// back classified so the router can attribute them in its user-facing
// notice.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	result := &generateResponse{}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		Post("/v1/generate")
	if err != nil {
		class := errors.FailureUnknown
		if ctx.Err() != nil {
			class = errors.FailureTimeout
		}
		return "", errors.NewHandlerFailure(c.provider, class, err)
	}

	if resp.IsError() {
		c.logger.WithFields(logrus.Fields{
			"provider": c.provider,
			"status":   resp.StatusCode(),
		}).Error("AI provider returned an error")
		return "", errors.NewHandlerFailure(c.provider, classifyStatus(resp.StatusCode()), nil)
	}

	return result.Text, nil
}

func classifyStatus(status int) errors.HandlerFailureClass {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.FailureAuth
	case status == http.StatusTooManyRequests:
		return errors.FailureRateLimit
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return errors.FailureTimeout
	case status >= 500:
		return errors.FailureServer
	default:
		return errors.FailureUnknown
	}
}
