package flow

import (
	"context"
	"time"

	"ticketflow/internal/errors"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// NodeContext is the state forwarded into one flow step.
type NodeContext struct {
	TicketID  int64  `json:"ticketId"`
	ContactID int64  `json:"contactId"`
	UserInput string `json:"userInput"`
}

// NodeResult is what one flow step produced. The engine only tracks the
// cursor and relays the reply; everything else stays inside the flow engine.
type NodeResult struct {
	NextNodeID    string `json:"nextNodeId"`
	Reply         string `json:"reply,omitempty"`
	AssignQueueID *int64 `json:"assignQueueId,omitempty"`
	CloseTicket   bool   `json:"closeTicket,omitempty"`
}

type runNodeRequest struct {
	NodeID  string      `json:"nodeId"`
	Context NodeContext `json:"context"`
}

// Client talks to the external scripted-flow engine.
type Client struct {
	httpClient *resty.Client
	logger     *logrus.Logger
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

// RunNode executes one node of a flow with the user's input and returns the
// next cursor position.
func (c *Client) RunNode(ctx context.Context, flowID, nodeID string, nodeCtx NodeContext) (*NodeResult, error) {
	result := &NodeResult{}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(runNodeRequest{NodeID: nodeID, Context: nodeCtx}).
		SetResult(result).
		Post("/v1/flows/" + flowID + "/run")
	if err != nil {
		class := errors.FailureUnknown
		if ctx.Err() != nil {
			class = errors.FailureTimeout
		}
		return nil, errors.NewHandlerFailure("flow", class, err)
	}

	if resp.IsError() {
		c.logger.WithFields(logrus.Fields{
			"flow_id": flowID,
			"node_id": nodeID,
			"status":  resp.StatusCode(),
		}).Error("Flow engine returned an error")
		class := errors.FailureServer
		if resp.StatusCode() < 500 {
			class = errors.FailureUnknown
		}
		return nil, errors.NewHandlerFailure("flow", class, nil)
	}

	return result, nil
}
