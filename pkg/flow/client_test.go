package flow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketflow/internal/errors"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRunNode(t *testing.T) {
	var gotPath string
	var gotReq struct {
		NodeID  string      `json:"nodeId"`
		Context NodeContext `json:"context"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(NodeResult{NextNodeID: "ask-email", Reply: "What is your email?"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", 5*time.Second, testLogger())
	result, err := client.RunNode(context.Background(), "onboarding", "ask-name", NodeContext{
		TicketID:  12,
		ContactID: 7,
		UserInput: "Ana",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/flows/onboarding/run", gotPath)
	assert.Equal(t, "ask-name", gotReq.NodeID)
	assert.Equal(t, int64(12), gotReq.Context.TicketID)
	assert.Equal(t, "Ana", gotReq.Context.UserInput)
	assert.Equal(t, "ask-email", result.NextNodeID)
	assert.Equal(t, "What is your email?", result.Reply)
}

func TestRunNodeQueueHandoff(t *testing.T) {
	queueID := int64(10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(NodeResult{AssignQueueID: &queueID, CloseTicket: false})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, testLogger())
	result, err := client.RunNode(context.Background(), "onboarding", "route", NodeContext{TicketID: 1})
	require.NoError(t, err)

	require.NotNil(t, result.AssignQueueID)
	assert.Equal(t, queueID, *result.AssignQueueID)
	assert.Empty(t, result.NextNodeID)
}

func TestRunNodeEngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, testLogger())
	result, err := client.RunNode(context.Background(), "onboarding", "start", NodeContext{})
	assert.Nil(t, result)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHandlerFailure))
	assert.True(t, errors.IsRetryable(err))
}
