package ai

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

func TestGenerate(t *testing.T) {
	var gotReq GenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "We open at 8am."})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "openai", "gpt-4o-mini", 5*time.Second, testLogger())
	reply, err := client.Generate(context.Background(), GenerateRequest{
		SystemPrompt: "Be concise.",
		History:      []Turn{{Role: "user", Content: "hi"}},
		UserTurn:     "when do you open?",
	})
	require.NoError(t, err)

	assert.Equal(t, "We open at 8am.", reply)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model, "the configured model fills in when the request has none")
	assert.Equal(t, "when do you open?", gotReq.UserTurn)
	require.Len(t, gotReq.History, 1)
}

func TestGenerateErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		class     errors.HandlerFailureClass
		retryable bool
	}{
		{http.StatusUnauthorized, errors.FailureAuth, false},
		{http.StatusForbidden, errors.FailureAuth, false},
		{http.StatusTooManyRequests, errors.FailureRateLimit, true},
		{http.StatusRequestTimeout, errors.FailureTimeout, true},
		{http.StatusGatewayTimeout, errors.FailureTimeout, true},
		{http.StatusInternalServerError, errors.FailureServer, true},
		{http.StatusBadRequest, errors.FailureUnknown, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.class, classifyStatus(tt.status), "status %d", tt.status)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "openai", "gpt-4o-mini", 5*time.Second, testLogger())
	_, err := client.Generate(context.Background(), GenerateRequest{UserTurn: "hi"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHandlerFailure))
	assert.True(t, errors.IsRetryable(err), "server faults are worth retrying")
	assert.Contains(t, errors.GetUserMessage(err), "openai")
}

func TestGenerateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "openai", "gpt-4o-mini", 5*time.Second, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, GenerateRequest{UserTurn: "hi"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHandlerFailure))
	assert.Contains(t, errors.GetUserMessage(err), "timeout")
}
