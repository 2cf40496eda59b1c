package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureValid(t *testing.T) {
	body := []byte(`{"id":"msg-1"}`)
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewReader(body))
	req.Header.Set(signatureHeader, sign("test-secret", body))

	got, err := verifySignature(req, "test-secret", signatureHeader)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	// The body must still be readable downstream.
	restored, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, body, restored)
}

func TestVerifySignatureMismatch(t *testing.T) {
	body := []byte(`{"id":"msg-1"}`)
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewReader(body))
	req.Header.Set(signatureHeader, sign("wrong-secret", body))

	_, err := verifySignature(req, "test-secret", signatureHeader)
	assert.ErrorContains(t, err, "signature mismatch")
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	body := []byte(`{"id":"msg-1"}`)
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewReader([]byte(`{"id":"msg-2"}`)))
	req.Header.Set(signatureHeader, sign("test-secret", body))

	_, err := verifySignature(req, "test-secret", signatureHeader)
	assert.Error(t, err)
}

func TestVerifySignatureMissingHeader(t *testing.T) {
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewReader([]byte(`{}`)))

	_, err := verifySignature(req, "test-secret", signatureHeader)
	assert.ErrorContains(t, err, "missing signature header")
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	for _, header := range []string{"deadbeef", "md5=deadbeef", "sha256"} {
		req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewReader([]byte(`{}`)))
		req.Header.Set(signatureHeader, header)

		_, err := verifySignature(req, "test-secret", signatureHeader)
		assert.Error(t, err, "header %q", header)
	}
}

func TestVerifySignatureNoSecretOutsideProduction(t *testing.T) {
	t.Setenv("TICKETFLOW_ENV", "development")

	body := []byte(`{"id":"msg-1"}`)
	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewReader(body))

	got, err := verifySignature(req, "", signatureHeader)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestVerifySignatureNoSecretInProduction(t *testing.T) {
	t.Setenv("TICKETFLOW_ENV", "production")

	req := httptest.NewRequest("POST", "/webhook/messages", bytes.NewReader([]byte(`{}`)))

	_, err := verifySignature(req, "", signatureHeader)
	assert.ErrorContains(t, err, "required in production")
}
