package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type
type ErrorCode string

const (
	// Ingestion errors
	ErrCodeUnrecognizedType  ErrorCode = "UNRECOGNIZED_TYPE"
	ErrCodeTicketConflict    ErrorCode = "TICKET_CONFLICT"
	ErrCodeReceiptResolution ErrorCode = "RECEIPT_RESOLUTION"

	// External handler errors
	ErrCodeHandlerFailure ErrorCode = "HANDLER_FAILURE"
	ErrCodeTransportAPI   ErrorCode = "TRANSPORT_API"

	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Database errors
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	ErrCodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"

	// Validation errors
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Security errors
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION"
	ErrCodeRateLimit      ErrorCode = "RATE_LIMIT"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
)

// HandlerFailureClass categorizes why an external handler (AI, flow, TTS)
// failed; it drives the provider-attributed notice shown to the end user.
type HandlerFailureClass string

const (
	FailureAuth      HandlerFailureClass = "auth"
	FailureRateLimit HandlerFailureClass = "rate-limit"
	FailureServer    HandlerFailureClass = "server"
	FailureTimeout   HandlerFailureClass = "timeout"
	FailureUnknown   HandlerFailureClass = "unknown"
)

// AppError represents a structured application error
type AppError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Cause       error                  `json:"-"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Retryable   bool                   `json:"retryable"`
	UserMessage string                 `json:"user_message,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithUserMessage sets a user-friendly message
func (e *AppError) WithUserMessage(msg string) *AppError {
	e.UserMessage = msg
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewUnrecognizedType reports a transport payload the normalizer could not
// classify. Non-fatal: the single message is dropped, the pipeline continues.
func NewUnrecognizedType(messageID string) *AppError {
	return New(ErrCodeUnrecognizedType, "unrecognized transport payload shape").
		WithContext("message_id", messageID)
}

// NewTicketConflict marks a routing-side ticket mutation that lost against a
// concurrent writer. Automation callers recognize the code and swallow it
// with a warning; the inbound message itself was already persisted.
func NewTicketConflict(ticketID int64, err error) *AppError {
	return Wrap(err, ErrCodeTicketConflict, "concurrent ticket modification").
		WithContext("ticket_id", ticketID)
}

// NewHandlerFailure describes an external handler fault with the provider
// name and cause class; UserMessage is the apologetic notice sent to the end
// user in place of the handler's reply.
func NewHandlerFailure(provider string, class HandlerFailureClass, err error) *AppError {
	appErr := Wrap(err, ErrCodeHandlerFailure, fmt.Sprintf("%s handler failed (%s)", provider, class)).
		WithContext("provider", provider).
		WithContext("class", string(class)).
		WithUserMessage(fmt.Sprintf("Sorry, our %s assistant is unavailable right now (%s). A human will follow up shortly.", provider, class))
	if class == FailureRateLimit || class == FailureServer || class == FailureTimeout {
		appErr.Retryable = true
	}
	return appErr
}

// NewReceiptResolution reports a receipt whose message id matched no known
// identifier scheme. Logged once per attempt, never retried.
func NewReceiptResolution(messageID string) *AppError {
	return New(ErrCodeReceiptResolution, "message not found under any identifier scheme").
		WithContext("message_id", messageID)
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// GetUserMessage extracts a user-friendly message from an error
func GetUserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return "An internal error occurred"
}
