// Package errors provides standardized error handling for the triage service.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput           ErrorCode = "INVALID_INPUT"
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodeStorageFailed          ErrorCode = "STORAGE_FAILED"
	ErrCodeAnalysisFailed         ErrorCode = "ANALYSIS_FAILED"
	ErrCodeGeneratorTimeout       ErrorCode = "GENERATOR_TIMEOUT"
	ErrCodeGeneratorFailed        ErrorCode = "GENERATOR_FAILED"
	ErrCodeConversationNotFound   ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeSessionNotFound        ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a StandardError carrying the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Field returns the offending field recorded on validation errors.
func (e *StandardError) Field() string {
	if e.Metadata == nil {
		return ""
	}
	field, _ := e.Metadata["field"].(string)
	return field
}

// Sentinels usable with errors.Is.
var (
	ErrInvalidInput         = &StandardError{Code: ErrCodeInvalidInput}
	ErrValidationFailed     = &StandardError{Code: ErrCodeValidationFailed}
	ErrStorageFailed        = &StandardError{Code: ErrCodeStorageFailed}
	ErrAnalysisFailed       = &StandardError{Code: ErrCodeAnalysisFailed}
	ErrGeneratorTimeout     = &StandardError{Code: ErrCodeGeneratorTimeout}
	ErrGeneratorFailed      = &StandardError{Code: ErrCodeGeneratorFailed}
	ErrConversationNotFound = &StandardError{Code: ErrCodeConversationNotFound}
	ErrSessionNotFound      = &StandardError{Code: ErrCodeSessionNotFound}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidInputError creates a non-retryable input error. The message is user facing.
func NewInvalidInputError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable schema error naming the offending field.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   fmt.Sprintf("analysis payload invalid at %s", field),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageError creates a retryable persistence error.
func NewStorageError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailed,
		Message:   "Conversation storage operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewAnalysisError creates an error for failures inside the scoring/diagnosis pipeline.
func NewAnalysisError(details string, err error) *StandardError {
	if err != nil {
		details = fmt.Sprintf("%s: %v", details, err)
	}
	return &StandardError{
		Code:      ErrCodeAnalysisFailed,
		Message:   "Analysis pipeline failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewGeneratorTimeoutError creates a retryable text generation timeout error.
func NewGeneratorTimeoutError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeneratorTimeout,
		Message:   "Analysis generator timeout",
		Details:   "generator call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewGeneratorFailedError creates a retryable text generation error.
func NewGeneratorFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeneratorFailed,
		Message:   "Analysis generator error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewConversationNotFoundError creates a non-retryable lookup error.
func NewConversationNotFoundError(conversationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationNotFound,
		Message:   "Conversation not found",
		Details:   fmt.Sprintf("conversationId: %s", conversationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable session lookup error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found or expired",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %v", channel, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// HTTPStatus maps an error code to the HTTP status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeConversationNotFound, ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeGeneratorTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeGeneratorFailed:
		return http.StatusBadGateway
	case ErrCodeStorageFailed, ErrCodeNotificationSendFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "STORAGE") || strings.Contains(codeStr, "NOT_FOUND"):
		return "STORAGE"
	case strings.Contains(codeStr, "ANALYSIS") || strings.Contains(codeStr, "GENERATOR"):
		return "ANALYSIS"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
