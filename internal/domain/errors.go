package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors used across repositories and services
var (
	// ErrNotFound indicates a record does not exist in a store
	ErrNotFound = errors.New("record not found")
	// ErrNoGenotype indicates no genotype has been uploaded for the session
	ErrNoGenotype = errors.New("no genotype loaded for session")
	// ErrScanActive indicates a bulk scan is already running for the session
	ErrScanActive = errors.New("a scan is already active for this session")
)

// EngineError represents a standardized error response
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrSourceError    = "SOURCE_ERROR"
	ErrScanFailed     = "SCAN_ERROR"
	ErrUploadFailed   = "UPLOAD_ERROR"
	ErrSessionMissing = "SESSION_NOT_FOUND"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details, requestID string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
